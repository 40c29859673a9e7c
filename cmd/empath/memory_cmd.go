package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/empath/internal/memory"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MEMORY COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect stored memory",
	}

	var (
		limit  int
		asJSON bool
	)
	recall := &cobra.Command{
		Use:   "recall [owner]",
		Short: "Show the most recent records for an owner",
		Long: `Show stored turns for an owner, most recent first. The owner is the
user reference, or the session id for turns sent without one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			store, err := memory.Open(ctx, memory.Options{
				Backend: cfg.Memory.Backend,
				Driver:  cfg.Memory.Driver,
				Path:    cfg.Memory.Path,
				Redis: memory.RedisConfig{
					Addr:     cfg.Memory.Redis.Addr,
					Password: cfg.Memory.Redis.Password,
					DB:       cfg.Memory.Redis.DB,
					Prefix:   cfg.Memory.Redis.Prefix,
				},
				MaxPerOwner: cfg.Memory.MaxPerOwner,
			})
			if err != nil {
				return fmt.Errorf("failed to open memory store: %w", err)
			}
			defer memory.Close(store)

			records, err := store.Recall(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Println(mutedStyle.Render("no records for " + args[0]))
				return nil
			}
			for _, r := range records {
				fmt.Printf("%s %s %s\n",
					labelStyle.Render(r.Timestamp.Format("2006-01-02 15:04:05")),
					valueStyle.Render(fmt.Sprintf("[%s/%s]", r.EmotionLabel, r.Content.Intent)),
					mutedStyle.Render(fmt.Sprintf("importance %d", r.Importance)))
				fmt.Println(textStyle.Render("> " + r.Content.Input))
				fmt.Println(textStyle.Render(r.Content.Response))
			}
			return nil
		},
	}
	recall.Flags().IntVarP(&limit, "limit", "n", memory.DefaultRecallLimit, "maximum records")
	recall.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	cmd.AddCommand(recall)

	return cmd
}
