package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/empath/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ASK COMMAND (one-shot turn)
// ═══════════════════════════════════════════════════════════════════════════════

func askCmd() *cobra.Command {
	var (
		personaName string
		userRef     string
		sessionID   string
		moodHint    string
		hints       []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Answer one message",
		Long: `Process a single turn and print the response envelope.

Examples:
  empath ask "I finally got the job!"
  empath ask --persona caregiver "I keep forgetting my medication"
  empath ask --json --user alice "hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(text) > cfg.Server.MaxInputBytes {
				return fmt.Errorf("message exceeds %d bytes", cfg.Server.MaxInputBytes)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			a, err := newApp(ctx, cfg, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			env := a.pipeline.Process(ctx, userRef, text, pipeline.TurnContext{
				Mood:        moodHint,
				MemoryHints: hints,
				SessionID:   sessionID,
				Persona:     personaName,
			})

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(env)
			}
			fmt.Print(renderEnvelope(env))
			return nil
		},
	}

	cmd.Flags().StringVarP(&personaName, "persona", "p", "", "persona to answer as (default from config)")
	cmd.Flags().StringVarP(&userRef, "user", "u", "", "user reference (memory owner)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id")
	cmd.Flags().StringVar(&moodHint, "mood", "", "caller-supplied mood")
	cmd.Flags().StringSliceVar(&hints, "hint", nil, "memory hint passed to templates (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the envelope as JSON")
	return cmd
}
