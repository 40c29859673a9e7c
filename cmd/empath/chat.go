package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/normanking/empath/internal/config"
	"github.com/normanking/empath/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT COMMAND (interactive session)
// ═══════════════════════════════════════════════════════════════════════════════

func chatCmd() *cobra.Command {
	var (
		personaName string
		userRef     string
		sessionID   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Chat with a persona. Turns share one session, so the mood carries over.

Commands inside the session:
  /persona NAME   switch persona
  /mood           show the current mood and recent transitions
  /session        show the session id
  /quit           leave`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := newApp(ctx, cfg, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			if personaName == "" {
				personaName = a.pipeline.Personas().Default()
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          chatPrompt(personaName),
				HistoryFile:     filepath.Join(config.DataDir(), "chat_history"),
				InterruptPrompt: "^C",
				EOFPrompt:       "/quit",
				AutoComplete: readline.NewPrefixCompleter(
					readline.PcItem("/persona", personaItems(a)...),
					readline.PcItem("/mood"),
					readline.PcItem("/session"),
					readline.PcItem("/quit"),
				),
			})
			if err != nil {
				return fmt.Errorf("failed to start line editor: %w", err)
			}
			defer rl.Close()

			fmt.Fprintln(rl.Stdout(), mutedStyle.Render("session "+sessionID+" (/quit to leave)"))

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "/") {
					if quit := chatCommand(a, rl, line, &personaName, sessionID); quit {
						return nil
					}
					continue
				}
				if line == "" {
					continue
				}
				if len(line) > cfg.Server.MaxInputBytes {
					fmt.Fprintln(rl.Stdout(), errorStyle.Render(fmt.Sprintf("message exceeds %d bytes", cfg.Server.MaxInputBytes)))
					continue
				}

				env := a.pipeline.Process(ctx, userRef, line, pipeline.TurnContext{
					SessionID: sessionID,
					Persona:   personaName,
				})
				fmt.Fprint(rl.Stdout(), renderEnvelope(env))
			}
		},
	}

	cmd.Flags().StringVarP(&personaName, "persona", "p", "", "persona to chat with (default from config)")
	cmd.Flags().StringVarP(&userRef, "user", "u", "", "user reference (memory owner)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume a session id")
	return cmd
}

func chatPrompt(name string) string {
	return headerStyle.Render(name) + " » "
}

func personaItems(a *app) []readline.PrefixCompleterInterface {
	names := a.pipeline.Personas().Names()
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, n := range names {
		items[i] = readline.PcItem(n)
	}
	return items
}

// chatCommand handles a slash command and reports whether to leave.
func chatCommand(a *app, rl *readline.Instance, line string, personaName *string, sessionID string) bool {
	out := rl.Stdout()
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/session":
		fmt.Fprintln(out, valueStyle.Render(sessionID))
	case "/persona":
		if len(fields) < 2 {
			fmt.Fprintln(out, labelStyle.Render("personas: ")+strings.Join(a.pipeline.Personas().Names(), ", "))
			return false
		}
		if _, ok := a.pipeline.Personas().Lookup(fields[1]); !ok {
			fmt.Fprintln(out, errorStyle.Render("unknown persona "+fields[1]))
			return false
		}
		*personaName = fields[1]
		rl.SetPrompt(chatPrompt(*personaName))
	case "/mood":
		tr := a.sessions.Tracker(sessionID)
		fmt.Fprintln(out, labelStyle.Render("mood ")+valueStyle.Render(string(tr.State()))+
			mutedStyle.Render(fmt.Sprintf(" (%d turns)", tr.Len())))
		for _, t := range tr.Transitions() {
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  %s → %s", t.From, t.To)))
		}
	default:
		fmt.Fprintln(out, errorStyle.Render("unknown command "+fields[0]))
	}
	return false
}
