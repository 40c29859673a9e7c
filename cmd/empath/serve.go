package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/normanking/empath/internal/scheduler"
	"github.com/normanking/empath/internal/server"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SERVE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Long: `Serve the turn API and the chat websocket.

Endpoints:
  POST /api/v1/turn            process one turn
  GET  /api/v1/personas        list personas
  GET  /api/v1/personas/{name} describe one persona
  GET  /api/v1/health          liveness
  GET  /api/metrics            counters as JSON
  GET  /api/metrics/dashboard  counters as text
  GET  /ws/chat                websocket chat (?user=&session=&persona=)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(a.sessions, a.bus, cfg.Sessions.ReapSchedule, cfg.Sessions.IdleTimeout)
			if err != nil {
				return fmt.Errorf("failed to create session janitor: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			srv, err := server.New(server.Options{
				Config:    cfg.Server,
				Pipeline:  a.pipeline,
				Collector: a.collector,
				Bus:       a.bus,
				Version:   version,
			})
			if err != nil {
				return err
			}

			fmt.Println(headerStyle.Render("Empath v"+version) + " " +
				labelStyle.Render("listening on ") + valueStyle.Render("http://"+cfg.Server.Addr))

			if err := srv.Start(ctx); err != nil {
				return err
			}
			log.Info().Msg("empath stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
