// Command empath runs the multi-persona emotional-intelligence responder as
// an HTTP/websocket service or from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/normanking/empath/internal/config"
	"github.com/normanking/empath/internal/logging"
)

// annotationNoConfig marks commands that run before a config file exists.
const annotationNoConfig = "empath/no-config"

var (
	version = "0.1.0"
	cfgPath string
	backend string
	verbose bool

	cfg    *config.Config
	logger *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "empath",
		Short: "Empath - emotion-aware conversational responder with personas",
		Long: `Empath scores each message for emotion, tracks the session mood,
classifies the request for the active persona and answers in that persona's
voice, remembering every turn for the next one.

Start the service:     empath serve
One-shot answer:       empath ask "I finally got the job!"
Interactive session:   empath chat --persona coach
Configuration:         empath config show`,
		SilenceUsage:       true,
		PersistentPreRunE:  initialize,
		PersistentPostRunE: finalize,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.empath/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "override memory backend (memory, sqlite, redis)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationNoConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Empath v%s\n", version)
		},
	})

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(personasCmd())
	rootCmd.AddCommand(memoryCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initialize(cmd *cobra.Command, args []string) error {
	var err error
	if cmd.Annotations[annotationNoConfig] == "true" {
		cfg = config.Default()
		logger, err = logging.Setup(logging.Config{Level: "warn"})
		return err
	}
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if backend != "" {
		cfg.Memory.Backend = backend
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	log.Debug().
		Str("config", getConfigPath()).
		Str("backend", cfg.Memory.Backend).
		Str("persona", cfg.Personas.Default).
		Msg("empath initialized")
	return nil
}

func finalize(cmd *cobra.Command, args []string) error {
	if logger != nil {
		return logger.Close()
	}
	return nil
}

func getConfigPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultPath()
}
