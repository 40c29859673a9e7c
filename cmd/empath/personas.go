package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PERSONAS COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func personasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Inspect personas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadPersonas(cfg.Personas)
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				p := reg.Get(name)
				pc := p.Config()
				marker := "  "
				if name == reg.Default() {
					marker = headerStyle.Render("* ")
				}
				fmt.Printf("%s%-10s %s %s\n", marker, valueStyle.Render(name),
					labelStyle.Render("["+pc.Domain+"]"), pc.Description)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [name]",
		Short: "Print a persona definition as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadPersonas(cfg.Personas)
			if err != nil {
				return err
			}
			p, ok := reg.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown persona %q (available: %s)", args[0], strings.Join(reg.Names(), ", "))
			}
			out, err := p.Config().ToYAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})

	return cmd
}
