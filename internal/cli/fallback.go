package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

// fallbackCommand creates the fallback command.
func (c *CLI) fallbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fallback <grammar>",
		Short: "Print the fallback diagram for a grammar",
		Long: `Fallback prints the minimal diagram substituted when sanitization cannot
produce renderable text. Configured overrides are reflected.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(diagram.Flowchart), string(diagram.ClassDiagram), string(diagram.ErDiagram)},
		RunE: func(cmd *cobra.Command, args []string) error {
			g := diagram.Grammar(args[0])
			if err := diagram.ValidateGrammar(g); err != nil {
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Library().Fallback(g))
			return nil
		},
	}
}
