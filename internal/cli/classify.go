package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

// classifyCommand creates the classify command.
func (c *CLI) classifyCommand() *cobra.Command {
	var declaredType string

	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Detect the diagram grammar of a file",
		Long: `Classify scans the diagram text for grammar keywords and prints the
detected grammar. Keywords in the text win over the declared type; with
neither present the result defaults to flowchart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			hint, _ := diagram.FromDeclaredType(declaredType)
			g := diagram.Classify(text, hint)
			fmt.Fprintln(cmd.OutOrStdout(), g)
			return nil
		},
	}

	cmd.Flags().StringVarP(&declaredType, "type", "t", "", "declared diagram type (hld, lld, dbd)")
	return cmd
}
