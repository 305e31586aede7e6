package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
	"github.com/diagramtools/mermaidfix/pkg/probe"
)

// sanitizeCommand creates the sanitize command.
func (c *CLI) sanitizeCommand() *cobra.Command {
	var (
		declaredType string
		grammar      string
		output       string
		probeCmd     string
		noCache      bool
		refresh      bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Repair diagram text and emit a renderable version",
		Long: `Sanitize reads Mermaid diagram text from a file or stdin, repairs
structural damage, and prints text that is guaranteed to render. When the
diagram had to be degraded, a notice is printed to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if grammar != "" {
				if err := diagram.ValidateGrammar(diagram.Grammar(grammar)); err != nil {
					return err
				}
			}

			runner, store, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer store.Close()

			if fields := strings.Fields(probeCmd); len(fields) > 0 {
				p, err := probe.NewCommand(fields[0], fields[1:], 0)
				if err != nil {
					return err
				}
				runner.Probe = p
				runner.CacheScope = filepath.Base(fields[0])
			}

			prog := newProgress(c.Logger)
			res := runner.Run(cmd.Context(), pipeline.Options{
				Text:         text,
				DeclaredType: declaredType,
				Grammar:      diagram.Grammar(grammar),
				Refresh:      refresh,
			})
			prog.done(fmt.Sprintf("Sanitized %s diagram", res.Grammar))

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"text":      res.Text,
					"notice":    res.Notice,
					"grammar":   res.Grammar,
					"strategy":  int(res.Strategy),
					"cacheHit":  res.CacheHit,
					"records":   res.Records,
					"telemetry": res.Telemetry,
				})
			}

			if res.Notice != "" {
				printWarning("%s", res.Notice)
			}
			for _, rec := range res.Records {
				printDetail("line %d %s (%s)", rec.LineNo, rec.Action, rec.Reason)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(res.Text+"\n"), 0o644); err != nil {
					return err
				}
				printSuccess("Wrote %s", output)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&declaredType, "type", "t", "", "declared diagram type (hld, lld, dbd)")
	cmd.Flags().StringVarP(&grammar, "grammar", "g", "", "grammar hint (flowchart, classDiagram, erDiagram)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write result to file instead of stdout")
	cmd.Flags().StringVar(&probeCmd, "probe", "", "external renderer command to verify candidates (use {input} for the file path)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached results for this run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full result as JSON")

	return cmd
}
