// Package cli implements the mermaidfix command-line interface.
//
// Commands cover one-shot sanitization of diagram files, grammar
// classification, fallback inspection, the HTTP service, and cache
// management. All commands support --verbose (-v) for debug-level logging
// via the charmbracelet/log library.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/diagramtools/mermaidfix/internal/config"
	"github.com/diagramtools/mermaidfix/pkg/buildinfo"
	"github.com/diagramtools/mermaidfix/pkg/cache"
	"github.com/diagramtools/mermaidfix/pkg/errors"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "mermaidfix",
		Short:        "Mermaidfix repairs LLM-generated Mermaid diagrams",
		Long:         `Mermaidfix sanitizes machine-generated Mermaid diagram text: it classifies the grammar, repairs structural damage, and degrades gracefully until the result is guaranteed to render.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (TOML)")

	root.AddCommand(c.sanitizeCommand())
	root.AddCommand(c.classifyCommand())
	root.AddCommand(c.fallbackCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Config & Runner Factories
// =============================================================================

// loadConfig loads the configured or default configuration.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, cache.Cache, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var store cache.Cache
	if noCache {
		store = cache.NewNullCache()
	} else {
		store, err = cfg.BuildCache()
		if err != nil {
			c.Logger.Warn("cache unavailable, continuing without", "err", err)
			store = cache.NewNullCache()
		}
	}

	p, err := cfg.BuildProbe()
	if err != nil {
		return nil, nil, err
	}

	runner := pipeline.NewRunner(store, p, c.Logger)
	runner.Engine = cfg.RepairEngine()
	runner.Library = cfg.Library()
	runner.CacheScope = cfg.ProbeScope()
	runner.TTL = cfg.CacheTTL()
	return runner, store, nil
}

// =============================================================================
// Input Helpers
// =============================================================================

// readInput reads diagram text from the file argument, or stdin when the
// argument is empty or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if os.IsNotExist(err) {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "input file %s", args[0])
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", args[0])
	}
	return string(data), nil
}
