// Package pipeline runs the complete sanitization flow for LLM-generated
// diagram text: classify → repair → validate → render cascade. CLI and HTTP
// entry points both go through the Runner here, so repair behavior cannot
// drift between surfaces.
//
// A pipeline run is total: it always produces renderable text, degrading
// through the cascade strategies and bottoming out at a fallback diagram.
// Errors from probes or the cache downgrade the result, never fail it.
//
// Usage:
//
//	runner := pipeline.NewRunner(cache, probe, logger)
//	res := runner.Run(ctx, pipeline.Options{
//	    Text:         llmOutput,
//	    DeclaredType: "lld",
//	})
//	fmt.Println(res.Text)
package pipeline

import (
	"time"

	"github.com/diagramtools/mermaidfix/pkg/cascade"
	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/quality"
	"github.com/diagramtools/mermaidfix/pkg/repair"
)

// DefaultCacheTTL is how long sanitization results stay cached. Results are
// deterministic for a given input, so the TTL only bounds disk usage.
const DefaultCacheTTL = 24 * time.Hour

// Options configures one pipeline run.
type Options struct {
	// Text is the raw LLM-generated diagram text.
	Text string

	// DeclaredType is the caller's diagram type (hld, lld, dbd). It is a
	// hint only; keywords found in the text win.
	DeclaredType string

	// Grammar, when set, is used as the classification hint instead of
	// DeclaredType.
	Grammar diagram.Grammar

	// Refresh bypasses the cache for this run.
	Refresh bool
}

// source converts the options to the input form the diagram package works
// with.
func (o Options) source() diagram.Source {
	return diagram.Source{
		Text:         o.Text,
		DeclaredType: o.DeclaredType,
		Grammar:      o.Grammar,
	}
}

// Telemetry is the observability summary of one run.
type Telemetry struct {
	InvocationID  string          `json:"invocationId"`
	Grammar       diagram.Grammar `json:"grammar"`
	RepairCount   int             `json:"repairCount"`
	RemovalRatio  float64         `json:"removalRatio"`
	StrategyIndex int             `json:"strategyIndex"`
	Duration      time.Duration   `json:"duration"`
}

// Result is the outcome of a pipeline run. Text is always renderable; Notice
// is non-empty when the diagram was degraded to get there.
type Result struct {
	Text     string
	Notice   string
	Grammar  diagram.Grammar
	Strategy cascade.Strategy

	// Records and Report are nil on a cache hit; they describe work that
	// happened, not work that was replayed.
	Records []repair.Record
	Report  *quality.Report

	CacheHit  bool
	Telemetry Telemetry
}
