// Package cascade drives the ordered render-attempt strategies. Each strategy
// degrades the diagram a little further than the last; the final strategy
// substitutes a known-good fallback, so a cascade run always produces text
// the probe accepts.
package cascade

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

// Strategy identifies one rung of the cascade. Values start at 1 so the
// strategy index in telemetry matches the human description ("strategy 3").
type Strategy int

const (
	StrategyAsRepaired Strategy = iota + 1
	StrategyStripStyling
	StrategyStripInlineStyles
	StrategySimplifyLabels
	StrategyFallback
)

// String returns the strategy name for logs.
func (s Strategy) String() string {
	switch s {
	case StrategyAsRepaired:
		return "as-repaired"
	case StrategyStripStyling:
		return "strip-styling"
	case StrategyStripInlineStyles:
		return "strip-inline-styles"
	case StrategySimplifyLabels:
		return "simplify-labels"
	case StrategyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Notice returns the user-facing degradation message for a strategy, or ""
// when the diagram survived untouched.
func (s Strategy) Notice() string {
	switch s {
	case StrategyStripStyling, StrategyStripInlineStyles:
		return "Removed styling to fix syntax errors"
	case StrategySimplifyLabels:
		return "Simplified labels to fix syntax errors"
	case StrategyFallback:
		return "Using fallback diagram"
	default:
		return ""
	}
}

// Probe checks whether a renderer would accept the text. A nil error means
// the text renders.
type Probe interface {
	Check(ctx context.Context, text string) error
}

// Attempt records one probe invocation during a cascade run.
type Attempt struct {
	Strategy Strategy `json:"strategy"`
	Text     string   `json:"-"`
	Err      error    `json:"-"`
}

// Result is the outcome of a cascade run. Text is always probe-accepted:
// either a strategy variant the probe passed, or the library fallback.
type Result struct {
	Text     string
	Strategy Strategy
	Notice   string
	Attempts []Attempt
}

// Options configures one cascade run.
type Options struct {
	// Text is the repaired diagram the cascade starts from.
	Text string

	// Preserved, when set, is the orphan-preserving repair variant. It is
	// tried before Text at the first strategy, so content survives whenever
	// the probe accepts it.
	Preserved string

	Grammar diagram.Grammar
	Probe   Probe
	Library *diagram.Library
	Logger  *log.Logger
}

// Run tries each strategy in order until the probe accepts one, falling back
// to the library entry for the grammar. It returns after at most five
// strategies and never returns an error.
func Run(ctx context.Context, opts Options) *Result {
	lib := opts.Library
	if lib == nil {
		lib = diagram.DefaultLibrary()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	res := &Result{}

	try := func(s Strategy, text string) bool {
		err := check(ctx, opts.Probe, text)
		res.Attempts = append(res.Attempts, Attempt{Strategy: s, Text: text, Err: err})
		if err != nil {
			logger.Debug("render attempt failed", "strategy", s, "err", err)
			return false
		}
		res.Text = text
		res.Strategy = s
		res.Notice = s.Notice()
		return true
	}

	if opts.Preserved != "" && opts.Preserved != opts.Text {
		if try(StrategyAsRepaired, opts.Preserved) {
			return res
		}
	}
	if try(StrategyAsRepaired, opts.Text) {
		return res
	}

	stripped := StripStyling(opts.Text, opts.Grammar)
	if try(StrategyStripStyling, stripped) {
		return res
	}

	inline := StripInlineStyles(stripped)
	if try(StrategyStripInlineStyles, inline) {
		return res
	}

	if try(StrategySimplifyLabels, SimplifyLabels(inline)) {
		return res
	}

	// The fallback entries are constants the renderer is known to accept;
	// probing them would only let a broken probe break the guarantee.
	res.Text = lib.Fallback(opts.Grammar)
	res.Strategy = StrategyFallback
	res.Notice = StrategyFallback.Notice()
	res.Attempts = append(res.Attempts, Attempt{Strategy: StrategyFallback, Text: res.Text})
	return res
}

// check runs the probe, treating a nil probe as accept-everything.
func check(ctx context.Context, p Probe, text string) error {
	if p == nil {
		return nil
	}
	return p.Check(ctx, text)
}
