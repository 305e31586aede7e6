package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/diagramtools/mermaidfix/pkg/cache"
	"github.com/diagramtools/mermaidfix/pkg/cascade"
	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/probe"
	"github.com/diagramtools/mermaidfix/pkg/quality"
	"github.com/diagramtools/mermaidfix/pkg/repair"
)

// Runner executes the sanitization pipeline with caching. It is stateless
// apart from its collaborators; every run builds its own repair state, so one
// Runner serves concurrent callers.
type Runner struct {
	Engine  *repair.Engine
	Cache   cache.Cache
	Probe   cascade.Probe
	Library *diagram.Library
	Logger  *log.Logger

	// CacheScope namespaces cache keys. Runs probed against different
	// renderers must not share entries, so callers set this to something
	// identifying the probe (such as the renderer command name).
	CacheScope string

	// TTL for cached results; DefaultCacheTTL when zero.
	TTL time.Duration
}

// NewRunner creates a runner. Nil collaborators get working defaults: a
// default-config engine, a disabled cache, the built-in lenient probe, and
// the standard fallback library.
func NewRunner(c cache.Cache, p cascade.Probe, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if p == nil {
		p = probe.Lenient{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Engine:  repair.New(repair.DefaultConfig()),
		Cache:   c,
		Probe:   p,
		Library: diagram.DefaultLibrary(),
		Logger:  logger,
	}
}

// cachedResult is the cache payload for one run. Only the replayable outcome
// is stored; repair records and quality reports describe a run that actually
// executed.
type cachedResult struct {
	Text     string           `json:"text"`
	Notice   string           `json:"notice,omitempty"`
	Grammar  diagram.Grammar  `json:"grammar"`
	Strategy cascade.Strategy `json:"strategy"`
}

// Run executes classify → repair → validate → cascade for one diagram. It
// never returns an error: every input, including empty or binary garbage,
// resolves to renderable text.
func (r *Runner) Run(ctx context.Context, opts Options) *Result {
	start := time.Now()
	id := uuid.NewString()
	logger := r.Logger.With("invocation", id)

	g := diagram.Classify(opts.Text, opts.source().Hint())
	key := cache.Key(r.CacheScope, string(g), opts.Text)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached cachedResult
			if err := json.Unmarshal(data, &cached); err == nil {
				logger.Debug("cache hit", "grammar", cached.Grammar)
				return &Result{
					Text:     cached.Text,
					Notice:   cached.Notice,
					Grammar:  cached.Grammar,
					Strategy: cached.Strategy,
					CacheHit: true,
					Telemetry: Telemetry{
						InvocationID:  id,
						Grammar:       cached.Grammar,
						StrategyIndex: int(cached.Strategy),
						Duration:      time.Since(start),
					},
				}
			}
		}
	}

	repaired, records := r.Engine.Repair(opts.Text, g)
	report := quality.Validate(opts.Text, repaired, g, records)

	logger.Debug("repaired diagram",
		"grammar", g,
		"records", len(records),
		"removalRatio", report.RemovalRatio)

	// When repair stripped too much, produce an orphan-preserving variant
	// and let the cascade try it first. Content wins over correctness
	// whenever the probe still accepts the result.
	preserved := ""
	if report.OverReach() {
		logger.Warn("repair removed a suspicious share of the diagram, retrying with preservation",
			"reason", report.AnomalyReason)
		preserved, _ = r.Engine.RepairWithOptions(opts.Text, g, repair.Options{KeepOrphans: true})
	}

	cres := cascade.Run(ctx, cascade.Options{
		Text:      repaired,
		Preserved: preserved,
		Grammar:   g,
		Probe:     r.Probe,
		Library:   r.Library,
		Logger:    logger,
	})

	res := &Result{
		Text:     cres.Text,
		Notice:   cres.Notice,
		Grammar:  g,
		Strategy: cres.Strategy,
		Records:  records,
		Report:   report,
		Telemetry: Telemetry{
			InvocationID:  id,
			Grammar:       g,
			RepairCount:   len(records),
			RemovalRatio:  report.RemovalRatio,
			StrategyIndex: int(cres.Strategy),
			Duration:      time.Since(start),
		},
	}

	if data, err := json.Marshal(cachedResult{
		Text:     res.Text,
		Notice:   res.Notice,
		Grammar:  res.Grammar,
		Strategy: res.Strategy,
	}); err == nil {
		ttl := r.TTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			logger.Warn("cache write failed", "err", err)
		}
	}

	logger.Info("sanitized diagram",
		"grammar", g,
		"strategy", cres.Strategy,
		"repairs", len(records),
		"duration", res.Telemetry.Duration)

	return res
}
