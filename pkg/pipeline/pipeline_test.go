package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/diagramtools/mermaidfix/pkg/cache"
	"github.com/diagramtools/mermaidfix/pkg/cascade"
	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

type probeFunc func(ctx context.Context, text string) error

func (f probeFunc) Check(ctx context.Context, text string) error { return f(ctx, text) }

func acceptAll(context.Context, string) error { return nil }
func rejectAll(context.Context, string) error { return errors.New("parse error") }

func TestRunCleanFlowchart(t *testing.T) {
	text := "graph TD\n    A[Start] --> B[Process]\n    B --> C[End]"
	runner := NewRunner(nil, probeFunc(acceptAll), nil)

	res := runner.Run(context.Background(), Options{Text: text, DeclaredType: "hld"})

	if res.Text != text {
		t.Errorf("Text = %q, want input unchanged", res.Text)
	}
	if res.Strategy != cascade.StrategyAsRepaired {
		t.Errorf("Strategy = %s", res.Strategy)
	}
	if len(res.Records) != 0 {
		t.Errorf("Records = %v, want none", res.Records)
	}
	if res.Notice != "" {
		t.Errorf("Notice = %q, want empty", res.Notice)
	}
	if res.Grammar != diagram.Flowchart {
		t.Errorf("Grammar = %s", res.Grammar)
	}
}

func TestRunDegenerateErDiagramFallsBack(t *testing.T) {
	text := "erDiagram\n    USER {\n    }\n    ORDER {\n    }"
	runner := NewRunner(nil, probeFunc(rejectAll), nil)

	res := runner.Run(context.Background(), Options{Text: text, DeclaredType: "dbd"})

	if res.Report == nil || !res.Report.AnomalyFlag {
		t.Error("degenerate input not flagged by quality report")
	}
	if res.Strategy != cascade.StrategyFallback {
		t.Errorf("Strategy = %s", res.Strategy)
	}
	if res.Notice != "Using fallback diagram" {
		t.Errorf("Notice = %q", res.Notice)
	}
	if want := diagram.DefaultLibrary().Fallback(diagram.ErDiagram); res.Text != want {
		t.Errorf("Text = %q, want fallback entry", res.Text)
	}
}

func TestRunOverReachRetriesWithPreservation(t *testing.T) {
	// Every member is orphaned; aggressive repair strips them all, which
	// trips the over-reach retry. The probe accepts everything, so the
	// preserving variant must win.
	text := "classDiagram\n" +
		"class User {\n" +
		"}\n" +
		"+name string\n" +
		"+email string"
	runner := NewRunner(nil, probeFunc(acceptAll), nil)

	res := runner.Run(context.Background(), Options{Text: text, DeclaredType: "lld"})

	if !res.Report.OverReach() {
		t.Fatal("over-reach not detected")
	}
	if !strings.Contains(res.Text, "+name string") || !strings.Contains(res.Text, "+email string") {
		t.Errorf("members lost despite preservation retry:\n%s", res.Text)
	}
	if res.Strategy != cascade.StrategyAsRepaired {
		t.Errorf("Strategy = %s", res.Strategy)
	}
}

func TestRunOverReachFallsBackWhenPreservationRejected(t *testing.T) {
	text := "classDiagram\n" +
		"class User {\n" +
		"}\n" +
		"+name string"
	// Reject the preserving variant, accept the aggressive repair.
	runner := NewRunner(nil, probeFunc(func(_ context.Context, text string) error {
		if strings.Contains(text, "+name string") {
			return errors.New("orphaned member")
		}
		return nil
	}), nil)

	res := runner.Run(context.Background(), Options{Text: text, DeclaredType: "lld"})

	if strings.Contains(res.Text, "+name string") {
		t.Errorf("rejected variant returned:\n%s", res.Text)
	}
	if res.Strategy != cascade.StrategyAsRepaired {
		t.Errorf("Strategy = %s", res.Strategy)
	}
}

func TestRunCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	probeCalls := 0
	runner := NewRunner(fc, probeFunc(func(context.Context, string) error {
		probeCalls++
		return nil
	}), nil)
	ctx := context.Background()
	text := "graph TD\n    A --> B"

	first := runner.Run(ctx, Options{Text: text})
	if first.CacheHit {
		t.Fatal("first run reported a cache hit")
	}

	second := runner.Run(ctx, Options{Text: text})
	if !second.CacheHit {
		t.Fatal("second run missed the cache")
	}
	if second.Text != first.Text || second.Strategy != first.Strategy {
		t.Errorf("cached result differs: %q vs %q", second.Text, first.Text)
	}
	if probeCalls != 1 {
		t.Errorf("probe called %d times, want 1", probeCalls)
	}

	third := runner.Run(ctx, Options{Text: text, Refresh: true})
	if third.CacheHit {
		t.Error("Refresh run hit the cache")
	}
}

func TestRunCacheKeyIncludesGrammar(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, probeFunc(acceptAll), nil)
	ctx := context.Background()

	// Same text classified under different hints must not share entries.
	text := "A --> B"
	asFlow := runner.Run(ctx, Options{Text: text, DeclaredType: "hld"})
	asClass := runner.Run(ctx, Options{Text: text, Grammar: diagram.ClassDiagram})

	if asFlow.Grammar == asClass.Grammar {
		t.Skip("classifier resolved both to the same grammar")
	}
	if asClass.CacheHit {
		t.Error("different grammar reused cache entry")
	}
}

func TestRunTelemetry(t *testing.T) {
	runner := NewRunner(nil, probeFunc(acceptAll), nil)
	ctx := context.Background()

	a := runner.Run(ctx, Options{Text: "graph TD\n    A --> B"})
	b := runner.Run(ctx, Options{Text: "graph TD\n    A --> B"})

	if a.Telemetry.InvocationID == "" {
		t.Error("empty invocation id")
	}
	if a.Telemetry.InvocationID == b.Telemetry.InvocationID {
		t.Error("invocation ids not unique")
	}
	if a.Telemetry.Grammar != diagram.Flowchart {
		t.Errorf("telemetry grammar = %s", a.Telemetry.Grammar)
	}
	if a.Telemetry.StrategyIndex != 1 {
		t.Errorf("StrategyIndex = %d", a.Telemetry.StrategyIndex)
	}
}

func TestRunNeverFailsOnGarbage(t *testing.T) {
	runner := NewRunner(nil, probeFunc(rejectAll), nil)
	ctx := context.Background()

	for _, in := range []string{"", "\x00\xff\xfe", strings.Repeat("}", 100)} {
		res := runner.Run(ctx, Options{Text: in})
		if res.Text == "" {
			t.Errorf("input %q produced empty result", in)
		}
		if res.Strategy != cascade.StrategyFallback {
			t.Errorf("input %q: strategy = %s", in, res.Strategy)
		}
	}
}

func TestRunConcurrencyIsolation(t *testing.T) {
	runner := NewRunner(nil, probeFunc(acceptAll), nil)
	ctx := context.Background()

	optsA := Options{Text: "classDiagram\nclass User {\n  +name string\n}", DeclaredType: "lld"}
	optsB := Options{Text: "erDiagram\nUSER {\n  uuid id\n}", DeclaredType: "dbd"}

	seqA := runner.Run(ctx, optsA)
	seqB := runner.Run(ctx, optsB)

	const iterations = 50
	var wg sync.WaitGroup
	errs := make(chan string, iterations*2)
	for i := 0; i < iterations; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if res := runner.Run(ctx, optsA); res.Text != seqA.Text {
				errs <- "diagram A diverged under concurrency"
			}
		}()
		go func() {
			defer wg.Done()
			if res := runner.Run(ctx, optsB); res.Text != seqB.Text {
				errs <- "diagram B diverged under concurrency"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
