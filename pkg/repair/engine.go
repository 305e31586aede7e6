// Package repair implements the structural repair engine for LLM-generated
// diagram text.
//
// The engine is a pure function of (text, grammar): it classifies every line
// once, applies a fixed set of targeted rewrites for the failure modes LLM
// output exhibits in practice (orphaned members, comma-batched style
// assignments, truncated colors and properties, corrupted quoting, dangling
// trailing tokens, unbalanced flowchart delimiters), and returns the repaired
// text together with an append-only audit record of every edit.
//
// Identical input always yields identical output and identical records, and
// repairing already-valid text returns it byte-identical with no records.
// The engine holds no per-call state on itself, so one Engine can serve
// concurrent invocations.
//
// The property whitelist and required hex length are renderer-version
// specific and therefore injected via Config rather than hardcoded; see
// DefaultConfig for the values pinned to the current renderer.
package repair

import (
	"sort"
	"strings"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

// Config carries the renderer-specific repair policy.
type Config struct {
	// StyleProperties is the canonical CSS property whitelist. A hyphenated
	// token that is a proper prefix of one of these (e.g. "stroke-wid") is
	// treated as a truncated property and its line removed.
	StyleProperties []string

	// RequiredHexLength is the exact number of hex digits a #color must have
	// in classDef/style lines. The target renderer rejects short forms.
	RequiredHexLength int
}

// DefaultConfig returns the repair policy pinned to the current renderer
// dialect: 6-digit hex colors and the stock CSS property set.
func DefaultConfig() Config {
	return Config{
		StyleProperties: []string{
			"border-radius",
			"fill-opacity",
			"font-family",
			"font-size",
			"font-style",
			"font-weight",
			"stroke-dasharray",
			"stroke-opacity",
			"stroke-width",
			"text-align",
		},
		RequiredHexLength: 6,
	}
}

// Options control a single repair invocation.
type Options struct {
	// KeepOrphans disables removal of orphaned member/field lines. The
	// pipeline sets this on its over-reach retry, trading possible parse
	// failure for content preservation.
	KeepOrphans bool
}

// Engine applies structural repairs. Construct with New; the zero value uses
// an empty whitelist and rejects every hex length.
type Engine struct {
	cfg   Config
	props map[string]bool
}

// New creates an engine with the given policy. Zero-valued config fields are
// filled from DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if len(cfg.StyleProperties) == 0 {
		cfg.StyleProperties = def.StyleProperties
	}
	if cfg.RequiredHexLength == 0 {
		cfg.RequiredHexLength = def.RequiredHexLength
	}

	props := make(map[string]bool, len(cfg.StyleProperties))
	for _, p := range cfg.StyleProperties {
		props[strings.ToLower(p)] = true
	}
	// Keep the slice sorted so output ordering never depends on config order.
	sorted := make([]string, 0, len(props))
	for p := range props {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	cfg.StyleProperties = sorted

	return &Engine{cfg: cfg, props: props}
}

// workLine tracks a line through the repair phases.
type workLine struct {
	no   int    // 1-based line number in the original input
	raw  string // current text, possibly rewritten
	orig string // original text, for audit records
}

// Repair fixes text under the default options.
func (e *Engine) Repair(text string, g diagram.Grammar) (string, []Record) {
	return e.RepairWithOptions(text, g, Options{})
}

// RepairWithOptions fixes text and returns the repaired text plus the audit
// records, in application order. The phases run in a fixed sequence: quoting
// repair, grammar-specific rewrites, style-line removal, dangling-tail
// stripping, flowchart delimiter checks, and finally a single classification
// pass driving orphan removal.
func (e *Engine) RepairWithOptions(text string, g diagram.Grammar, opts Options) (string, []Record) {
	rawLines := strings.Split(text, "\n")
	lines := make([]workLine, len(rawLines))
	for i, raw := range rawLines {
		lines[i] = workLine{no: i + 1, raw: raw, orig: raw}
	}

	var records []Record

	lines = fixQuoting(lines, &records)
	if g == diagram.ClassDiagram {
		lines = rewriteTripleColon(lines, &records)
	}
	if g == diagram.ClassDiagram || g == diagram.Flowchart {
		lines = splitClassAssignments(lines, &records)
	}
	lines = e.dropIncompleteColors(lines, &records)
	lines = e.dropTruncatedProperties(lines, &records)
	lines = stripDanglingTail(lines, &records)
	if g == diagram.Flowchart {
		lines = dropUnbalanced(lines, &records)
	}

	// Single classification pass; orphan removal and every later consumer
	// work from the same classified list.
	if (g == diagram.ClassDiagram || g == diagram.ErDiagram) && !opts.KeepOrphans {
		lines = removeOrphans(lines, g, &records)
	}

	return joinLines(lines), records
}

// removeOrphans drops member/field lines that occur at block depth 0 in a
// single forward pass.
func removeOrphans(lines []workLine, g diagram.Grammar, records *[]Record) []workLine {
	classified := classifyWork(lines, g)

	var state BlockState
	kept := lines[:0]
	for i, line := range lines {
		cl := classified[i]
		if (cl.Kind == KindMember || cl.Kind == KindField) && state.Depth == 0 {
			*records = append(*records, Record{
				LineNo:       line.no,
				OriginalText: line.orig,
				Reason:       ReasonOrphanedOutsideBlock,
				Action:       ActionRemoved,
			})
			continue
		}
		state.Apply(cl)
		kept = append(kept, line)
	}
	return kept
}

// classifyWork classifies work lines in place of their current text.
func classifyWork(lines []workLine, g diagram.Grammar) []ClassifiedLine {
	raws := make([]string, len(lines))
	for i, line := range lines {
		raws[i] = line.raw
	}
	classified := make([]ClassifiedLine, len(lines))
	for i, line := range lines {
		classified[i] = ClassifiedLine{
			LineNo: line.no,
			Raw:    line.raw,
			Kind:   classifyLine(line.raw, nextNonEmpty(raws, i), g),
		}
	}
	return classified
}

// joinLines reassembles the text. Join of an unmodified split is the
// identity, which is what makes untouched input byte-identical on output.
func joinLines(lines []workLine) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = line.raw
	}
	return strings.Join(parts, "\n")
}
