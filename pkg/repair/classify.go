package repair

import (
	"regexp"
	"strings"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

// LineKind is the structural role of a single line within its grammar.
type LineKind int

// Line kinds produced by classification.
const (
	KindOther LineKind = iota
	KindBlockOpen
	KindBlockClose
	KindMember
	KindField
	KindStyleDef
	KindClassAssign
	KindRelationship
)

// String returns the kind name for logs and test failures.
func (k LineKind) String() string {
	switch k {
	case KindBlockOpen:
		return "BlockOpen"
	case KindBlockClose:
		return "BlockClose"
	case KindMember:
		return "Member"
	case KindField:
		return "Field"
	case KindStyleDef:
		return "StyleDef"
	case KindClassAssign:
		return "ClassAssign"
	case KindRelationship:
		return "Relationship"
	default:
		return "Other"
	}
}

// ClassifiedLine pairs a line with its structural role. Classification is a
// single pass over the whole text; every consumer of line roles (orphan
// removal, quality statistics) works from the same classified list.
type ClassifiedLine struct {
	LineNo int
	Raw    string
	Kind   LineKind
}

var (
	// Block openers. A block is NAME { on one line, or a bare NAME line
	// immediately followed by a line that is exactly {.
	classBlockOpenRe  = regexp.MustCompile(`^class\s+[A-Za-z_][A-Za-z0-9_]*\s*\{$`)
	classBareNameRe   = regexp.MustCompile(`^class\s+[A-Za-z_][A-Za-z0-9_]*$`)
	entityBlockOpenRe = regexp.MustCompile(`^[A-Z_][A-Z_0-9]*\s*\{$`)
	entityBareNameRe  = regexp.MustCompile(`^[A-Z_][A-Z_0-9]*$`)

	// Member lines carry a visibility prefix (class diagrams only).
	memberRe = regexp.MustCompile(`^[+\-#~]\w`)

	// Field lines start with a column type (ER diagrams only).
	fieldRe = regexp.MustCompile(`^(uuid|varchar|text|int|float|boolean|timestamp|json|datetime)\s+\w`)

	styleDefRe = regexp.MustCompile(`^(classDef|style)\s`)

	// class A styleName, optionally comma-batched: class A,B,C styleName.
	classAssignRe = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*)\s+([A-Za-z_][A-Za-z0-9_]*)$`)

	// Relationship operators per grammar.
	flowRelRe  = regexp.MustCompile(`(--+>|-\.+->|==+>|---+|--[xo](\s|$))`)
	classRelRe = regexp.MustCompile(`(<\|--|--\|>|<\|\.\.|\.\.\|>|\*--|--\*|o--|--o|\.\.>|<\.\.|\s--\s)`)
	erRelRe    = regexp.MustCompile(`(\|o|\|\||\}o|\}\|)(--|\.\.)(o\||\|\||o\{|\|\{)`)
)

// ClassifyLines classifies every line of text under the given grammar.
func ClassifyLines(text string, g diagram.Grammar) []ClassifiedLine {
	lines := strings.Split(text, "\n")
	classified := make([]ClassifiedLine, len(lines))
	for i, raw := range lines {
		classified[i] = ClassifiedLine{
			LineNo: i + 1,
			Raw:    raw,
			Kind:   classifyLine(raw, nextNonEmpty(lines, i), g),
		}
	}
	return classified
}

// nextNonEmpty returns the trimmed text of the next non-empty line after i.
func nextNonEmpty(lines []string, i int) string {
	for _, line := range lines[i+1:] {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// classifyLine determines the kind of a single line. next is the trimmed
// following non-empty line, needed to recognize bare-name block openers.
func classifyLine(raw, next string, g diagram.Grammar) LineKind {
	t := strings.TrimSpace(raw)
	if t == "" {
		return KindOther
	}

	// A close is a line that is exactly }; a NAME { line is never a close.
	if t == "}" {
		return KindBlockClose
	}

	switch g {
	case diagram.ClassDiagram:
		if classBlockOpenRe.MatchString(t) {
			return KindBlockOpen
		}
		if classBareNameRe.MatchString(t) && next == "{" {
			return KindBlockOpen
		}
		if styleDefRe.MatchString(t) {
			return KindStyleDef
		}
		if classAssignRe.MatchString(t) {
			return KindClassAssign
		}
		if memberRe.MatchString(t) {
			return KindMember
		}
		if classRelRe.MatchString(t) {
			return KindRelationship
		}

	case diagram.ErDiagram:
		if entityBlockOpenRe.MatchString(t) {
			return KindBlockOpen
		}
		if entityBareNameRe.MatchString(t) && next == "{" {
			return KindBlockOpen
		}
		if styleDefRe.MatchString(t) {
			return KindStyleDef
		}
		if fieldRe.MatchString(t) {
			return KindField
		}
		if erRelRe.MatchString(t) {
			return KindRelationship
		}

	default: // Flowchart
		if styleDefRe.MatchString(t) {
			return KindStyleDef
		}
		if classAssignRe.MatchString(t) {
			return KindClassAssign
		}
		if flowRelRe.MatchString(t) {
			return KindRelationship
		}
	}

	return KindOther
}

// BlockState tracks brace nesting during a forward pass. Depth never goes
// negative: a stray close at depth 0 is ignored rather than corrupting later
// tracking. A fresh BlockState is created per repair invocation; it is never
// shared across calls.
type BlockState struct {
	Depth        int
	CurrentBlock string
}

// Apply folds one classified line into the state.
func (s *BlockState) Apply(line ClassifiedLine) {
	switch line.Kind {
	case KindBlockOpen:
		s.Depth++
		s.CurrentBlock = blockName(line.Raw)
	case KindBlockClose:
		if s.Depth > 0 {
			s.Depth--
		}
		if s.Depth == 0 {
			s.CurrentBlock = ""
		}
	}
}

// blockName extracts the block name from a block-open line.
func blockName(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimSuffix(t, "{")
	t = strings.TrimSpace(strings.TrimPrefix(t, "class"))
	return strings.TrimSpace(t)
}
