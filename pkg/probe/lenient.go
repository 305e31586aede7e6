package probe

import (
	"context"
	"strings"

	"github.com/diagramtools/mermaidfix/pkg/errors"
)

// Lenient is a built-in probe used when no external renderer is configured.
// It applies cheap structural checks only: a recognizable header and balanced
// delimiters. It accepts anything a real renderer would accept, plus some
// things it would not; the point is catching the gross breakage the repair
// engine targets without a node toolchain in the loop.
type Lenient struct{}

// Check returns nil when the text passes the structural checks.
func (Lenient) Check(_ context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.New(errors.ErrCodeProbeFailed, "diagram is empty")
	}
	if !hasHeader(trimmed) {
		return errors.New(errors.ErrCodeProbeFailed, "no diagram header found")
	}
	if name := unbalancedDelimiter(text); name != "" {
		return errors.New(errors.ErrCodeProbeFailed, "unbalanced %s", name)
	}
	return nil
}

var headerPrefixes = []string{
	"graph",
	"flowchart",
	"classdiagram",
	"erdiagram",
	"entityrelationshipdiagram",
}

// hasHeader reports whether the first non-empty line declares a supported
// diagram kind.
func hasHeader(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		t := strings.ToLower(strings.TrimSpace(line))
		if t == "" {
			continue
		}
		for _, p := range headerPrefixes {
			if strings.HasPrefix(t, p) {
				return true
			}
		}
		return false
	}
	return false
}

// unbalancedDelimiter counts bracket pairs across the whole text and returns
// the name of the first kind whose count does not balance, or "". Quoted
// label content is skipped, as are the braces of ER cardinality tokens such
// as o{ and }|, which close nothing.
func unbalancedDelimiter(text string) string {
	var square, paren, brace int
	inQuote := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch c {
		case '[':
			square++
		case ']':
			square--
		case '(':
			paren++
		case ')':
			paren--
		case '{':
			if i > 0 && (text[i-1] == 'o' || text[i-1] == '|') {
				continue
			}
			brace++
		case '}':
			if i+1 < len(text) && (text[i+1] == 'o' || text[i+1] == '|') {
				continue
			}
			brace--
		}
	}

	switch {
	case square != 0:
		return "square brackets"
	case paren != 0:
		return "parentheses"
	case brace != 0:
		return "braces"
	}
	return ""
}
