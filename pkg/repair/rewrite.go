package repair

import (
	"regexp"
	"strings"
)

var (
	// ["..."] labels; escaped characters are consumed as a unit so a label
	// with \" inside is matched to its real closing quote, and two labels on
	// one line are matched separately.
	bracketLabelRe = regexp.MustCompile(`\["((?:\\.|[^"])*)"\]`)

	// class Name:::styleName, a flowchart-only construct that appears in
	// class diagrams when the model mixes grammars.
	tripleColonRe = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*):::([A-Za-z_][A-Za-z0-9_]*)\s*$`)

	// #-prefixed hex digit runs in style lines.
	hexRunRe = regexp.MustCompile(`#([0-9a-fA-F]*)`)

	// Hyphenated tokens, candidates for truncated CSS property names. The
	// trailing segment may be empty so "stroke-" is caught too.
	hyphenTokenRe = regexp.MustCompile(`[a-zA-Z]+(?:-[a-zA-Z]*)+`)

	// Dangling operator fragments at end of line: unterminated arrows,
	// dotted/thick links, and x/o edge caps with no target.
	danglingOpRe = regexp.MustCompile(`[-=.]{2,}[>ox]?$`)

	// Leftover ER cardinality markers with no relation behind them.
	danglingCardRe = regexp.MustCompile(`(\|\||\|o|\}o|\}\|)$`)
)

// fixQuoting repairs escaped quotes and backslashes inside bracketed labels:
// backslashes are stripped and interior double quotes become single quotes.
func fixQuoting(lines []workLine, records *[]Record) []workLine {
	for i, line := range lines {
		fixed := bracketLabelRe.ReplaceAllStringFunc(line.raw, func(m string) string {
			inner := bracketLabelRe.FindStringSubmatch(m)[1]
			inner = strings.ReplaceAll(inner, `\`, "")
			inner = strings.ReplaceAll(inner, `"`, `'`)
			return `["` + inner + `"]`
		})
		if fixed != line.raw {
			*records = append(*records, Record{
				LineNo:       line.no,
				OriginalText: line.orig,
				Reason:       ReasonCorruptedQuoting,
				Action:       ActionRewritten,
			})
			lines[i].raw = fixed
		}
	}
	return lines
}

// rewriteTripleColon converts class Name:::style into class Name style.
func rewriteTripleColon(lines []workLine, records *[]Record) []workLine {
	for i, line := range lines {
		m := tripleColonRe.FindStringSubmatch(line.raw)
		if m == nil {
			continue
		}
		lines[i].raw = m[1] + "class " + m[2] + " " + m[3]
		*records = append(*records, Record{
			LineNo:       line.no,
			OriginalText: line.orig,
			Reason:       ReasonInvalidInlineStyle,
			Action:       ActionRewritten,
		})
	}
	return lines
}

// splitClassAssignments expands class A,B,C style into one assignment per
// identifier, preserving order and indentation.
func splitClassAssignments(lines []workLine, records *[]Record) []workLine {
	out := make([]workLine, 0, len(lines))
	for _, line := range lines {
		t := strings.TrimSpace(line.raw)
		m := classAssignRe.FindStringSubmatch(t)
		if m == nil || !strings.Contains(m[1], ",") {
			out = append(out, line)
			continue
		}

		indent := line.raw[:len(line.raw)-len(strings.TrimLeft(line.raw, " \t"))]
		for _, name := range strings.Split(m[1], ",") {
			out = append(out, workLine{
				no:   line.no,
				raw:  indent + "class " + strings.TrimSpace(name) + " " + m[2],
				orig: line.orig,
			})
		}
		*records = append(*records, Record{
			LineNo:       line.no,
			OriginalText: line.orig,
			Reason:       ReasonBatchedClassAssign,
			Action:       ActionSplit,
		})
	}
	return out
}

// dropIncompleteColors removes classDef/style lines whose hex colors are not
// exactly the required length. The renderer dialect accepts only full-length
// hex in style contexts, and a wrong-length run usually means the model
// truncated mid-color.
func (e *Engine) dropIncompleteColors(lines []workLine, records *[]Record) []workLine {
	out := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line.raw)
		if !styleDefRe.MatchString(t) {
			out = append(out, line)
			continue
		}

		bad := false
		for _, m := range hexRunRe.FindAllStringSubmatch(t, -1) {
			if len(m[1]) != e.cfg.RequiredHexLength {
				bad = true
				break
			}
		}
		if !bad {
			out = append(out, line)
			continue
		}

		*records = append(*records, Record{
			LineNo:       line.no,
			OriginalText: line.orig,
			Reason:       ReasonIncompleteColor,
			Action:       ActionRemoved,
		})
	}
	return out
}

// dropTruncatedProperties removes lines carrying a cut-off CSS property name:
// a hyphenated token that is a proper prefix of a whitelisted property.
func (e *Engine) dropTruncatedProperties(lines []workLine, records *[]Record) []workLine {
	out := lines[:0]
	for _, line := range lines {
		if !e.hasTruncatedProperty(line.raw) {
			out = append(out, line)
			continue
		}
		*records = append(*records, Record{
			LineNo:       line.no,
			OriginalText: line.orig,
			Reason:       ReasonTruncatedProperty,
			Action:       ActionRemoved,
		})
	}
	return out
}

func (e *Engine) hasTruncatedProperty(raw string) bool {
	for _, token := range hyphenTokenRe.FindAllString(raw, -1) {
		token = strings.ToLower(token)
		if e.props[token] {
			continue
		}
		for _, p := range e.cfg.StyleProperties {
			if strings.HasPrefix(p, token) && token != p {
				return true
			}
		}
	}
	return false
}

// stripDanglingTail removes dangling tokens from the end of the text:
// unterminated arrows, trailing commas/colons, and unmatched opening
// delimiters. A line reduced to nothing is removed and the check repeats on
// the new final line.
func stripDanglingTail(lines []workLine, records *[]Record) []workLine {
	for {
		i := lastNonEmpty(lines)
		if i < 0 {
			return lines
		}

		stripped, changed := trimDangling(lines[i].raw)
		if !changed {
			return lines
		}

		if strings.TrimSpace(stripped) == "" {
			*records = append(*records, Record{
				LineNo:       lines[i].no,
				OriginalText: lines[i].orig,
				Reason:       ReasonDanglingTail,
				Action:       ActionRemoved,
			})
			lines = append(lines[:i], lines[i+1:]...)
			continue
		}

		*records = append(*records, Record{
			LineNo:       lines[i].no,
			OriginalText: lines[i].orig,
			Reason:       ReasonDanglingTail,
			Action:       ActionRewritten,
		})
		lines[i].raw = stripped
		return lines
	}
}

func lastNonEmpty(lines []workLine) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i].raw) != "" {
			return i
		}
	}
	return -1
}

// trimDangling strips dangling tokens from a single line. It reports whether
// anything was stripped; pure trailing whitespace is left alone so untouched
// input stays byte-identical.
func trimDangling(s string) (string, bool) {
	cur := s
	changed := false
	for {
		t := strings.TrimRight(cur, " \t\r")
		if t == "" {
			break
		}
		next, ok := stripOneDangler(t)
		if !ok {
			break
		}
		cur = next
		changed = true
	}
	if !changed {
		return s, false
	}
	return strings.TrimRight(cur, " \t\r"), true
}

// stripOneDangler removes a single dangling token from the end of t, which
// must already be right-trimmed.
func stripOneDangler(t string) (string, bool) {
	switch t[len(t)-1] {
	case ',', ':':
		return t[:len(t)-1], true
	}

	if m := danglingOpRe.FindString(t); m != "" {
		return t[:len(t)-len(m)], true
	}
	if m := danglingCardRe.FindString(t); m != "" {
		return t[:len(t)-len(m)], true
	}

	if idx := unmatchedOpenerIndex(t); idx >= 0 {
		return t[:idx], true
	}
	return t, false
}

// unmatchedOpenerIndex returns the index of the last opening delimiter that
// is never closed within t, or -1. Delimiters inside double quotes are
// ignored, as is a brace that forms an ER cardinality marker (o{ or |{).
func unmatchedOpenerIndex(t string) int {
	var stack []int
	inQuote := false
	for i, r := range t {
		switch r {
		case '"':
			inQuote = !inQuote
		case '[', '(':
			if !inQuote {
				stack = append(stack, i)
			}
		case '{':
			if inQuote {
				continue
			}
			if i > 0 && (t[i-1] == 'o' || t[i-1] == '|') {
				continue
			}
			stack = append(stack, i)
		case ']', ')', '}':
			if !inQuote && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return -1
	}
	return stack[len(stack)-1]
}

// dropUnbalanced removes flowchart lines with mismatched bracket counts.
// Lines recognized as relationships are exempt; class/ER grammars never get
// this check because their delimiters legitimately span multiple lines.
func dropUnbalanced(lines []workLine, records *[]Record) []workLine {
	out := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line.raw)
		if t == "" || flowRelRe.MatchString(t) || !unbalancedDelims(t) {
			out = append(out, line)
			continue
		}
		*records = append(*records, Record{
			LineNo:       line.no,
			OriginalText: line.orig,
			Reason:       ReasonUnbalancedDelimiters,
			Action:       ActionRemoved,
		})
	}
	return out
}

// unbalancedDelims reports whether any delimiter pair has mismatched counts
// outside quoted segments.
func unbalancedDelims(t string) bool {
	var sq, rd, cr int
	inQuote := false
	for _, r := range t {
		switch r {
		case '"':
			inQuote = !inQuote
		case '[':
			if !inQuote {
				sq++
			}
		case ']':
			if !inQuote {
				sq--
			}
		case '(':
			if !inQuote {
				rd++
			}
		case ')':
			if !inQuote {
				rd--
			}
		case '{':
			if !inQuote {
				cr++
			}
		case '}':
			if !inQuote {
				cr--
			}
		}
	}
	return sq != 0 || rd != 0 || cr != 0
}
