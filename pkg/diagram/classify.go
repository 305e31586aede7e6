package diagram

import "strings"

// classifyScanLines is how many non-empty lines are inspected for grammar
// keywords before giving up and falling back to the hint.
const classifyScanLines = 10

// Classify determines the grammar of a diagram text.
//
// The first classifyScanLines non-empty lines are scanned case-insensitively
// for grammar keywords. A keyword match wins even when it disagrees with the
// hint. If no keyword is found the hint is used; if the hint is empty or
// invalid the result defaults to Flowchart. Classify never fails.
func Classify(text string, hint Grammar) Grammar {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if trimmed == "" {
			continue
		}

		switch {
		case strings.Contains(trimmed, "classdiagram"):
			return ClassDiagram
		case strings.Contains(trimmed, "erdiagram"),
			strings.Contains(trimmed, "entityrelationshipdiagram"):
			return ErDiagram
		case trimmed == "graph", strings.HasPrefix(trimmed, "graph "),
			trimmed == "flowchart", strings.HasPrefix(trimmed, "flowchart "):
			return Flowchart
		}

		seen++
		if seen >= classifyScanLines {
			break
		}
	}

	if ValidGrammars[hint] {
		return hint
	}
	return Flowchart
}
