package cascade

import (
	"regexp"
	"strings"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/repair"
)

var (
	tripleColonSuffixRe = regexp.MustCompile(`:::[A-Za-z_][A-Za-z0-9_]*`)

	// Inline style fragments embedded in node or edge text. stroke-width
	// precedes stroke in the alternation so the longer name wins.
	inlineStyleRe = regexp.MustCompile(`[,;]?\s*(fill|stroke-width|stroke|color|font-[a-z]+)\s*:\s*[#A-Za-z0-9.%]+`)

	bracketLabelRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	quotedLabelRe  = regexp.MustCompile(`"[^"]*"`)
	labelJunkRe    = regexp.MustCompile(`[^A-Za-z0-9 ]+`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
)

// StripStyling removes every style-definition and class-assignment line and
// every :::styleName suffix, regardless of whether they were valid.
func StripStyling(text string, g diagram.Grammar) string {
	classified := repair.ClassifyLines(text, g)
	kept := make([]string, 0, len(classified))
	for _, line := range classified {
		if line.Kind == repair.KindStyleDef || line.Kind == repair.KindClassAssign {
			continue
		}
		kept = append(kept, tripleColonSuffixRe.ReplaceAllString(line.Raw, ""))
	}
	return strings.Join(kept, "\n")
}

// StripInlineStyles removes style property fragments that ended up inside
// node or edge text instead of dedicated style lines.
func StripInlineStyles(text string) string {
	return inlineStyleRe.ReplaceAllString(text, "")
}

// SimplifyLabels reduces every bracketed or quoted label to bare words:
// punctuation stripped, whitespace collapsed, empty labels replaced with a
// placeholder.
func SimplifyLabels(text string) string {
	out := bracketLabelRe.ReplaceAllStringFunc(text, func(m string) string {
		return "[" + simplifyLabel(m[1:len(m)-1]) + "]"
	})
	return quotedLabelRe.ReplaceAllStringFunc(out, func(m string) string {
		return `"` + simplifyLabel(m[1:len(m)-1]) + `"`
	})
}

func simplifyLabel(label string) string {
	s := labelJunkRe.ReplaceAllString(label, " ")
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return "Item"
	}
	return s
}
