// Package diagram defines the diagram grammars mermaidfix understands and the
// pieces of the pipeline that deal with them directly: classifying raw text
// into a grammar and supplying pre-verified fallback diagrams.
//
// Three Mermaid dialects are supported:
//   - Flowchart (graph/flowchart headers)
//   - ClassDiagram (classDiagram header)
//   - ErDiagram (erDiagram header)
//
// Upstream generation agents declare a document type (hld, lld, dbd) which
// maps onto a grammar, but the classifier trusts the text itself over the
// declared type: generated output is more reliable than a stale UI selection.
package diagram

import (
	"fmt"
	"strings"
)

// Grammar identifies one of the supported diagram dialects.
type Grammar string

// Supported grammars. The values match the Mermaid header keywords so they
// can be logged and cached without translation.
const (
	Flowchart    Grammar = "flowchart"
	ClassDiagram Grammar = "classDiagram"
	ErDiagram    Grammar = "erDiagram"
)

// Declared document types produced by the diagram-generation agent.
const (
	TypeHLD = "hld" // high-level design → flowchart
	TypeLLD = "lld" // low-level design → class diagram
	TypeDBD = "dbd" // database design → ER diagram
)

// ValidGrammars is the set of supported grammars.
var ValidGrammars = map[Grammar]bool{
	Flowchart:    true,
	ClassDiagram: true,
	ErDiagram:    true,
}

// ValidateGrammar checks that a grammar is supported.
func ValidateGrammar(g Grammar) error {
	if !ValidGrammars[g] {
		return fmt.Errorf("invalid grammar: %q (must be one of: flowchart, classDiagram, erDiagram)", g)
	}
	return nil
}

// FromDeclaredType maps a declared document type to its grammar.
// The second return value reports whether the type was recognized.
func FromDeclaredType(declaredType string) (Grammar, bool) {
	switch strings.ToLower(strings.TrimSpace(declaredType)) {
	case TypeHLD:
		return Flowchart, true
	case TypeLLD:
		return ClassDiagram, true
	case TypeDBD:
		return ErDiagram, true
	default:
		return Flowchart, false
	}
}

// Source is the caller-constructed input to the pipeline: raw generated text
// plus whatever type information the caller has.
type Source struct {
	// Text is the raw diagram source as produced by the generator.
	Text string

	// DeclaredType is the document type declared upstream (hld, lld, dbd).
	// May be empty.
	DeclaredType string

	// Grammar, when set, overrides the declared-type mapping as the
	// classification hint. Content keywords still win over both.
	Grammar Grammar
}

// Hint resolves the classification hint for this source: an explicit grammar
// if set and valid, otherwise the declared-type mapping, otherwise empty.
func (s Source) Hint() Grammar {
	if ValidGrammars[s.Grammar] {
		return s.Grammar
	}
	if g, ok := FromDeclaredType(s.DeclaredType); ok {
		return g
	}
	return ""
}
