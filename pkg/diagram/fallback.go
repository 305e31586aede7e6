package diagram

// Default fallback diagrams, one per grammar. These are the last resort of
// the render cascade and must only use syntax the target renderer is known to
// accept: plain nodes, plain members, no styling, no experimental features.
const (
	fallbackFlowchart = `graph TD
    A[Start] --> B[Process]
    B --> C[End]`

	fallbackClassDiagram = `classDiagram
    class Item {
        +String name
        +describe()
    }`

	fallbackErDiagram = `erDiagram
    ITEM {
        uuid id
        varchar name
    }`
)

// Library holds one guaranteed-renderable diagram per grammar.
//
// The zero value is not usable; construct with DefaultLibrary or NewLibrary.
// A Library is immutable after construction and safe for concurrent use.
type Library struct {
	entries map[Grammar]string
}

// DefaultLibrary returns the built-in fallback library.
func DefaultLibrary() *Library {
	return &Library{entries: map[Grammar]string{
		Flowchart:    fallbackFlowchart,
		ClassDiagram: fallbackClassDiagram,
		ErDiagram:    fallbackErDiagram,
	}}
}

// NewLibrary returns a library with the built-in entries replaced by the
// given overrides. Empty override values keep the built-in entry. Overrides
// exist so deployments pinned to a different renderer version can substitute
// diagrams verified against that version.
func NewLibrary(overrides map[Grammar]string) *Library {
	lib := DefaultLibrary()
	for g, text := range overrides {
		if text == "" || !ValidGrammars[g] {
			continue
		}
		lib.entries[g] = text
	}
	return lib
}

// Fallback returns the fallback diagram for a grammar. Unknown grammars map
// to the flowchart entry so Fallback, like the rest of the pipeline, never
// fails.
func (l *Library) Fallback(g Grammar) string {
	if text, ok := l.entries[g]; ok {
		return text
	}
	return l.entries[Flowchart]
}

// Fallback returns the built-in fallback diagram for a grammar.
func Fallback(g Grammar) string {
	return DefaultLibrary().Fallback(g)
}
