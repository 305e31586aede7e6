package repair

import (
	"testing"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
)

func TestClassifyLineKinds(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		grammar diagram.Grammar
		line    int // 0-based index into the classified result
		want    LineKind
	}{
		{"class block open", "class Foo {", diagram.ClassDiagram, 0, KindBlockOpen},
		{"class bare name with brace", "class Foo\n{", diagram.ClassDiagram, 0, KindBlockOpen},
		{"class bare name alone", "class Foo", diagram.ClassDiagram, 0, KindOther},
		{"block close", "}", diagram.ClassDiagram, 0, KindBlockClose},
		{"open is never close", "class Foo {", diagram.ClassDiagram, 0, KindBlockOpen},
		{"member plus", "+bar()", diagram.ClassDiagram, 0, KindMember},
		{"member minus", "-count int", diagram.ClassDiagram, 0, KindMember},
		{"member hash", "#helper()", diagram.ClassDiagram, 0, KindMember},
		{"member tilde", "~pkg()", diagram.ClassDiagram, 0, KindMember},
		{"member only in class", "+bar()", diagram.ErDiagram, 0, KindOther},
		{"class assign", "class Foo hot", diagram.ClassDiagram, 0, KindClassAssign},
		{"batched class assign", "class A,B hot", diagram.ClassDiagram, 0, KindClassAssign},
		{"class styledef", "classDef hot fill:#FF0000", diagram.ClassDiagram, 0, KindStyleDef},
		{"style line", "style A fill:#FF0000", diagram.Flowchart, 0, KindStyleDef},
		{"class relationship", "Foo <|-- Bar", diagram.ClassDiagram, 0, KindRelationship},
		{"class dependency", "Foo ..> Bar", diagram.ClassDiagram, 0, KindRelationship},
		{"entity block open", "USER {", diagram.ErDiagram, 0, KindBlockOpen},
		{"entity bare name with brace", "ORDER_ITEM\n{", diagram.ErDiagram, 0, KindBlockOpen},
		{"lowercase is not entity", "user {", diagram.ErDiagram, 0, KindOther},
		{"field", "varchar name", diagram.ErDiagram, 0, KindField},
		{"field uuid", "uuid id", diagram.ErDiagram, 0, KindField},
		{"field only in er", "varchar name", diagram.ClassDiagram, 0, KindOther},
		{"er relationship", "USER ||--o{ ORDER : places", diagram.ErDiagram, 0, KindRelationship},
		{"er non-identifying", "USER }|..|{ ROLE : has", diagram.ErDiagram, 0, KindRelationship},
		{"flow arrow", "A --> B", diagram.Flowchart, 0, KindRelationship},
		{"flow dotted", "A -.-> B", diagram.Flowchart, 0, KindRelationship},
		{"flow thick", "A ==> B", diagram.Flowchart, 0, KindRelationship},
		{"flow plain link", "A --- B", diagram.Flowchart, 0, KindRelationship},
		{"flow node", "A[Start]", diagram.Flowchart, 0, KindOther},
		{"header", "classDiagram", diagram.ClassDiagram, 0, KindOther},
		{"empty", "", diagram.Flowchart, 0, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyLines(tt.text, tt.grammar)
			if got := classified[tt.line].Kind; got != tt.want {
				t.Errorf("ClassifyLines(%q)[%d] = %s, want %s", tt.text, tt.line, got, tt.want)
			}
		})
	}
}

func TestClassifiedLineMetadata(t *testing.T) {
	classified := ClassifyLines("classDiagram\n  class Foo {", diagram.ClassDiagram)
	if len(classified) != 2 {
		t.Fatalf("len = %d", len(classified))
	}
	if classified[1].LineNo != 2 {
		t.Errorf("LineNo = %d, want 2", classified[1].LineNo)
	}
	if classified[1].Raw != "  class Foo {" {
		t.Errorf("Raw = %q", classified[1].Raw)
	}
}

func TestBlockStateApply(t *testing.T) {
	var s BlockState

	s.Apply(ClassifiedLine{Kind: KindBlockClose, Raw: "}"})
	if s.Depth != 0 {
		t.Errorf("depth floored: got %d", s.Depth)
	}

	s.Apply(ClassifiedLine{Kind: KindBlockOpen, Raw: "class Foo {"})
	if s.Depth != 1 || s.CurrentBlock != "Foo" {
		t.Errorf("after open: depth=%d block=%q", s.Depth, s.CurrentBlock)
	}

	s.Apply(ClassifiedLine{Kind: KindMember, Raw: "+bar()"})
	if s.Depth != 1 {
		t.Errorf("member must not change depth: %d", s.Depth)
	}

	s.Apply(ClassifiedLine{Kind: KindBlockOpen, Raw: "USER {"})
	if s.Depth != 2 || s.CurrentBlock != "USER" {
		t.Errorf("after nested open: depth=%d block=%q", s.Depth, s.CurrentBlock)
	}

	s.Apply(ClassifiedLine{Kind: KindBlockClose, Raw: "}"})
	s.Apply(ClassifiedLine{Kind: KindBlockClose, Raw: "}"})
	if s.Depth != 0 || s.CurrentBlock != "" {
		t.Errorf("after closes: depth=%d block=%q", s.Depth, s.CurrentBlock)
	}
}
