package diagram

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint Grammar
		want Grammar
	}{
		{"class header", "classDiagram\n  class Foo {\n  }", "", ClassDiagram},
		{"er header", "erDiagram\n  USER {\n  }", "", ErDiagram},
		{"long er header", "entityRelationshipDiagram\n", "", ErDiagram},
		{"graph header", "graph TD\n  A --> B", "", Flowchart},
		{"flowchart header", "flowchart LR\n  A --> B", "", Flowchart},
		{"bare graph", "graph", "", Flowchart},
		{"case insensitive", "CLASSDIAGRAM\n", "", ClassDiagram},
		{"indented header", "   classDiagram\n  class A {\n  }", "", ClassDiagram},
		{"keyword beats hint", "classDiagram\n", Flowchart, ClassDiagram},
		{"hint used when no keyword", "A --> B", ErDiagram, ErDiagram},
		{"default flowchart", "some random text", "", Flowchart},
		{"invalid hint defaults", "no keywords here", Grammar("sequence"), Flowchart},
		{"empty input", "", "", Flowchart},
		{"header after blank lines", "\n\n\nerDiagram\n", "", ErDiagram},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text, tt.hint); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyScanWindow(t *testing.T) {
	// Keyword beyond the first 10 non-empty lines is ignored.
	text := strings.Repeat("noise line\n", 10) + "classDiagram\n"
	if got := Classify(text, ErDiagram); got != ErDiagram {
		t.Errorf("keyword past scan window should be ignored, got %q", got)
	}

	// Keyword on the 10th non-empty line is still seen.
	text = strings.Repeat("noise line\n", 9) + "classDiagram\n"
	if got := Classify(text, ErDiagram); got != ClassDiagram {
		t.Errorf("keyword on 10th line should be seen, got %q", got)
	}
}

func TestFromDeclaredType(t *testing.T) {
	tests := []struct {
		in     string
		want   Grammar
		wantOK bool
	}{
		{"hld", Flowchart, true},
		{"lld", ClassDiagram, true},
		{"dbd", ErDiagram, true},
		{"HLD", Flowchart, true},
		{" dbd ", ErDiagram, true},
		{"unknown", Flowchart, false},
		{"", Flowchart, false},
	}

	for _, tt := range tests {
		got, ok := FromDeclaredType(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FromDeclaredType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSourceHint(t *testing.T) {
	if got := (Source{Grammar: ErDiagram, DeclaredType: "hld"}).Hint(); got != ErDiagram {
		t.Errorf("explicit grammar should win, got %q", got)
	}
	if got := (Source{DeclaredType: "lld"}).Hint(); got != ClassDiagram {
		t.Errorf("declared type should map, got %q", got)
	}
	if got := (Source{DeclaredType: "bogus"}).Hint(); got != "" {
		t.Errorf("unknown declared type should yield empty hint, got %q", got)
	}
}
