package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/errors"
)

// execute runs the root command with args and returns captured stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"keyword wins", "classDiagram\nclass A {\n}", []string{"classify", "-", "--type", "hld"}, "classDiagram"},
		{"declared type fallback", "A --> B", []string{"classify", "-", "--type", "dbd"}, "erDiagram"},
		{"default flowchart", "something unrecognizable", []string{"classify", "-"}, "flowchart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeCommand(t *testing.T) {
	in := "classDiagram\n" +
		"class User {\n" +
		"  +name string\n" +
		"  +email string\n" +
		"  +age int\n" +
		"}\n" +
		"+stray string"

	out, err := execute(t, in, "sanitize", "-", "--type", "lld", "--no-cache")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "+stray string") {
		t.Errorf("orphan survived:\n%s", out)
	}
	if !strings.Contains(out, "+name string") {
		t.Errorf("member lost:\n%s", out)
	}
}

func TestSanitizeCommandFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.mmd")
	if err := os.WriteFile(path, []byte("graph TD\n    A --> B"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "sanitize", path, "--no-cache")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "A --> B") {
		t.Errorf("output = %q", out)
	}
}

func TestSanitizeCommandJSON(t *testing.T) {
	out, err := execute(t, "graph TD\n    A --> B", "sanitize", "-", "--no-cache", "--json")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"text"`, `"grammar"`, `"strategy"`, `"telemetry"`} {
		if !strings.Contains(out, key) {
			t.Errorf("json output missing %s:\n%s", key, out)
		}
	}
}

func TestSanitizeCommandOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mmd")
	_, err := execute(t, "graph TD\n    A --> B", "sanitize", "-", "--no-cache", "-o", path)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "A --> B") {
		t.Errorf("file content = %q", data)
	}
}

func TestFallbackCommand(t *testing.T) {
	out, err := execute(t, "", "fallback", "classDiagram")
	if err != nil {
		t.Fatal(err)
	}
	if want := diagram.DefaultLibrary().Fallback(diagram.ClassDiagram); strings.TrimSpace(out) != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if _, err := execute(t, "", "fallback", "ganttChart"); err == nil {
		t.Error("invalid grammar accepted")
	}
}

func TestReadInputMissingFile(t *testing.T) {
	_, err := execute(t, "", "sanitize", filepath.Join(t.TempDir(), "nope.mmd"), "--no-cache")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}
