package probe

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/diagramtools/mermaidfix/pkg/errors"
)

// InputPlaceholder in a Command argument is replaced with the path of the
// temp file holding the diagram text. Without it, the path is appended.
const InputPlaceholder = "{input}"

// DefaultCommandTimeout bounds a single renderer invocation when the caller
// does not set one.
const DefaultCommandTimeout = 10 * time.Second

// Command probes by invoking an external renderer CLI (such as mmdc) against
// the text and reading its exit status. The text is written to a temp file
// that is removed when the check returns.
type Command struct {
	path    string
	args    []string
	timeout time.Duration
}

// NewCommand builds a command probe. path is the renderer executable; args
// are passed through with InputPlaceholder substituted.
func NewCommand(path string, args []string, timeout time.Duration) (*Command, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeProbeUnavailable, "probe command is empty")
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Command{path: path, args: args, timeout: timeout}, nil
}

// Check writes text to a temp file and runs the renderer against it. A nil
// return means the renderer accepted the text.
func (c *Command) Check(ctx context.Context, text string) error {
	dir, err := os.MkdirTemp("", "mermaidfix-probe-")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create probe workdir")
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "diagram.mmd")
	if err := os.WriteFile(inputPath, []byte(text), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write probe input")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]string, 0, len(c.args)+1)
	substituted := false
	for _, a := range c.args {
		if strings.Contains(a, InputPlaceholder) {
			a = strings.ReplaceAll(a, InputPlaceholder, inputPath)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, inputPath)
	}

	cmd := exec.CommandContext(ctx, c.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Dir = dir

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrap(errors.ErrCodeProbeTimeout, err, "renderer timed out after %s", c.timeout)
		}
		var execErr *exec.Error
		if stderr.Len() == 0 && stderrors.As(err, &execErr) {
			return errors.Wrap(errors.ErrCodeProbeUnavailable, err, "renderer %s not runnable", c.path)
		}
		return errors.Wrap(errors.ErrCodeProbeFailed, err, "renderer rejected diagram: %s", firstLine(stderr.String()))
	}
	return nil
}

// firstLine trims renderer stderr down to its leading line for error
// messages; full output is too noisy to surface.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no diagnostic output"
	}
	return s
}
