// Package reporter provides output formatters for check results.
package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinovyatkin/twlint/internal/lint"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Options control rendering.
type Options struct {
	// Color enables ANSI styling and syntax-highlighted snippets (text only).
	Color bool

	// Dir makes reported paths relative when they lie below it.
	Dir string

	// ReadFile loads sources for snippets (os.ReadFile if nil).
	ReadFile func(path string) ([]byte, error)

	// Fix is set when the run applied fixes; it changes the summary wording.
	Fix bool
}

// Write renders summary to w in format.
func Write(w io.Writer, format string, summary lint.Summary, opts Options) error {
	switch format {
	case FormatText, "":
		return PrintText(w, summary, opts)
	case FormatJSON:
		return PrintJSON(w, summary)
	case FormatSARIF:
		return PrintSARIF(w, summary, opts)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (o Options) readFile(path string) ([]byte, error) {
	if o.ReadFile != nil {
		return o.ReadFile(path)
	}
	return os.ReadFile(path)
}

// displayPath returns path relative to o.Dir when it is below it.
func (o Options) displayPath(path string) string {
	if o.Dir == "" {
		return path
	}
	rel, err := filepath.Rel(o.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
