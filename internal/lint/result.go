// Package lint holds the result records produced for each checked file.
package lint

import (
	"fmt"
	"strconv"

	"go.lsp.dev/protocol"
)

// Severity is the serialized diagnostic severity.
type Severity int

const (
	// SeverityError is an error-level diagnostic.
	SeverityError Severity = 1
	// SeverityWarning is a warning-level diagnostic.
	SeverityWarning Severity = 2
)

// String returns "error" or "warning".
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a 0-based range.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is a diagnostic as reported to callers of the CLI.
type Diagnostic struct {
	// Severity is 1 (error) or 2 (warning).
	Severity Severity `json:"severity"`
	// Range is where the issue is.
	Range Range `json:"range"`
	// Message is the human-readable description of the issue
	Message string `json:"message"`
	// Code is the machine-readable issue code, if any.
	Code string `json:"code,omitempty"`
	// Source is the engine that reported the issue, if any.
	Source string `json:"source,omitempty"`
}

// FileResult contains the results for a single file.
type FileResult struct {
	// Path is the file path
	Path string `json:"path"`
	// Diagnostics are the diagnostics left after checking (and fixing)
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Fixed is true when the file was rewritten
	Fixed bool `json:"fixed"`
	// FixedCount is the number of fixes applied
	FixedCount int `json:"fixedCount"`
	// MaxIterationsReached is set when fixing stopped at the iteration bound
	MaxIterationsReached bool `json:"maxIterationsReached,omitempty"`
}

// Counts returns the number of error and warning diagnostics.
func (r FileResult) Counts() (errors, warnings int) {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}

// Summary is the aggregate result of a run.
type Summary struct {
	// Files lists the files with diagnostics or fixes, in input order.
	Files []FileResult `json:"files"`
	// TotalFilesProcessed counts every file checked, including clean ones.
	TotalFilesProcessed int `json:"totalFilesProcessed"`
	// TotalFixed is the number of fixes applied across all files.
	TotalFixed int `json:"totalFixed"`
	// Errors is the number of remaining error diagnostics.
	Errors int `json:"errors"`
	// Warnings is the number of remaining warning diagnostics.
	Warnings int `json:"warnings"`
}

// NewSummary aggregates file results.
func NewSummary(files []FileResult, processed int) Summary {
	s := Summary{Files: files, TotalFilesProcessed: processed}
	if s.Files == nil {
		s.Files = []FileResult{}
	}
	for _, f := range files {
		e, w := f.Counts()
		s.Errors += e
		s.Warnings += w
		s.TotalFixed += f.FixedCount
	}
	return s
}

// HasDiagnostics reports whether any diagnostics remain.
func (s Summary) HasDiagnostics() bool {
	return s.Errors+s.Warnings > 0
}

// FilesFixed counts the files that were rewritten.
func (s Summary) FilesFixed() int {
	n := 0
	for _, f := range s.Files {
		if f.Fixed {
			n++
		}
	}
	return n
}

// ConvertDiagnostics converts LSP diagnostics to their serialized form.
func ConvertDiagnostics(diags []protocol.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, ConvertDiagnostic(d))
	}
	return out
}

// ConvertDiagnostic converts one LSP diagnostic. Severities other than
// error are reported as warnings.
func ConvertDiagnostic(d protocol.Diagnostic) Diagnostic {
	sev := SeverityWarning
	if d.Severity == protocol.DiagnosticSeverityError {
		sev = SeverityError
	}
	return Diagnostic{
		Severity: sev,
		Range: Range{
			Start: Position{Line: int(d.Range.Start.Line), Character: int(d.Range.Start.Character)},
			End:   Position{Line: int(d.Range.End.Line), Character: int(d.Range.End.Character)},
		},
		Message: d.Message,
		Code:    codeString(d.Code),
		Source:  d.Source,
	}
}

// codeString stringifies a diagnostic code, which LSP allows to be a string
// or an integer.
func codeString(code any) string {
	switch c := code.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}
