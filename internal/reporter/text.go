package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tinovyatkin/twlint/internal/lint"
)

// styles are bound to the renderer of one writer.
type styles struct {
	file    lipgloss.Style
	error   lipgloss.Style
	warning lipgloss.Style
	fixed   lipgloss.Style
	dim     lipgloss.Style
	marker  lipgloss.Style

	profile termenv.Profile
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	switch {
	case !color:
		r.SetColorProfile(termenv.Ascii)
	case r.ColorProfile() == termenv.Ascii:
		// Color was forced on for a writer that is not a terminal.
		r.SetColorProfile(termenv.ANSI256)
	}
	return styles{
		file:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		fixed:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
		marker:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		profile: r.ColorProfile(),
	}
}

// PrintText writes one block per file followed by a summary line.
//
// Example output:
//
//	src/index.html:1:13: warning The class `p-[16px]` can be written as `p-4` [suggestCanonicalClasses]
//	   1 | >>> <div class="p-[16px]">
//
//	1 problem (0 errors, 1 warning) in 1 file
func PrintText(w io.Writer, summary lint.Summary, opts Options) error {
	st := newStyles(w, opts.Color)
	var b strings.Builder

	for _, f := range summary.Files {
		path := opts.displayPath(f.Path)

		if f.Fixed {
			b.WriteString(st.fixed.Render(fmt.Sprintf("%s: fixed %s", path, plural(f.FixedCount, "issue"))))
			b.WriteByte('\n')
		}
		if f.MaxIterationsReached {
			b.WriteString(st.warning.Render(fmt.Sprintf(
				"%s: stopped at the fix iteration limit; some issues may remain", path)))
			b.WriteByte('\n')
		}
		if len(f.Diagnostics) == 0 {
			continue
		}

		var lines []string
		if src, err := opts.readFile(f.Path); err == nil {
			lines = strings.Split(string(src), "\n")
		}
		for _, d := range f.Diagnostics {
			writeDiagnostic(&b, st, path, d)
			writeSnippet(&b, st, lines, d.Range, f.Path, opts.Color)
		}
		b.WriteByte('\n')
	}

	b.WriteString(summaryLine(st, summary, opts.Fix))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDiagnostic(b *strings.Builder, st styles, path string, d lint.Diagnostic) {
	sev := st.warning.Render(d.Severity.String())
	if d.Severity == lint.SeverityError {
		sev = st.error.Render(d.Severity.String())
	}
	fmt.Fprintf(b, "%s: %s %s",
		st.file.Render(fmt.Sprintf("%s:%d:%d", path, d.Range.Start.Line+1, d.Range.Start.Character+1)),
		sev, d.Message)
	if d.Code != "" {
		b.WriteString(" " + st.dim.Render("["+d.Code+"]"))
	}
	b.WriteByte('\n')
}

// writeSnippet renders the affected lines with one line of context on each
// side, marking affected lines with ">>>". Line numbers are 1-based.
func writeSnippet(b *strings.Builder, st styles, lines []string, rng lint.Range, path string, color bool) {
	start := rng.Start.Line + 1
	end := rng.End.Line + 1
	if end < start {
		end = start
	}
	if start < 1 || start > len(lines) {
		return
	}
	end = min(end, len(lines))

	from := max(start-1, 1)
	to := min(end+1, len(lines))
	// Trailing context that is just the empty last line adds nothing.
	if to > end && strings.TrimSpace(lines[to-1]) == "" {
		to = end
	}

	for i := from; i <= to; i++ {
		pfx := "   "
		if i >= start && i <= end {
			pfx = st.marker.Render(">>>")
		}
		text := strings.TrimRight(lines[i-1], "\r")
		if color {
			text = highlight(text, path, st.profile)
		}
		fmt.Fprintf(b, " %s %s %s\n", st.dim.Render(fmt.Sprintf("%3d |", i)), pfx, text)
	}
}

// highlight colors one source line; on failure the line is returned as is.
func highlight(line, path string, profile termenv.Profile) string {
	formatter := "terminal256"
	switch profile {
	case termenv.TrueColor:
		formatter = "terminal16m"
	case termenv.ANSI:
		formatter = "terminal"
	case termenv.Ascii:
		return line
	}

	lexer := strings.TrimPrefix(filepath.Ext(path), ".")
	var b strings.Builder
	if err := quick.Highlight(&b, line, lexer, formatter, "monokai"); err != nil {
		return line
	}
	return strings.TrimRight(b.String(), "\n")
}

func summaryLine(st styles, s lint.Summary, fix bool) string {
	problems := s.Errors + s.Warnings
	var parts []string

	if fix && s.TotalFixed > 0 {
		parts = append(parts, st.fixed.Render(fmt.Sprintf("fixed %s in %s",
			plural(s.TotalFixed, "issue"), plural(s.FilesFixed(), "file"))))
	}

	switch {
	case problems > 0:
		withProblems := 0
		for _, f := range s.Files {
			if len(f.Diagnostics) > 0 {
				withProblems++
			}
		}
		style := st.warning
		if s.Errors > 0 {
			style = st.error
		}
		parts = append(parts, style.Render(fmt.Sprintf("%s (%s, %s) in %s",
			plural(problems, "problem"), plural(s.Errors, "error"), plural(s.Warnings, "warning"),
			plural(withProblems, "file"))))
	default:
		parts = append(parts, fmt.Sprintf("no problems found in %s", plural(s.TotalFilesProcessed, "file")))
	}
	return strings.Join(parts, "; ")
}
