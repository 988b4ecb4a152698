// Package testutil provides fake engines shared by tests.
package testutil

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf16"

	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
)

// arbitraryPx matches utility classes with an arbitrary pixel value, e.g. "p-[16px]".
var arbitraryPx = regexp.MustCompile(`(^|[\s"'` + "`" + `])((?:-?[a-z]+)(?:-[a-z]+)*)-\[(\d+)px\]`)

// CanonicalEngine imitates a Tailwind v4 language service that suggests
// canonical classes for arbitrary pixel values divisible by the 4px spacing
// unit: "p-[16px]" becomes "p-4", "w-[200px]" becomes "w-50".
//
// It is safe for concurrent use.
type CanonicalEngine struct {
	validateCalls   atomic.Int64
	codeActionCalls atomic.Int64

	mu       sync.Mutex
	versions map[protocol.DocumentURI][]int32
}

// NewCanonicalEngine creates a CanonicalEngine.
func NewCanonicalEngine() *CanonicalEngine {
	return &CanonicalEngine{versions: make(map[protocol.DocumentURI][]int32)}
}

// ValidateCalls returns how many times Validate was called.
func (e *CanonicalEngine) ValidateCalls() int { return int(e.validateCalls.Load()) }

// CodeActionCalls returns how many times CodeActions was called.
func (e *CanonicalEngine) CodeActionCalls() int { return int(e.codeActionCalls.Load()) }

// Versions returns the document versions Validate saw for uri, in call order.
func (e *CanonicalEngine) Versions(uri protocol.DocumentURI) []int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int32(nil), e.versions[uri]...)
}

// Validate reports one warning per non-canonical class.
func (e *CanonicalEngine) Validate(_ context.Context, doc document.Document) ([]protocol.Diagnostic, error) {
	e.validateCalls.Add(1)
	e.mu.Lock()
	e.versions[doc.URI] = append(e.versions[doc.URI], doc.Version)
	e.mu.Unlock()
	return CanonicalDiagnostics(doc.Content), nil
}

// CodeActions returns one quickfix per diagnostic in the request context, in
// context order.
func (e *CanonicalEngine) CodeActions(
	_ context.Context,
	doc document.Document,
	params *protocol.CodeActionParams,
) ([]protocol.CodeAction, error) {
	e.codeActionCalls.Add(1)
	actions := make([]protocol.CodeAction, 0, len(params.Context.Diagnostics))
	for _, d := range params.Context.Diagnostics {
		replacement, ok := replacementFromMessage(d.Message)
		if !ok {
			continue
		}
		actions = append(actions, protocol.CodeAction{
			Title:       "Replace with '" + replacement + "'",
			Kind:        protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					doc.URI: {{Range: d.Range, NewText: replacement}},
				},
			},
		})
	}
	return actions, nil
}

// CanonicalDiagnostics computes the diagnostics CanonicalEngine reports for content.
func CanonicalDiagnostics(content string) []protocol.Diagnostic {
	var diags []protocol.Diagnostic
	for lineNo, line := range strings.Split(content, "\n") {
		for _, m := range arbitraryPx.FindAllStringSubmatchIndex(line, -1) {
			// m[4]:m[5] is the utility prefix, m[6]:m[7] the pixel value.
			px, err := strconv.Atoi(line[m[6]:m[7]])
			if err != nil || px%4 != 0 {
				continue
			}
			start, end := m[4], m[7]+len("px]")
			original := line[start:end]
			canonical := fmt.Sprintf("%s-%d", line[m[4]:m[5]], px/4)
			diags = append(diags, protocol.Diagnostic{
				Range: protocol.Range{
					Start: protocol.Position{Line: uint32(lineNo), Character: utf16Col(line, start)},
					End:   protocol.Position{Line: uint32(lineNo), Character: utf16Col(line, end)},
				},
				Severity: protocol.DiagnosticSeverityWarning,
				Code:     "suggestCanonicalClasses",
				Source:   "tailwindcss",
				Message:  fmt.Sprintf("The class `%s` can be written as `%s`", original, canonical),
			})
		}
	}
	return diags
}

// replacementFromMessage extracts the suggested class from a CanonicalEngine message.
func replacementFromMessage(msg string) (string, bool) {
	const marker = "can be written as `"
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	j := strings.IndexByte(rest, '`')
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func utf16Col(line string, byteOff int) uint32 {
	return uint32(len(utf16.Encode([]rune(line[:byteOff])))) //nolint:gosec // test input
}
