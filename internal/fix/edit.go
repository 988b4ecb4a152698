package fix

import (
	"slices"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
)

// ApplyEdits applies edits to content and returns the new content along with
// the number of edits skipped because they overlapped an edit already applied.
//
// All offsets are computed against the original content. Edits are then
// applied from the end of the document backwards, so applying one edit never
// shifts the offsets of the edits still pending.
func ApplyEdits(content string, edits []protocol.TextEdit) (string, int) {
	if len(edits) == 0 {
		return content, 0
	}

	spans := resolveSpans(content, edits)
	slices.SortStableFunc(spans, compareSpansDescending)

	var b strings.Builder
	result := content
	skipped := 0
	var last *span
	for i := range spans {
		s := spans[i]
		if last != nil && spansOverlap(s, *last) {
			skipped++
			continue
		}
		b.Reset()
		b.Grow(len(result) - (s.end - s.start) + len(s.newText))
		b.WriteString(result[:s.start])
		b.WriteString(s.newText)
		b.WriteString(result[s.end:])
		result = b.String()
		last = &spans[i]
	}
	return result, skipped
}

// ActionEdits returns the edits action makes to the document at docURI.
// The second result is false when the action has no edits for that document.
func ActionEdits(action protocol.CodeAction, docURI protocol.DocumentURI) ([]protocol.TextEdit, bool) {
	if action.Edit == nil {
		return nil, false
	}
	edits := action.Edit.Changes[docURI]
	if len(edits) == 0 {
		return nil, false
	}
	return edits, true
}

// ApplyAction applies the edits action makes to doc and returns the next
// snapshot. It returns false, leaving doc untouched, when the action does not
// edit doc; that is an inert action, not an error.
func ApplyAction(doc document.Document, action protocol.CodeAction) (document.Document, int, bool) {
	edits, ok := ActionEdits(action, doc.URI)
	if !ok {
		return doc, 0, false
	}
	content, skipped := ApplyEdits(doc.Content, edits)
	return doc.WithContent(content), skipped, true
}
