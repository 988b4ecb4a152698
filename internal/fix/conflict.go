package fix

import (
	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
)

// span is a text edit resolved to byte offsets against one fixed content.
type span struct {
	// start and end delimit the replaced bytes [start, end).
	start, end int

	newText string

	// index is the position of the edit in the list the engine returned.
	index int
}

// resolveSpans converts edits to byte offsets against content.
// Inverted ranges are normalized.
func resolveSpans(content string, edits []protocol.TextEdit) []span {
	spans := make([]span, 0, len(edits))
	for i, e := range edits {
		r := normalizeRange(e.Range)
		spans = append(spans, span{
			start:   document.Offset(content, r.Start),
			end:     document.Offset(content, r.End),
			newText: e.NewText,
			index:   i,
		})
	}
	return spans
}

// spansOverlap checks if span a, starting at or before b, reaches into b.
// Overlapping spans cannot both be applied safely. An insertion at b.start
// touches b without overlapping it.
func spansOverlap(a, b span) bool {
	return a.end > b.start
}

// compareSpansDescending orders spans for back-to-front application: later
// starts first. For equal starts a replacement comes before insertions, so
// the insertions land in front of its new text, and otherwise later edits
// come first so that edits at the same point keep their relative order.
func compareSpansDescending(a, b span) int {
	if a.start != b.start {
		return b.start - a.start
	}
	if ai, bi := a.start == a.end, b.start == b.end; ai != bi {
		if bi {
			return -1
		}
		return 1
	}
	return b.index - a.index
}

func comparePositions(a, b protocol.Position) int {
	switch {
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	case a.Character < b.Character:
		return -1
	case a.Character > b.Character:
		return 1
	default:
		return 0
	}
}

// normalizeRange swaps inverted range ends.
func normalizeRange(r protocol.Range) protocol.Range {
	if comparePositions(r.End, r.Start) < 0 {
		r.Start, r.End = r.End, r.Start
	}
	return r
}
