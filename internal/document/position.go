package document

import (
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// LSP positions count characters in UTF-16 code units. These helpers convert
// them to byte offsets into Go strings.

// Offset converts pos to a byte offset into content.
// Lines past the end clamp to len(content); characters past the end of a
// line clamp to the line end.
func Offset(content string, pos protocol.Position) int {
	lineStart := 0
	for line := uint32(0); line < pos.Line; line++ {
		i := strings.IndexByte(content[lineStart:], '\n')
		if i < 0 {
			return len(content)
		}
		lineStart += i + 1
	}

	lineEnd := len(content)
	if i := strings.IndexByte(content[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
	}
	return lineStart + utf16ToByteOffset(content[lineStart:lineEnd], int(pos.Character))
}

// EndPosition returns the position just past the last character of content.
func EndPosition(content string) protocol.Position {
	line := strings.Count(content, "\n")
	last := content
	if i := strings.LastIndexByte(content, '\n'); i >= 0 {
		last = content[i+1:]
	}
	return protocol.Position{
		Line:      clampUint32(line),
		Character: clampUint32(utf16Len(last)),
	}
}

// utf16ToByteOffset converts a UTF-16 offset within line to a byte offset.
func utf16ToByteOffset(line string, utf16Off int) int {
	if utf16Off <= 0 {
		return 0
	}
	units := 0
	for i, r := range line {
		if units >= utf16Off {
			return i
		}
		units += runeUTF16Len(r)
	}
	return len(line)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUTF16Len(r)
	}
	return n
}

func runeUTF16Len(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}

// clampUint32 safely converts an int to uint32, clamping negative values to 0.
func clampUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v) //nolint:gosec // line/column numbers are well within uint32 range
}
