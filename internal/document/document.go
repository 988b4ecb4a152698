// Package document provides immutable snapshots of files handed to the
// Tailwind language service.
package document

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// DefaultLanguageID is used for files whose extension is not recognized.
const DefaultLanguageID = "html"

// Document is a snapshot of file content at a version.
//
// Documents are values: applying a fix produces a new Document through
// WithContent, the receiver is never modified.
type Document struct {
	// URI is the file:// URI of the document.
	URI protocol.DocumentURI

	// Path is the filesystem path the document was read from.
	Path string

	// LanguageID is the LSP language identifier derived from the extension.
	LanguageID string

	// Version starts at 1 and increases with every new snapshot.
	Version int32

	// Content is the full text of the document.
	Content string
}

// New creates the first snapshot (version 1) of the file at path.
func New(path, content string) Document {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Document{
		URI:        protocol.DocumentURI(uri.File(abs)),
		Path:       path,
		LanguageID: LanguageID(path),
		Version:    1,
		Content:    content,
	}
}

// WithContent returns the next snapshot of d holding content.
func (d Document) WithContent(content string) Document {
	next := d
	next.Version = d.Version + 1
	next.Content = content
	return next
}

// Item converts the snapshot to an LSP TextDocumentItem.
func (d Document) Item() protocol.TextDocumentItem {
	return protocol.TextDocumentItem{
		URI:        d.URI,
		LanguageID: protocol.LanguageIdentifier(d.LanguageID),
		Version:    d.Version,
		Text:       d.Content,
	}
}

// Identifier returns the LSP identifier of the document.
func (d Document) Identifier() protocol.TextDocumentIdentifier {
	return protocol.TextDocumentIdentifier{URI: d.URI}
}

// FullRange spans the whole document, from 0:0 to the end of the last line.
func (d Document) FullRange() protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   EndPosition(d.Content),
	}
}

// languageIDs maps file extensions to LSP language identifiers.
var languageIDs = map[string]string{
	".html":       "html",
	".htm":        "html",
	".vue":        "vue",
	".svelte":     "svelte",
	".astro":      "astro",
	".jsx":        "javascriptreact",
	".tsx":        "typescriptreact",
	".js":         "javascript",
	".cjs":        "javascript",
	".mjs":        "javascript",
	".ts":         "typescript",
	".cts":        "typescript",
	".mts":        "typescript",
	".css":        "css",
	".scss":       "scss",
	".less":       "less",
	".md":         "markdown",
	".mdx":        "mdx",
	".php":        "php",
	".erb":        "erb",
	".twig":       "twig",
	".hbs":        "handlebars",
	".handlebars": "handlebars",
	".templ":      "templ",
	".heex":       "phoenix-heex",
	".rs":         "rust",
}

// LanguageID returns the language identifier for path based on its extension.
func LanguageID(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".blade.php") {
		return "blade"
	}
	if id, ok := languageIDs[filepath.Ext(base)]; ok {
		return id
	}
	return DefaultLanguageID
}
