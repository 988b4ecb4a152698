// Package engine defines the boundary between twlint and the Tailwind CSS
// language service that validates and fixes class usage.
//
// Nothing outside the adapter packages knows how the service is reached:
// the fix loop and the batch runner depend only on the Engine interface.
package engine

import (
	"context"
	"errors"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
)

// DefaultSource is the diagnostic source assumed when the engine omits one.
const DefaultSource = "tailwindcss"

// ErrNotInitialized is returned by engines used before their handshake completed
// or after they were closed.
var ErrNotInitialized = errors.New("engine not initialized")

// Engine validates documents and proposes code actions for their diagnostics.
// Implementations must be safe for concurrent use across different documents.
type Engine interface {
	// Validate returns the diagnostics for the given snapshot.
	Validate(ctx context.Context, doc document.Document) ([]protocol.Diagnostic, error)

	// CodeActions returns the code actions available for params in doc.
	CodeActions(ctx context.Context, doc document.Document, params *protocol.CodeActionParams) ([]protocol.CodeAction, error)
}

// State is the context an engine adapter is prepared with: where the
// Tailwind project lives, which version it runs, and the settings sent to
// the language service.
type State struct {
	// Root is the project root directory.
	Root string

	// TailwindVersion is the detected Tailwind version ("" when unknown).
	TailwindVersion string

	// Profile names the settings bundle ("v3" or "v4").
	Profile string

	// ConfigFiles lists the Tailwind config files and CSS entry points found.
	ConfigFiles []string

	// Settings holds configuration sections keyed by section name
	// (e.g. "tailwindCSS", "editor").
	Settings map[string]any
}

// Section returns the settings for a configuration section, or nil.
// Dotted sections ("tailwindCSS.lint") are resolved through nested maps.
func (s *State) Section(name string) any {
	if s == nil || s.Settings == nil {
		return nil
	}
	if name == "" {
		return s.Settings
	}
	var cur any = s.Settings
	for _, part := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}
