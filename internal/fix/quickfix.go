package fix

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
	"github.com/tinovyatkin/twlint/internal/engine"
)

// IsQuickfix reports whether kind is "quickfix" or a dotted sub-kind of it.
func IsQuickfix(kind protocol.CodeActionKind) bool {
	k := string(kind)
	return k == string(protocol.QuickFix) || strings.HasPrefix(k, string(protocol.QuickFix)+".")
}

// CodeActionParams builds a request covering the whole document with all of
// diags in its context.
func CodeActionParams(doc document.Document, diags []protocol.Diagnostic) *protocol.CodeActionParams {
	ctxDiags := make([]protocol.Diagnostic, len(diags))
	for i, d := range diags {
		if d.Source == "" {
			d.Source = engine.DefaultSource
		}
		ctxDiags[i] = d
	}
	return &protocol.CodeActionParams{
		TextDocument: doc.Identifier(),
		Range:        doc.FullRange(),
		Context: protocol.CodeActionContext{
			Diagnostics: ctxDiags,
			Only:        []protocol.CodeActionKind{protocol.QuickFix},
		},
	}
}

// SelectQuickfixes asks eng for code actions on doc and keeps the quickfixes,
// in the order the engine returned them.
func SelectQuickfixes(
	ctx context.Context,
	eng engine.Engine,
	doc document.Document,
	diags []protocol.Diagnostic,
) ([]protocol.CodeAction, error) {
	actions, err := eng.CodeActions(ctx, doc, CodeActionParams(doc, diags))
	if err != nil {
		return nil, fmt.Errorf("requesting code actions: %w", err)
	}

	quickfixes := make([]protocol.CodeAction, 0, len(actions))
	for _, a := range actions {
		if IsQuickfix(a.Kind) {
			quickfixes = append(quickfixes, a)
		}
	}
	return quickfixes, nil
}
