package testutil

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
)

// FuncEngine adapts plain functions to the engine interface.
// A nil function returns no results.
type FuncEngine struct {
	ValidateFunc    func(ctx context.Context, doc document.Document) ([]protocol.Diagnostic, error)
	CodeActionsFunc func(ctx context.Context, doc document.Document, params *protocol.CodeActionParams) ([]protocol.CodeAction, error)
}

// Validate calls ValidateFunc.
func (f *FuncEngine) Validate(ctx context.Context, doc document.Document) ([]protocol.Diagnostic, error) {
	if f.ValidateFunc == nil {
		return nil, nil
	}
	return f.ValidateFunc(ctx, doc)
}

// CodeActions calls CodeActionsFunc.
func (f *FuncEngine) CodeActions(
	ctx context.Context,
	doc document.Document,
	params *protocol.CodeActionParams,
) ([]protocol.CodeAction, error) {
	if f.CodeActionsFunc == nil {
		return nil, nil
	}
	return f.CodeActionsFunc(ctx, doc, params)
}

// Diagnostic builds a warning diagnostic on a single line.
func Diagnostic(line, startChar, endChar uint32, message string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: startChar},
			End:   protocol.Position{Line: line, Character: endChar},
		},
		Severity: protocol.DiagnosticSeverityWarning,
		Source:   "tailwindcss",
		Message:  message,
	}
}

// Quickfix builds a quickfix action replacing r in uri with newText.
func Quickfix(uri protocol.DocumentURI, r protocol.Range, newText string) protocol.CodeAction {
	return protocol.CodeAction{
		Title: "Replace with '" + newText + "'",
		Kind:  protocol.QuickFix,
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				uri: {{Range: r, NewText: newText}},
			},
		},
	}
}
