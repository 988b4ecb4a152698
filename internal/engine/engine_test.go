package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCrash bool
	}{
		{
			name:      "nil",
			err:       nil,
			wantCrash: false,
		},
		{
			name:      "plain_crash_message",
			err:       errors.New("TypeError: Cannot read properties of undefined (reading 'length')"),
			wantCrash: true,
		},
		{
			name:      "wrapped_crash_message",
			err:       fmt.Errorf("codeAction: %w", errors.New("x is not a function")),
			wantCrash: true,
		},
		{
			name: "rpc_internal_error",
			err: &jsonrpc2.Error{
				Code:    jsonrpc2.InternalError,
				Message: "Request textDocument/codeAction failed with message: Cannot destructure property 'root'",
			},
			wantCrash: true,
		},
		{
			name: "rpc_invalid_params_is_not_a_crash",
			err: &jsonrpc2.Error{
				Code:    jsonrpc2.InvalidParams,
				Message: "Cannot read params",
			},
			wantCrash: false,
		},
		{
			name:      "unrelated_error",
			err:       errors.New("connection reset by peer"),
			wantCrash: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ClassifyError("validate", "index.html", tt.err)
			assert.Equal(t, tt.wantCrash, IsCrash(got))
			if tt.err != nil {
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}

func TestClassifyErrorDoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	first := ClassifyError("validate", "a.html", errors.New("null is not an object"))
	second := ClassifyError("validate", "a.html", first)
	assert.Same(t, first, second)

	var ce *CrashError
	require.ErrorAs(t, second, &ce)
	assert.Equal(t, "validate", ce.Op)
	assert.Equal(t, "a.html", ce.Path)
	assert.Contains(t, ce.Error(), "engine crashed during validate of a.html")
}

func TestStateSection(t *testing.T) {
	t.Parallel()

	state := &State{Settings: map[string]any{
		"tailwindCSS": map[string]any{
			"lint": map[string]any{"cssConflict": "warning"},
		},
		"editor": map[string]any{"tabSize": 2},
	}}

	assert.Equal(t, "warning", state.Section("tailwindCSS.lint.cssConflict"))
	assert.Equal(t, map[string]any{"tabSize": 2}, state.Section("editor"))
	assert.Nil(t, state.Section("tailwindCSS.missing"))
	assert.Nil(t, state.Section("editor.tabSize.deeper"))
	assert.Equal(t, state.Settings, state.Section(""))

	var nilState *State
	assert.Nil(t, nilState.Section("editor"))
}
