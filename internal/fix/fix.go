// Package fix implements the fix-convergence loop: validate a document, apply
// the first quickfix the engine offers, and validate again until nothing is
// left to fix or the iteration bound is reached.
package fix

import (
	"go.lsp.dev/protocol"
)

// DefaultMaxIterations bounds the loop when no explicit limit is configured.
const DefaultMaxIterations = 100

// State is the terminal state of a loop run.
type State int

const (
	// StateSkipped means the initial diagnostics were empty and no work was done.
	StateSkipped State = iota

	// StateConverged means re-validation reported zero diagnostics.
	StateConverged

	// StateNoOp means diagnostics remain but none can be fixed automatically.
	StateNoOp

	// StateBounded means the iteration bound was reached.
	StateBounded
)

// String returns a human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateSkipped:
		return "skipped"
	case StateConverged:
		return "converged"
	case StateNoOp:
		return "no-op"
	case StateBounded:
		return "bounded"
	default:
		return "unknown"
	}
}

// Result is the outcome of fixing one document.
type Result struct {
	// Content is the final content, consistent with FinalVersion.
	Content string

	// Changed is true when Content differs from the input content.
	Changed bool

	// FixedCount is the number of quickfixes applied.
	FixedCount int

	// Iterations is the number of validate/apply rounds executed.
	Iterations int

	// MaxIterationsReached is true when the bound was hit with diagnostics left.
	MaxIterationsReached bool

	// Remaining holds the diagnostics from the last validation.
	Remaining []protocol.Diagnostic

	// FinalVersion is the version of the last document snapshot produced.
	FinalVersion int32

	// State is how the loop terminated.
	State State

	// SkippedEdits counts edits dropped because they overlapped another edit
	// of the same action.
	SkippedEdits int
}
