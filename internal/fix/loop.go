package fix

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
	"github.com/tinovyatkin/twlint/internal/engine"
)

// Loop repeatedly validates a document and applies the first available
// quickfix until the document converges, nothing more can be fixed, or
// MaxIterations rounds were executed.
//
// One fix is applied per round: a fix may shift or obsolete the ranges of
// other diagnostics, so every round starts from a fresh validation.
type Loop struct {
	Engine engine.Engine

	// MaxIterations bounds the number of rounds (DefaultMaxIterations if <= 0).
	MaxIterations int

	// Logger receives the bounded-iteration warning (logrus standard logger if nil).
	Logger logrus.FieldLogger
}

// Run fixes doc in memory. initial are the diagnostics the caller already
// has for doc; when empty the loop returns immediately without contacting
// the engine. Otherwise they are only used for that check: every round
// re-validates.
//
// Run never writes to disk; the caller persists Result.Content.
func (l *Loop) Run(ctx context.Context, doc document.Document, initial []protocol.Diagnostic) (Result, error) {
	res := Result{
		Content:      doc.Content,
		FinalVersion: doc.Version,
		State:        StateSkipped,
	}
	if len(initial) == 0 {
		return res, nil
	}

	limit := l.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}

	current := doc
	for res.Iterations < limit {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Iterations++

		diags, err := l.Engine.Validate(ctx, current)
		if err != nil {
			return res, fmt.Errorf("validating %s (version %d): %w", current.Path, current.Version, err)
		}
		res.Remaining = diags
		if len(diags) == 0 {
			res.State = StateConverged
			return res, nil
		}

		quickfixes, err := SelectQuickfixes(ctx, l.Engine, current, diags)
		if err != nil {
			return res, fmt.Errorf("%s: %w", current.Path, err)
		}
		if len(quickfixes) == 0 {
			res.State = StateNoOp
			return res, nil
		}

		next, skipped, ok := ApplyAction(current, quickfixes[0])
		if !ok {
			res.State = StateNoOp
			return res, nil
		}

		current = next
		res.FixedCount++
		res.SkippedEdits += skipped
		res.Content = current.Content
		res.FinalVersion = current.Version
		res.Changed = res.Content != doc.Content
	}

	// Bound reached: validate once more to learn whether anything is left.
	diags, err := l.Engine.Validate(ctx, current)
	if err != nil {
		return res, fmt.Errorf("validating %s (version %d): %w", current.Path, current.Version, err)
	}
	res.Remaining = diags
	if len(diags) == 0 {
		res.State = StateConverged
		return res, nil
	}

	res.State = StateBounded
	res.MaxIterationsReached = true
	l.logger().WithFields(logrus.Fields{
		"file":        doc.Path,
		"iterations":  limit,
		"diagnostics": len(diags),
	}).Warnf("reached maximum of %d fix iterations; some diagnostics may remain unresolved", limit)
	return res, nil
}

func (l *Loop) logger() logrus.FieldLogger {
	if l.Logger == nil {
		return logrus.StandardLogger()
	}
	return l.Logger
}
