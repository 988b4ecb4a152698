// Package runner checks and fixes a set of files with bounded concurrency.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"
	"golang.org/x/sync/errgroup"

	"github.com/tinovyatkin/twlint/internal/document"
	"github.com/tinovyatkin/twlint/internal/engine"
	"github.com/tinovyatkin/twlint/internal/fix"
	"github.com/tinovyatkin/twlint/internal/lint"
)

// DefaultConcurrency is the batch size used when Concurrency <= 0.
const DefaultConcurrency = 10

// ProgressFunc is called before a file starts, with its 1-based position.
type ProgressFunc func(current, total int, file string)

// Runner validates, and optionally fixes, files through an engine.
type Runner struct {
	Engine engine.Engine

	// Fix enables the fix-convergence loop and writing fixed files.
	Fix bool

	// Concurrency is the batch size and the number of files in flight.
	Concurrency int

	// MaxIterations bounds the fix loop per file.
	MaxIterations int

	// Progress, if set, is invoked synchronously in dispatch order.
	Progress ProgressFunc

	Logger logrus.FieldLogger
}

// releaser is implemented by engines that hold per-document state.
type releaser interface {
	Release(ctx context.Context, doc document.Document) error
}

// outcome is the result of one file; a missing file is not processed.
type outcome struct {
	processed bool
	result    *lint.FileResult
}

// Run processes paths in batches of Concurrency: every file of a batch is
// dispatched before any is awaited, and a batch only starts after the
// previous one settled. The first fatal error aborts the run.
func (r *Runner) Run(ctx context.Context, paths []string) (lint.Summary, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	outcomes := make([]outcome, len(paths))
	for start := 0; start < len(paths); start += limit {
		end := min(start+limit, len(paths))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i := start; i < end; i++ {
			if r.Progress != nil {
				r.Progress(i+1, len(paths), paths[i])
			}
			g.Go(func() error {
				out, err := r.processFile(gctx, paths[i])
				if err != nil {
					return err
				}
				outcomes[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return lint.Summary{}, err
		}
	}

	var files []lint.FileResult
	processed := 0
	for _, out := range outcomes {
		if !out.processed {
			continue
		}
		processed++
		if out.result != nil {
			files = append(files, *out.result)
		}
	}
	return lint.NewSummary(files, processed), nil
}

func (r *Runner) processFile(ctx context.Context, path string) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	log := r.logger().WithField("file", path)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("file does not exist; skipping")
		return outcome{}, nil
	}
	if err != nil {
		return outcome{}, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return outcome{}, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := document.New(path, string(data))
	last := doc
	defer func() { r.release(last, log) }()

	diags, err := r.validate(ctx, doc, log)
	if err != nil {
		return outcome{}, err
	}

	res := lint.FileResult{Path: path}
	final := diags

	if r.Fix && len(diags) > 0 {
		loop := &fix.Loop{Engine: r.Engine, MaxIterations: r.MaxIterations, Logger: r.logger()}
		fixed, err := loop.Run(ctx, doc, diags)
		switch {
		case err == nil:
		case engine.IsCrash(err):
			log.WithError(err).Warn("language server crashed while fixing; leaving file unchanged")
			return r.report(res, diags), nil
		case ctx.Err() != nil:
			return outcome{}, ctx.Err()
		default:
			return outcome{}, fmt.Errorf("fixing %s: %w", path, err)
		}

		final = fixed.Remaining
		res.FixedCount = fixed.FixedCount
		res.MaxIterationsReached = fixed.MaxIterationsReached

		if fixed.Changed {
			if err := ctx.Err(); err != nil {
				return outcome{}, err
			}
			if err := os.WriteFile(path, []byte(fixed.Content), info.Mode().Perm()); err != nil {
				return outcome{}, fmt.Errorf("writing %s: %w", path, err)
			}
			res.Fixed = true

			written := doc
			written.Content = fixed.Content
			written.Version = fixed.FinalVersion
			last = written

			if final, err = r.validate(ctx, written, log); err != nil {
				return outcome{}, err
			}
		}
		log.WithFields(logrus.Fields{
			"state":      fixed.State.String(),
			"iterations": fixed.Iterations,
			"fixed":      fixed.FixedCount,
		}).Debug("fix loop finished")
	}

	return r.report(res, final), nil
}

// report attaches diagnostics; clean untouched files are processed but not reported.
func (r *Runner) report(res lint.FileResult, diags []protocol.Diagnostic) outcome {
	res.Diagnostics = lint.ConvertDiagnostics(diags)
	if len(res.Diagnostics) == 0 && res.FixedCount == 0 {
		return outcome{processed: true}
	}
	return outcome{processed: true, result: &res}
}

// validate treats engine crashes as a clean file.
func (r *Runner) validate(ctx context.Context, doc document.Document, log *logrus.Entry) ([]protocol.Diagnostic, error) {
	diags, err := r.Engine.Validate(ctx, doc)
	if err == nil {
		return diags, nil
	}
	if engine.IsCrash(err) {
		log.WithError(err).Warn("language server crashed while validating; reporting no diagnostics")
		return nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil, err
	}
	return nil, fmt.Errorf("validating %s: %w", doc.Path, err)
}

func (r *Runner) release(doc document.Document, log *logrus.Entry) {
	rel, ok := r.Engine.(releaser)
	if !ok {
		return
	}
	if err := rel.Release(context.Background(), doc); err != nil {
		log.WithError(err).Debug("releasing document")
	}
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}
