package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tinovyatkin/twlint/internal/langserver"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitDiagnostics = 1
	ExitFatal       = 2
)

// errDiagnostics reports that diagnostics remain after the run.
// It carries no message of its own.
var errDiagnostics = errors.New("diagnostics remain")

// fatalError is a run-stopping error with the details printed in verbose mode.
type fatalError struct {
	err     error
	verbose bool

	// stderr is the language server's stderr tail, if any.
	stderr string
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error, verbose bool, stderr string) error {
	var perr *langserver.ProcessError
	if stderr == "" && errors.As(err, &perr) {
		stderr = perr.Stderr
	}
	return &fatalError{err: err, verbose: verbose, stderr: stderr}
}

// exitCode prints err to w and maps it to a process exit code.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, errDiagnostics) {
		return ExitDiagnostics
	}

	fmt.Fprintf(w, "twlint: %v\n", err)

	var fe *fatalError
	if errors.As(err, &fe) && fe.verbose {
		for cause := errors.Unwrap(fe.err); cause != nil; cause = errors.Unwrap(cause) {
			fmt.Fprintf(w, "  caused by: %v\n", cause)
		}
		if tail := strings.TrimSpace(fe.stderr); tail != "" {
			fmt.Fprintln(w, "language server stderr:")
			for _, line := range strings.Split(tail, "\n") {
				fmt.Fprintf(w, "  | %s\n", line)
			}
		}
	}
	return ExitFatal
}
