package engine

import (
	"errors"
	"fmt"
	"strings"

	"go.lsp.dev/jsonrpc2"
)

// crashSignatures are message fragments produced by the language service when
// it throws internally on input it does not handle. The list is a minimum;
// anything else is treated as a real failure.
var crashSignatures = []string{
	"Cannot read",
	"Cannot destructure",
	"undefined is not",
	"null is not",
	"is not a function",
	"is not iterable",
	"Maximum call stack",
}

// CrashError reports that the engine failed internally while handling one
// document. Callers treat it as "no diagnostics" rather than aborting.
type CrashError struct {
	// Op is the engine operation ("validate", "codeAction").
	Op string

	// Path is the file being processed.
	Path string

	Err error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("engine crashed during %s of %s: %v", e.Op, e.Path, e.Err)
}

func (e *CrashError) Unwrap() error { return e.Err }

// IsCrash reports whether err is (or wraps) a CrashError.
func IsCrash(err error) bool {
	var ce *CrashError
	return errors.As(err, &ce)
}

// ClassifyError wraps err in a CrashError when it carries a known crash
// signature. Other errors, including nil, are returned unchanged.
func ClassifyError(op, path string, err error) error {
	if err == nil || IsCrash(err) {
		return err
	}
	if !isCrashMessage(err) {
		return err
	}
	return &CrashError{Op: op, Path: path, Err: err}
}

func isCrashMessage(err error) bool {
	msg := err.Error()
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		// Only internal errors come from a thrown exception; protocol
		// errors such as InvalidParams are our own fault.
		if rpcErr.Code != jsonrpc2.InternalError && rpcErr.Code != 0 {
			return false
		}
		msg = rpcErr.Message
	}
	for _, sig := range crashSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
