// Package langserver implements engine.Engine on top of the Tailwind CSS
// language server.
//
// The server is spawned as a subprocess speaking LSP over stdio
// (Content-Length framed JSON-RPC via go.lsp.dev/jsonrpc2). Documents are
// opened on first validation and updated with full-content didChange
// notifications afterwards; diagnostics arrive asynchronously through
// textDocument/publishDiagnostics and are routed to the waiting caller.
package langserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/tinovyatkin/twlint/internal/document"
	"github.com/tinovyatkin/twlint/internal/engine"
	"github.com/tinovyatkin/twlint/internal/version"
)

const clientName = "twlint"

// DefaultCommand starts the Tailwind CSS language server on stdio.
const DefaultCommand = "tailwindcss-language-server --stdio"

// DefaultDiagnosticsTimeout bounds the wait for one document's diagnostics.
const DefaultDiagnosticsTimeout = 5 * time.Second

const (
	shutdownGrace = 2 * time.Second
	startAttempts = 3
)

// ErrServerExited is returned when the language server goes away while a
// request is pending.
var ErrServerExited = errors.New("language server exited")

// Options configure a Client.
type Options struct {
	// Command is the server command line (default DefaultCommand).
	Command string

	// State describes the project; Settings answers workspace/configuration.
	State engine.State

	// DiagnosticsTimeout bounds the wait for diagnostics (default
	// DefaultDiagnosticsTimeout). On timeout a document has no diagnostics.
	DiagnosticsTimeout time.Duration

	Logger logrus.FieldLogger
}

// Client is an engine.Engine backed by a language server connection.
// It is safe for concurrent use across documents.
type Client struct {
	conn    jsonrpc2.Conn
	state   engine.State
	timeout time.Duration
	logger  logrus.FieldLogger

	docs *documentStore
	hub  *diagnosticsHub
	proc *process

	ready      atomic.Bool
	serverName string

	closeOnce sync.Once
	closeErr  error
}

var _ engine.Engine = (*Client)(nil)

// Start spawns the language server in the project root and performs the
// initialize handshake. A server that exits before answering initialize is
// restarted with exponential backoff.
func Start(ctx context.Context, opts Options) (*Client, error) {
	command := opts.Command
	if command == "" {
		command = DefaultCommand
	}
	args, err := splitCommand(command)
	if err != nil {
		return nil, err
	}

	dir := opts.State.Root
	if dir == "" {
		dir = "."
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond

	attempt := 0
	return backoff.Retry(ctx, func() (*Client, error) {
		attempt++
		proc, rwc, err := startProcess(args, dir)
		if err != nil {
			return nil, backoff.Permanent(&ProcessError{Command: command, Err: err})
		}

		c := newClient(rwc, opts)
		c.proc = proc
		if err := c.initialize(ctx); err != nil {
			_ = c.conn.Close()
			proc.kill()
			perr := &ProcessError{Command: command, Stderr: proc.stderr.String(), Err: err}
			if errors.Is(err, ErrServerExited) {
				c.logger.WithFields(logrus.Fields{
					"attempt": attempt,
					"command": command,
				}).Debug("language server exited during initialize")
				return nil, perr
			}
			return nil, backoff.Permanent(perr)
		}
		return c, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(startAttempts))
}

// Connect performs the initialize handshake over an existing stream.
func Connect(ctx context.Context, rwc io.ReadWriteCloser, opts Options) (*Client, error) {
	c := newClient(rwc, opts)
	if err := c.initialize(ctx); err != nil {
		_ = c.conn.Close()
		return nil, err
	}
	return c, nil
}

func newClient(rwc io.ReadWriteCloser, opts Options) *Client {
	timeout := opts.DiagnosticsTimeout
	if timeout <= 0 {
		timeout = DefaultDiagnosticsTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Client{
		conn:    jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		state:   opts.State,
		timeout: timeout,
		logger:  logger,
		docs:    newDocumentStore(),
		hub:     newDiagnosticsHub(),
	}
	c.conn.Go(context.Background(), jsonrpc2.AsyncHandler(jsonrpc2.ReplyHandler(c.handle)))
	return c
}

type initializeParams struct {
	ProcessID             int               `json:"processId"`
	ClientInfo            clientInfo        `json:"clientInfo"`
	RootPath              string            `json:"rootPath"`
	RootURI               string            `json:"rootUri"`
	WorkspaceFolders      []workspaceFolder `json:"workspaceFolders"`
	Capabilities          map[string]any    `json:"capabilities"`
	InitializationOptions map[string]any    `json:"initializationOptions,omitempty"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type initializeResult struct {
	ServerInfo *clientInfo `json:"serverInfo,omitempty"`
}

// clientCapabilities advertises what the server may rely on: pull-style
// configuration and quickfix code action literals.
func clientCapabilities() map[string]any {
	return map[string]any{
		"workspace": map[string]any{
			"configuration":    true,
			"workspaceFolders": true,
		},
		"textDocument": map[string]any{
			"synchronization": map[string]any{
				"dynamicRegistration": false,
			},
			"publishDiagnostics": map[string]any{
				"relatedInformation": true,
				"versionSupport":     true,
			},
			"codeAction": map[string]any{
				"codeActionLiteralSupport": map[string]any{
					"codeActionKind": map[string]any{
						"valueSet": []string{string(protocol.QuickFix)},
					},
				},
			},
		},
		"window": map[string]any{
			"workDoneProgress": false,
		},
	}
}

func (c *Client) initialize(ctx context.Context) error {
	root := c.state.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	rootURI := string(uri.File(root))

	params := initializeParams{
		ProcessID:        os.Getpid(),
		ClientInfo:       clientInfo{Name: clientName, Version: version.RawVersion()},
		RootPath:         root,
		RootURI:          rootURI,
		WorkspaceFolders: []workspaceFolder{{URI: rootURI, Name: filepath.Base(root)}},
		Capabilities:     clientCapabilities(),
	}

	var result initializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return err
	}
	if result.ServerInfo != nil {
		c.serverName = result.ServerInfo.Name
		c.logger.WithFields(logrus.Fields{
			"server":  result.ServerInfo.Name,
			"version": result.ServerInfo.Version,
		}).Debug("language server initialized")
	}

	if err := c.notify(ctx, protocol.MethodInitialized, struct{}{}); err != nil {
		return err
	}
	c.ready.Store(true)
	return nil
}

// Validate sends doc to the server and waits for its diagnostics. A
// validation of an already validated (URI, version) is answered from cache.
func (c *Client) Validate(ctx context.Context, doc document.Document) ([]protocol.Diagnostic, error) {
	if !c.ready.Load() {
		return nil, engine.ErrNotInitialized
	}
	if diags, ok := c.docs.cached(doc.URI, doc.Version); ok {
		return diags, nil
	}

	published, cancel := c.hub.wait(doc.URI, doc.Version)
	defer cancel()

	if err := c.sync(ctx, doc); err != nil {
		return nil, engine.ClassifyError("validate", doc.Path, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var diags []protocol.Diagnostic
	select {
	case diags = <-published:
	case <-timer.C:
		c.logger.WithFields(logrus.Fields{
			"file":    doc.Path,
			"version": doc.Version,
			"timeout": c.timeout,
		}).Debug("no diagnostics published; treating document as clean")
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.conn.Done():
		return nil, c.exitError("validate")
	}

	c.docs.store(doc.URI, doc.Version, diags)
	return cloneDiagnostics(diags), nil
}

// sync opens doc on the server, or replaces its content when already open.
func (c *Client) sync(ctx context.Context, doc document.Document) error {
	if !c.docs.isOpen(doc.URI) {
		c.docs.sent(doc.URI, doc.Version)
		return c.notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
			TextDocument: doc.Item(),
		})
	}

	c.docs.sent(doc.URI, doc.Version)
	return c.notify(ctx, protocol.MethodTextDocumentDidChange, &didChangeParams{
		TextDocument: versionedIdentifier{URI: doc.URI, Version: doc.Version},
		ContentChanges: []fullContentChange{{
			Text: doc.Content,
		}},
	})
}

// didChangeParams carries full-document changes only.
type didChangeParams struct {
	TextDocument   versionedIdentifier `json:"textDocument"`
	ContentChanges []fullContentChange `json:"contentChanges"`
}

type versionedIdentifier struct {
	URI     protocol.DocumentURI `json:"uri"`
	Version int32                `json:"version"`
}

type fullContentChange struct {
	Text string `json:"text"`
}

// CodeActions requests the code actions for params. Bare commands in the
// response are skipped; only CodeAction literals are returned.
func (c *Client) CodeActions(
	ctx context.Context,
	doc document.Document,
	params *protocol.CodeActionParams,
) ([]protocol.CodeAction, error) {
	if !c.ready.Load() {
		return nil, engine.ErrNotInitialized
	}

	var raw []json.RawMessage
	if err := c.call(ctx, protocol.MethodTextDocumentCodeAction, params, &raw); err != nil {
		return nil, engine.ClassifyError("codeAction", doc.Path, err)
	}
	return decodeCodeActions(raw, c.logger), nil
}

func decodeCodeActions(raw []json.RawMessage, logger logrus.FieldLogger) []protocol.CodeAction {
	actions := make([]protocol.CodeAction, 0, len(raw))
	for _, item := range raw {
		var probe struct {
			Command json.RawMessage `json:"command"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			logger.WithError(err).Debug("skipping malformed code action")
			continue
		}
		// A Command has a string "command"; a CodeAction has an object.
		if len(probe.Command) > 0 && probe.Command[0] == '"' {
			continue
		}
		var action protocol.CodeAction
		if err := json.Unmarshal(item, &action); err != nil {
			logger.WithError(err).Debug("skipping malformed code action")
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// Release closes doc on the server and forgets its cached diagnostics.
func (c *Client) Release(ctx context.Context, doc document.Document) error {
	if !c.ready.Load() || !c.docs.isOpen(doc.URI) {
		return nil
	}
	c.docs.remove(doc.URI)
	return c.notify(ctx, protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: doc.Identifier(),
	})
}

// Stderr returns the tail of the server's stderr, if it was spawned.
func (c *Client) Stderr() string {
	if c.proc == nil {
		return ""
	}
	return c.proc.stderr.String()
}

// Close shuts the server down: shutdown, exit, then the process is given a
// grace period before it is killed. Calling Close again is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		wasReady := c.ready.Swap(false)

		ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()

		if wasReady {
			if err := c.call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
				if !errors.Is(err, ErrServerExited) {
					c.closeErr = err
				}
			} else if err := c.notify(ctx, protocol.MethodExit, nil); err != nil {
				c.logger.WithError(err).Debug("sending exit")
			}
		}

		if err := c.conn.Close(); err != nil {
			c.logger.WithError(err).Debug("closing language server connection")
		}
		if c.proc != nil {
			c.proc.stop(shutdownGrace)
		}
	})
	return c.closeErr
}

// call sends a request and waits for its response. It fails with
// ErrServerExited when the connection drops while waiting.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	_, err := c.conn.Call(ctx, method, params, result)
	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"duration": time.Since(start),
	}).Trace("lsp: call")

	if err != nil {
		select {
		case <-c.conn.Done():
			return c.exitError(method)
		default:
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) notify(ctx context.Context, method string, params any) error {
	c.logger.WithField("method", method).Trace("lsp: notify")
	if err := c.conn.Notify(ctx, method, params); err != nil {
		select {
		case <-c.conn.Done():
			return c.exitError(method)
		default:
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) exitError(op string) error {
	if tail := c.Stderr(); tail != "" {
		return fmt.Errorf("%s: %w (stderr: %s)", op, ErrServerExited, lastLine(tail))
	}
	return fmt.Errorf("%s: %w", op, ErrServerExited)
}

func lastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
