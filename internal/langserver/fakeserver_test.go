package langserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	srvrpc "github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
	"github.com/tinovyatkin/twlint/internal/testutil"
)

// fakeServer is an in-process stand-in for the Tailwind language server.
// It speaks LSP through a separate JSON-RPC implementation, pulls settings
// with workspace/configuration like the real server, and reports canonical
// class suggestions computed by testutil.CanonicalEngine.
type fakeServer struct {
	engine *testutil.CanonicalEngine

	// silent suppresses publishDiagnostics.
	silent bool

	// crash makes codeAction fail with an internal error carrying this message.
	crash string

	mu       sync.Mutex
	events   []string
	contents map[protocol.DocumentURI]string
	settings []json.RawMessage

	conn *srvrpc.Conn
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		engine:   testutil.NewCanonicalEngine(),
		contents: make(map[protocol.DocumentURI]string),
	}
}

// connect wires the fake server to a new Client and returns the client.
func (fs *fakeServer) connect(t *testing.T, opts Options) *Client {
	t.Helper()

	clientEnd, serverEnd := connectedEndpoints()
	ctx, cancel := context.WithCancel(context.Background())

	// Messages are handled on the read loop so events are recorded in wire
	// order. Work that calls back into the client runs in its own goroutine.
	fs.conn = srvrpc.NewConn(ctx,
		srvrpc.NewBufferedStream(serverEnd, srvrpc.VSCodeObjectCodec{}),
		srvrpc.HandlerWithError(fs.handle),
	)

	client, err := Connect(ctx, clientEnd, opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close(context.Background())
		// EOF on the server's read side ends its read loop.
		_ = clientEnd.Close()
		select {
		case <-fs.conn.DisconnectNotify():
		case <-time.After(5 * time.Second):
			t.Error("fake server did not disconnect")
		}
		_ = fs.conn.Close()
		cancel()
		_ = serverEnd.Close()
	})
	return client
}

func (fs *fakeServer) record(format string, args ...any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.events = append(fs.events, fmt.Sprintf(format, args...))
}

// Events returns the messages the server received, in order.
func (fs *fakeServer) Events() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.events...)
}

// Settings returns the workspace/configuration answers received.
func (fs *fakeServer) Settings() []json.RawMessage {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]json.RawMessage(nil), fs.settings...)
}

func (fs *fakeServer) handle(ctx context.Context, conn *srvrpc.Conn, req *srvrpc.Request) (any, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	switch req.Method {
	case "initialize":
		var p struct {
			RootURI    string `json:"rootUri"`
			ClientInfo struct {
				Name string `json:"name"`
			} `json:"clientInfo"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &srvrpc.Error{Code: srvrpc.CodeInvalidParams, Message: err.Error()}
		}
		fs.record("initialize %s", p.ClientInfo.Name)
		return map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync":   1,
				"codeActionProvider": true,
			},
			"serverInfo": map[string]any{"name": "fake-tailwindcss", "version": "0.0.0"},
		}, nil

	case "initialized":
		fs.record("initialized")
		go func() {
			var ignored any
			_ = conn.Call(ctx, "client/registerCapability", map[string]any{"registrations": []any{}}, &ignored)
		}()
		return nil, nil

	case "textDocument/didOpen":
		var p protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		fs.record("didOpen v%d", p.TextDocument.Version)
		fs.store(p.TextDocument.URI, p.TextDocument.Text)
		go fs.update(ctx, conn, p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)
		return nil, nil

	case "textDocument/didChange":
		var p struct {
			TextDocument struct {
				URI     protocol.DocumentURI `json:"uri"`
				Version int32                `json:"version"`
			} `json:"textDocument"`
			ContentChanges []struct {
				Range *protocol.Range `json:"range"`
				Text  string          `json:"text"`
			} `json:"contentChanges"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		if len(p.ContentChanges) != 1 || p.ContentChanges[0].Range != nil {
			fs.record("didChange v%d not full", p.TextDocument.Version)
			return nil, nil
		}
		fs.record("didChange v%d", p.TextDocument.Version)
		fs.store(p.TextDocument.URI, p.ContentChanges[0].Text)
		go fs.update(ctx, conn, p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges[0].Text)
		return nil, nil

	case "textDocument/didClose":
		fs.record("didClose")
		return nil, nil

	case "textDocument/codeAction":
		var p protocol.CodeActionParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &srvrpc.Error{Code: srvrpc.CodeInvalidParams, Message: err.Error()}
		}
		fs.record("codeAction")
		if fs.crash != "" {
			return nil, &srvrpc.Error{Code: srvrpc.CodeInternalError, Message: fs.crash}
		}
		fs.mu.Lock()
		doc := document.Document{URI: p.TextDocument.URI, Content: fs.contents[p.TextDocument.URI]}
		fs.mu.Unlock()
		actions, err := fs.engine.CodeActions(ctx, doc, &p)
		if err != nil {
			return nil, err
		}
		// The real server mixes bare commands into the response.
		result := []any{map[string]any{"title": "Open documentation", "command": "tailwindCSS.docs"}}
		for _, a := range actions {
			result = append(result, a)
		}
		return result, nil

	case "shutdown":
		fs.record("shutdown")
		return nil, nil

	case "exit":
		fs.record("exit")
		go func() { _ = conn.Close() }()
		return nil, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &srvrpc.Error{Code: srvrpc.CodeMethodNotFound, Message: "method not found: " + req.Method}
}

func (fs *fakeServer) store(u protocol.DocumentURI, text string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.contents[u] = text
}

// update pulls settings and publishes diagnostics for text.
func (fs *fakeServer) update(ctx context.Context, conn *srvrpc.Conn, u protocol.DocumentURI, version int32, text string) {

	var settings []json.RawMessage
	err := conn.Call(ctx, "workspace/configuration", map[string]any{
		"items": []map[string]any{
			{"scopeUri": string(u), "section": "tailwindCSS"},
			{"scopeUri": string(u), "section": "editor"},
		},
	}, &settings)
	if err == nil {
		fs.mu.Lock()
		fs.settings = append(fs.settings, settings...)
		fs.mu.Unlock()
	}

	if fs.silent {
		return
	}
	diags := testutil.CanonicalDiagnostics(text)
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	_ = conn.Notify(ctx, "textDocument/publishDiagnostics", map[string]any{
		"uri":         u,
		"version":     version,
		"diagnostics": diags,
	})
}
