package integration

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	srvrpc "github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/tinovyatkin/twlint/internal/document"
	"github.com/tinovyatkin/twlint/internal/testutil"
)

// fakeServerEnv switches the test binary into language server mode.
const fakeServerEnv = "TWLINT_TEST_FAKE_SERVER"

// stdio joins the process's standard streams into one connection.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error {
	err := os.Stdin.Close()
	if cerr := os.Stdout.Close(); err == nil {
		err = cerr
	}
	return err
}

// fakeServer answers like a Tailwind v4 language server whose only
// diagnostic is the canonical class suggestion of testutil.CanonicalEngine.
type fakeServer struct {
	engine *testutil.CanonicalEngine

	mu       sync.Mutex
	contents map[protocol.DocumentURI]string
}

// serveFakeServer serves LSP on stdin/stdout until exit and returns the
// process exit code.
func serveFakeServer() int {
	fs := &fakeServer{
		engine:   testutil.NewCanonicalEngine(),
		contents: make(map[protocol.DocumentURI]string),
	}
	conn := srvrpc.NewConn(context.Background(),
		srvrpc.NewBufferedStream(stdio{}, srvrpc.VSCodeObjectCodec{}),
		srvrpc.AsyncHandler(srvrpc.HandlerWithError(fs.handle)),
	)
	<-conn.DisconnectNotify()
	return 0
}

func (fs *fakeServer) handle(ctx context.Context, conn *srvrpc.Conn, req *srvrpc.Request) (any, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	switch req.Method {
	case "initialize":
		return map[string]any{
			"capabilities": map[string]any{"textDocumentSync": 1, "codeActionProvider": true},
			"serverInfo":   map[string]any{"name": "fake-tailwindcss"},
		}, nil

	case "textDocument/didOpen":
		var p protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		fs.publish(ctx, conn, p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)
		return nil, nil

	case "textDocument/didChange":
		var p struct {
			TextDocument struct {
				URI     protocol.DocumentURI `json:"uri"`
				Version int32                `json:"version"`
			} `json:"textDocument"`
			ContentChanges []struct {
				Text string `json:"text"`
			} `json:"contentChanges"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		if n := len(p.ContentChanges); n > 0 {
			fs.publish(ctx, conn, p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges[n-1].Text)
		}
		return nil, nil

	case "textDocument/codeAction":
		var p protocol.CodeActionParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &srvrpc.Error{Code: srvrpc.CodeInvalidParams, Message: err.Error()}
		}
		fs.mu.Lock()
		doc := document.Document{URI: p.TextDocument.URI, Content: fs.contents[p.TextDocument.URI]}
		fs.mu.Unlock()
		return fs.engine.CodeActions(ctx, doc, &p)

	case "shutdown":
		return nil, nil

	case "exit":
		go func() { _ = conn.Close() }()
		return nil, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &srvrpc.Error{Code: srvrpc.CodeMethodNotFound, Message: "method not found: " + req.Method}
}

func (fs *fakeServer) publish(ctx context.Context, conn *srvrpc.Conn, u protocol.DocumentURI, version int32, text string) {
	fs.mu.Lock()
	fs.contents[u] = text
	fs.mu.Unlock()

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
