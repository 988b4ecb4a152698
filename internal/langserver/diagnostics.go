package langserver

import (
	"sync"

	"go.lsp.dev/protocol"
)

// publishDiagnosticsParams mirrors textDocument/publishDiagnostics; Version
// is optional on the wire.
type publishDiagnosticsParams struct {
	URI         protocol.DocumentURI  `json:"uri"`
	Version     *int32                `json:"version,omitempty"`
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

type diagnosticsWaiter struct {
	version int32
	ch      chan []protocol.Diagnostic
}

// diagnosticsHub routes published diagnostics to the Validate call waiting
// for them. At most one waiter exists per document.
type diagnosticsHub struct {
	mu      sync.Mutex
	waiters map[string]*diagnosticsWaiter
}

func newDiagnosticsHub() *diagnosticsHub {
	return &diagnosticsHub{waiters: make(map[string]*diagnosticsWaiter)}
}

// wait registers interest in the next publish for (u, version). It must be
// called before the notification that triggers the publish is sent. The
// returned func unregisters the waiter.
func (h *diagnosticsHub) wait(u protocol.DocumentURI, version int32) (<-chan []protocol.Diagnostic, func()) {
	key := uriKey(u)
	w := &diagnosticsWaiter{version: version, ch: make(chan []protocol.Diagnostic, 1)}

	h.mu.Lock()
	h.waiters[key] = w
	h.mu.Unlock()

	return w.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.waiters[key] == w {
			delete(h.waiters, key)
		}
	}
}

// publish delivers params to a matching waiter. Publishes nobody waits for,
// or that carry another version, are dropped.
func (h *diagnosticsHub) publish(params publishDiagnosticsParams) bool {
	key := uriKey(params.URI)

	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.waiters[key]
	if !ok {
		return false
	}
	if params.Version != nil && *params.Version != 0 && *params.Version != w.version {
		return false
	}
	delete(h.waiters, key)
	w.ch <- cloneDiagnostics(params.Diagnostics)
	return true
}
