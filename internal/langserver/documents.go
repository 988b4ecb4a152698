package langserver

import (
	"net/url"
	"sync"

	"go.lsp.dev/protocol"
)

// documentState tracks what the server has been told about one document.
type documentState struct {
	// Version is the last version sent with didOpen or didChange.
	Version int32

	// Validated is set once diagnostics for Version are known.
	Validated bool

	Diagnostics []protocol.Diagnostic
}

// documentStore manages the documents opened on the server.
// It is safe for concurrent access.
type documentStore struct {
	mu   sync.Mutex
	docs map[string]*documentState
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: make(map[string]*documentState)}
}

// isOpen reports whether didOpen was sent for the document.
func (s *documentStore) isOpen(u protocol.DocumentURI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[uriKey(u)]
	return ok
}

// sent records that version was sent to the server.
func (s *documentStore) sent(u protocol.DocumentURI, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uriKey(u)] = &documentState{Version: version}
}

// cached returns the diagnostics already known for (u, version).
func (s *documentStore) cached(u protocol.DocumentURI, version int32) ([]protocol.Diagnostic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.docs[uriKey(u)]
	if !ok || !st.Validated || st.Version != version {
		return nil, false
	}
	return cloneDiagnostics(st.Diagnostics), true
}

// store records the diagnostics for (u, version). Results for a version
// other than the last one sent are dropped.
func (s *documentStore) store(u protocol.DocumentURI, version int32, diags []protocol.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.docs[uriKey(u)]
	if !ok || st.Version != version {
		return
	}
	st.Validated = true
	st.Diagnostics = cloneDiagnostics(diags)
}

// remove forgets a document.
func (s *documentStore) remove(u protocol.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uriKey(u))
}

// uriKey normalizes percent-encoding so URIs echoed back by the server
// match the ones we sent.
func uriKey(u protocol.DocumentURI) string {
	s := string(u)
	if unescaped, err := url.PathUnescape(s); err == nil {
		return unescaped
	}
	return s
}

func cloneDiagnostics(diags []protocol.Diagnostic) []protocol.Diagnostic {
	if diags == nil {
		return nil
	}
	return append([]protocol.Diagnostic(nil), diags...)
}
