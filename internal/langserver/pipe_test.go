package langserver

import (
	"io"
	"sync"
)

// memPipe is one direction of an in-memory connection. Writes never block;
// reads block until data arrives or the pipe is closed.
type memPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newMemPipe() *memPipe {
	p := &memPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *memPipe) Read(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.buf) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(data, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *memPipe) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, data...)
	p.cond.Broadcast()
	return len(data), nil
}

func (p *memPipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Broadcast()
	return nil
}

// endpoint joins the read side of one pipe and the write side of another.
// Closing it closes the outgoing pipe so the peer sees EOF.
type endpoint struct {
	in  *memPipe
	out *memPipe
}

func (e endpoint) Read(p []byte) (int, error)  { return e.in.Read(p) }
func (e endpoint) Write(p []byte) (int, error) { return e.out.Write(p) }
func (e endpoint) Close() error                { return e.out.Close() }

// connectedEndpoints returns the two ends of an in-memory duplex stream.
func connectedEndpoints() (client, server endpoint) {
	c2s, s2c := newMemPipe(), newMemPipe()
	return endpoint{in: s2c, out: c2s}, endpoint{in: c2s, out: s2c}
}
