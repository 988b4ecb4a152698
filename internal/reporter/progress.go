package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress renders a single self-overwriting "[current/total] file" line.
// A disabled Progress writes nothing.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	width   int
}

// NewProgress creates a progress line on w.
func NewProgress(w io.Writer, enabled bool) *Progress {
	return &Progress{w: w, enabled: enabled}
}

// Update shows that file number current of total is starting.
func (p *Progress) Update(current, total int, file string) {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("[%d/%d] %s", current, total, file)
	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.width = len(line)
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
}

// Done erases the progress line.
func (p *Progress) Done() {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.width > 0 {
		fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.width))
		p.width = 0
	}
}
