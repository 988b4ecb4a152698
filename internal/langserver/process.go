package langserver

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/armon/circbuf"
	"mvdan.cc/sh/v3/shell"
)

// stderrTailSize bounds how much of the server's stderr is kept.
const stderrTailSize = 16 << 10

// ProcessError reports a language server that failed to start or died,
// together with the tail of what it wrote to stderr.
type ProcessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("language server %q: %v", e.Command, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// tailBuffer keeps the last bytes written to it. exec copies stderr from
// its own goroutine, so access is serialized.
type tailBuffer struct {
	mu  sync.Mutex
	buf *circbuf.Buffer
}

func newTailBuffer() *tailBuffer {
	buf, err := circbuf.NewBuffer(stderrTailSize)
	if err != nil {
		// Only fails for non-positive sizes.
		panic(err)
	}
	return &tailBuffer{buf: buf}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}

// process is a spawned language server speaking LSP on stdio.
type process struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	exited chan struct{}
	err    error
}

// processIO wraps subprocess stdin/stdout as an io.ReadWriteCloser
// for use with jsonrpc2.NewStream.
type processIO struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (p *processIO) Read(data []byte) (int, error)  { return p.reader.Read(data) }
func (p *processIO) Write(data []byte) (int, error) { return p.writer.Write(data) }
func (p *processIO) Close() error                   { return p.writer.Close() }

// splitCommand splits a configured command line the way a POSIX shell would.
func splitCommand(command string) ([]string, error) {
	args, err := shell.Fields(command, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing server command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, errors.New("server command is empty")
	}
	return args, nil
}

// startProcess launches args in dir and returns its stdio stream.
func startProcess(args []string, dir string) (*process, io.ReadWriteCloser, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	tail := newTailBuffer()
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	p := &process{cmd: cmd, stderr: tail, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.exited)
	}()
	return p, &processIO{reader: stdout, writer: stdin}, nil
}

// stop waits up to grace for the process to exit, then kills it.
func (p *process) stop(grace time.Duration) {
	select {
	case <-p.exited:
		return
	case <-time.After(grace):
	}
	_ = p.cmd.Process.Kill()
	<-p.exited
}

// kill terminates the process and waits for it to exit.
func (p *process) kill() {
	select {
	case <-p.exited:
		return
	default:
	}
	_ = p.cmd.Process.Kill()
	<-p.exited
}
