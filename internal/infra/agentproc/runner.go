// Package agentproc spawns and supervises external agent processes.
package agentproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// stderrTailLimit bounds the in-memory stderr capture per process.
const stderrTailLimit = 8 * 1024

// termWaitDelay is how long a cancelled process gets to exit after SIGTERM
// before it is killed.
const termWaitDelay = 5 * time.Second

// Runner implements domain.AgentRunner on top of os/exec.
type Runner struct {
	logger domain.Logger
}

// NewRunner creates a Runner.
func NewRunner(logger domain.Logger) *Runner {
	return &Runner{logger: logger}
}

// Ensure Runner implements domain.AgentRunner.
var _ domain.AgentRunner = (*Runner)(nil)

// Start launches the agent with a sanitized environment and the prompt on
// stdin. Stdout is exposed as a lazy, single-pass chunk stream; stderr is
// drained concurrently into a bounded tail buffer so a chatty child never
// stalls on a full pipe. Cancelling ctx sends SIGTERM.
func (r *Runner) Start(ctx context.Context, spec domain.AgentSpec) (domain.AgentProcess, error) {
	// #nosec G204 - command comes from trusted configuration
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(sanitizedEnv(), spec.ExtraEnv...)
	cmd.Stdin = strings.NewReader(spec.Prompt)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = termWaitDelay

	stderr := &tailBuffer{max: stderrTailLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start agent process: %w", err)
	}

	p := &process{
		ctx:      ctx,
		cmd:      cmd,
		stderr:   stderr,
		chunks:   make(chan []byte),
		pumpDone: make(chan struct{}),
	}
	go p.pump(stdout)
	return p, nil
}

// process is one running agent.
type process struct {
	ctx      context.Context
	cmd      *exec.Cmd
	stderr   *tailBuffer
	chunks   chan []byte
	pumpDone chan struct{}
	waitOnce sync.Once
	result   domain.AgentResult
}

// Chunks yields stdout chunks in arrival order. The channel closes at EOF.
func (p *process) Chunks() <-chan []byte {
	return p.chunks
}

// pump moves stdout into the chunk channel. The consumer's read pace is the
// only thing that advances the pipe, so backpressure is inherent.
func (p *process) pump(stdout io.Reader) {
	defer close(p.pumpDone)
	defer close(p.chunks)

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case p.chunks <- chunk:
			case <-p.ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Wait blocks until the process exits and all output is drained.
func (p *process) Wait() domain.AgentResult {
	p.waitOnce.Do(func() {
		<-p.pumpDone
		err := p.cmd.Wait()

		exitCode := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		p.result = domain.AgentResult{
			ExitCode:   exitCode,
			Cancelled:  p.ctx.Err() != nil,
			StderrTail: p.stderr.String(),
		}
	})
	return p.result
}

// sanitizedEnv returns the current environment minus variables that would
// make the spawned agent believe it is nested inside another agent session,
// and minus inherited port bindings that would collide with ours.
func sanitizedEnv() []string {
	return slices.DeleteFunc(os.Environ(), func(e string) bool {
		name, _, _ := strings.Cut(e, "=")
		if name == "PORT" || name == "DECKHAND_PORT" {
			return true
		}
		return strings.HasPrefix(name, "CLAUDECODE") || strings.HasPrefix(name, "CLAUDE_CODE_")
	})
}

// tailBuffer is an io.Writer keeping only the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		trimmed := make([]byte, b.max)
		copy(trimmed, b.buf[len(b.buf)-b.max:])
		b.buf = trimmed
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
