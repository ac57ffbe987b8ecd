package domain

import (
	"context"
	"time"
)

// BoardStore manages per-project board persistence.
//
// Mutate serializes with every other mutation of the same project: a
// per-project key mutex in-process plus an exclusive file lock across
// processes guarantee at most one in-flight mutation per project, while
// different projects proceed in parallel. Load may interleave with writers
// but always observes either the pre- or post-mutation snapshot.
type BoardStore interface {
	// Load returns the project's board. A missing or corrupt file yields an
	// empty default board, never an error.
	Load(projectID string) (*Board, error)

	// Mutate loads the board, applies fn and persists the result. When fn
	// returns an error nothing is written and the error is returned
	// unchanged. The undo buffer is age-pruned on every write.
	Mutate(projectID string, fn func(*Board) error) (*Board, error)
}

// ProjectRegistry manages the cross-project registry. Its mutations
// serialize under their own key, independent of any board.
type ProjectRegistry interface {
	// List returns all projects ordered by their ordering index.
	List() ([]*Project, error)

	// Get retrieves a project by id. Returns nil if not found.
	Get(id string) (*Project, error)

	// Add registers a project. Returns ErrProjectExists when the id or path
	// is already registered.
	Add(p *Project) error

	// Update replaces a registered project.
	Update(p *Project) error

	// Remove deletes a project from the registry.
	Remove(id string) error
}

// WorktreeManager isolates parallel task execution in git worktrees and
// reconciles them afterward. Worktrees and branches are named
// deterministically from the task short id.
type WorktreeManager interface {
	// CreateIsolated ensures the worktree root is git-ignored, then creates
	// a worktree and branch for the task. Idempotent: an existing worktree
	// for the short id is returned as is.
	CreateIsolated(projectPath, shortID string) (path string, err error)

	// Merge reconciles the task branch into the project's current branch
	// with a non-fast-forward merge, committing any uncommitted work in the
	// task worktree first. On success the worktree and branch are removed
	// and (nil, nil) is returned. On conflict the merge is aborted and the
	// conflicting paths are returned as data, not as an error.
	Merge(projectPath, shortID string) (*MergeConflict, error)

	// Remove force-removes the task worktree and best-effort deletes the
	// branch. Missing worktrees or branches are not errors.
	Remove(projectPath, shortID string) error

	// List returns all worktrees of the repository at projectPath.
	List(projectPath string) ([]WorktreeInfo, error)
}

// WorktreeInfo contains information about a worktree.
type WorktreeInfo struct {
	Path   string // Absolute path to worktree
	Branch string // Branch name
}

// Git provides repository inspection for the project registry.
type Git interface {
	// IsRepository reports whether dir is the root of a git repository.
	IsRepository(dir string) bool

	// RemoteURL returns the origin remote URL, or "" when the directory is
	// not a repository or has no origin remote.
	RemoteURL(dir string) string
}

// AgentRunner spawns and supervises exactly one external agent process per
// Start call.
type AgentRunner interface {
	// Start launches the agent with a sanitized environment and the prompt
	// on stdin. The returned process exposes stdout as a lazy, single-pass
	// chunk stream; cancelling ctx sends the process a termination signal.
	Start(ctx context.Context, spec AgentSpec) (AgentProcess, error)
}

// AgentSpec describes one agent invocation.
// Fields are ordered to minimize memory padding.
type AgentSpec struct {
	Command  string   // Binary to execute
	Dir      string   // Working directory (worktree or project root)
	Prompt   string   // Delivered on stdin
	Args     []string // Full argument list
	ExtraEnv []string // Appended after environment sanitization
}

// AgentProcess is a running agent.
type AgentProcess interface {
	// Chunks yields stdout chunks in arrival order. The channel closes at
	// EOF. Consumption is a blocking pull; backpressure is inherent.
	Chunks() <-chan []byte

	// Wait blocks until the process exits and all output is drained.
	Wait() AgentResult
}

// AgentResult is the outcome of an agent process.
// Fields are ordered to minimize memory padding.
type AgentResult struct {
	StderrTail string // Bounded tail of stderr, for failure reporting
	ExitCode   int    //
	Cancelled  bool   // Termination was requested via context
}

// SupervisorLauncher starts the detached supervisor process that owns an
// agent run after the dispatching call returns.
type SupervisorLauncher interface {
	// Launch starts the supervisor for the task and returns its pid.
	Launch(projectID, taskID string) (pid int, err error)
}

// ProcessSignaler delivers cooperative cancellation to a supervisor in
// another process.
type ProcessSignaler interface {
	// Terminate sends a termination signal. A process that is already gone
	// is not an error.
	Terminate(pid int) error
}

// ConfigLoader loads configuration.
type ConfigLoader interface {
	// Load returns the effective configuration (defaults, file, env).
	Load() (*Config, error)
}

// Logger writes categorized engine logs, globally and per task.
type Logger interface {
	// Debug logs a debug message. shortID may be empty for global entries.
	Debug(shortID, category, msg string)
	// Info logs an info message.
	Info(shortID, category, msg string)
	// Warn logs a warning.
	Warn(shortID, category, msg string)
	// Error logs an error.
	Error(shortID, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NopLogger discards all log output.
type NopLogger struct{}

// Debug discards the message.
func (NopLogger) Debug(string, string, string) {}

// Info discards the message.
func (NopLogger) Info(string, string, string) {}

// Warn discards the message.
func (NopLogger) Warn(string, string, string) {}

// Error discards the message.
func (NopLogger) Error(string, string, string) {}
