package agentproc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// Launcher starts the detached supervisor process that owns an agent run.
// The supervisor is this binary re-invoked with a hidden command, in its own
// session so the dispatching CLI can exit (or be interrupted) without taking
// the run down with it.
type Launcher struct {
	logger  domain.Logger
	dataDir string
}

// NewLauncher creates a Launcher writing supervisor output to the per-task
// log under dataDir.
func NewLauncher(dataDir string, logger domain.Logger) *Launcher {
	return &Launcher{dataDir: dataDir, logger: logger}
}

// Ensure Launcher implements domain.SupervisorLauncher.
var _ domain.SupervisorLauncher = (*Launcher)(nil)

// Launch starts the supervisor for the task and returns its pid.
func (l *Launcher) Launch(projectID, taskID string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}

	shortID := domain.ShortID(taskID)
	logPath := domain.TaskLogPath(l.dataDir, shortID)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return 0, fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open task log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	cmd := exec.Command(exe, "_run-agent", projectID, taskID)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start supervisor: %w", err)
	}
	pid := cmd.Process.Pid
	// The supervisor is detached; init reaps it when it exits.
	_ = cmd.Process.Release()

	l.logger.Info(shortID, "dispatch", fmt.Sprintf("launched supervisor pid %d", pid))
	return pid, nil
}
