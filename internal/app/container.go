// Package app wires configuration, stores and clients into use cases.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/infra/agentproc"
	"github.com/coreycrellin/deckhand/internal/infra/boardstore"
	"github.com/coreycrellin/deckhand/internal/infra/config"
	"github.com/coreycrellin/deckhand/internal/infra/git"
	"github.com/coreycrellin/deckhand/internal/infra/logging"
	"github.com/coreycrellin/deckhand/internal/infra/registry"
	"github.com/coreycrellin/deckhand/internal/infra/stream"
	"github.com/coreycrellin/deckhand/internal/infra/worktree"
	"github.com/coreycrellin/deckhand/internal/usecase"
)

// EnvDataDir overrides the data directory when set.
const EnvDataDir = "DECKHAND_DATA_DIR"

// DataDir resolves the deckhand data directory: $DECKHAND_DATA_DIR if set,
// else $XDG_DATA_HOME/deckhand, else ~/.local/share/deckhand.
func DataDir() (string, error) {
	if d := os.Getenv(EnvDataDir); d != "" {
		return d, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "deckhand"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "deckhand"), nil
}

// Container owns the bound port implementations and hands out use cases
// built on them. Tests swap individual ports through NewWithDeps.
type Container struct {
	// Ports (interfaces bound to implementations)
	Boards       domain.BoardStore
	Registry     domain.ProjectRegistry
	Worktrees    domain.WorktreeManager
	Git          domain.Git
	Runner       domain.AgentRunner
	Launcher     domain.SupervisorLauncher
	Signaler     domain.ProcessSignaler
	ConfigLoader domain.ConfigLoader
	Follower     usecase.BlockFollower
	Clock        domain.Clock
	Logger       domain.Logger

	// Paths
	DataDir    string
	ConfigPath string

	fileLogger *logging.Logger
}

// New creates a Container wired against the real filesystem, git and agent
// binaries.
func New() (*Container, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, err
	}

	loader := config.NewLoader()
	// A broken config file must not take every command down; the defaults
	// apply and the load error resurfaces on config show.
	level := domain.DefaultLogLevel
	if cfg, err := loader.Load(); err == nil {
		level = cfg.Log.Level
	}
	logger := logging.New(dataDir, logging.ParseLevel(level))

	boards := boardstore.New(dataDir)

	return &Container{
		Boards:       boards,
		Registry:     registry.New(dataDir),
		Worktrees:    worktree.New(logger),
		Git:          git.New(),
		Runner:       agentproc.NewRunner(logger),
		Launcher:     agentproc.NewLauncher(dataDir, logger),
		Signaler:     agentproc.Signaler{},
		ConfigLoader: loader,
		Follower:     stream.NewFollower(boards, dataDir, logger),
		Clock:        domain.RealClock{},
		Logger:       logger,
		DataDir:      dataDir,
		ConfigPath:   loader.Path(),
		fileLogger:   logger,
	}, nil
}

// NewWithDeps creates a Container with custom dependencies for testing.
func NewWithDeps(boards domain.BoardStore, reg domain.ProjectRegistry, clock domain.Clock, logger domain.Logger) *Container {
	return &Container{
		Boards:   boards,
		Registry: reg,
		Clock:    clock,
		Logger:   logger,
	}
}

// Close releases resources held by the container, currently the log files.
func (c *Container) Close() error {
	if c.fileLogger != nil {
		return c.fileLogger.Close()
	}
	return nil
}

// UseCase factory methods

// AddProjectUseCase returns a new AddProject use case.
func (c *Container) AddProjectUseCase() *usecase.AddProject {
	return usecase.NewAddProject(c.Registry, c.Git, c.Clock, c.Logger)
}

// ListProjectsUseCase returns a new ListProjects use case.
func (c *Container) ListProjectsUseCase() *usecase.ListProjects {
	return usecase.NewListProjects(c.Registry, c.Boards)
}

// RemoveProjectUseCase returns a new RemoveProject use case.
func (c *Container) RemoveProjectUseCase() *usecase.RemoveProject {
	return usecase.NewRemoveProject(c.Registry, c.Logger)
}

// SetModeUseCase returns a new SetMode use case.
func (c *Container) SetModeUseCase() *usecase.SetMode {
	return usecase.NewSetMode(c.Registry, c.Boards, c.Logger)
}

// CreateTaskUseCase returns a new CreateTask use case.
func (c *Container) CreateTaskUseCase() *usecase.CreateTask {
	return usecase.NewCreateTask(c.Boards, c.Clock, c.Logger)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.Boards)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.Boards)
}

// MoveTaskUseCase returns a new MoveTask use case.
func (c *Container) MoveTaskUseCase() *usecase.MoveTask {
	return usecase.NewMoveTask(c.Boards, c.Registry, c.Worktrees, c.Clock, c.Logger)
}

// UpdateTaskUseCase returns a new UpdateTask use case.
func (c *Container) UpdateTaskUseCase() *usecase.UpdateTask {
	return usecase.NewUpdateTask(c.Boards, c.Clock, c.Logger)
}

// DeleteTaskUseCase returns a new DeleteTask use case.
func (c *Container) DeleteTaskUseCase() *usecase.DeleteTask {
	return usecase.NewDeleteTask(c.Boards, c.Clock, c.Logger)
}

// RestoreTaskUseCase returns a new RestoreTask use case.
func (c *Container) RestoreTaskUseCase() *usecase.RestoreTask {
	return usecase.NewRestoreTask(c.Boards, c.Clock, c.Logger)
}

// ImportTasksUseCase returns a new ImportTasks use case.
func (c *Container) ImportTasksUseCase() *usecase.ImportTasks {
	return usecase.NewImportTasks(c.Boards, c.Clock, c.Logger)
}

// DispatchTaskUseCase returns a new DispatchTask use case.
func (c *Container) DispatchTaskUseCase() *usecase.DispatchTask {
	return usecase.NewDispatchTask(c.Boards, c.Registry, c.Worktrees, c.Launcher, c.Clock, c.Logger)
}

// CompleteTaskUseCase returns a new CompleteTask use case.
func (c *Container) CompleteTaskUseCase() *usecase.CompleteTask {
	return usecase.NewCompleteTask(c.Boards, c.Registry, c.Worktrees, c.Clock, c.Logger)
}

// RunAgentUseCase returns a new RunAgent use case.
func (c *Container) RunAgentUseCase() *usecase.RunAgent {
	return usecase.NewRunAgent(c.Boards, c.Registry, c.Runner, c.ConfigLoader, c.CompleteTaskUseCase(), c.Clock, c.Logger)
}

// AbortTaskUseCase returns a new AbortTask use case.
func (c *Container) AbortTaskUseCase() *usecase.AbortTask {
	return usecase.NewAbortTask(c.Boards, c.Signaler, c.Clock, c.Logger)
}

// FollowUpTaskUseCase returns a new FollowUpTask use case.
func (c *Container) FollowUpTaskUseCase() *usecase.FollowUpTask {
	return usecase.NewFollowUpTask(c.Boards, c.DispatchTaskUseCase(), c.Clock, c.Logger)
}

// WatchTaskUseCase returns a new WatchTask use case.
func (c *Container) WatchTaskUseCase() *usecase.WatchTask {
	return usecase.NewWatchTask(c.Boards, c.Follower)
}

// PruneWorktreesUseCase returns a new PruneWorktrees use case.
func (c *Container) PruneWorktreesUseCase() *usecase.PruneWorktrees {
	return usecase.NewPruneWorktrees(c.Registry, c.Boards, c.Worktrees, c.Logger)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig()
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigLoader, c.ConfigPath)
}
