// Package testutil provides hand-written mocks for the domain ports.
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// Ensure MockClock implements domain.Clock.
var _ domain.Clock = (*MockClock)(nil)

// MockBoardStore is an in-memory test double for domain.BoardStore. Like the
// real store it hands out an empty board for unknown projects and validates
// the board after every mutation.
type MockBoardStore struct {
	Boards      map[string]*domain.Board
	LoadErr     error
	MutateErr   error
	MutateCalls int
}

// NewMockBoardStore creates a new MockBoardStore with initialized maps.
func NewMockBoardStore() *MockBoardStore {
	return &MockBoardStore{
		Boards: make(map[string]*domain.Board),
	}
}

// Ensure MockBoardStore implements domain.BoardStore.
var _ domain.BoardStore = (*MockBoardStore)(nil)

// Load returns the stored board or an empty default.
func (m *MockBoardStore) Load(projectID string) (*domain.Board, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if b, ok := m.Boards[projectID]; ok {
		return b, nil
	}
	return domain.NewBoard(), nil
}

// Mutate applies fn to the stored board and keeps the result when fn and the
// board invariants succeed.
func (m *MockBoardStore) Mutate(projectID string, fn func(*domain.Board) error) (*domain.Board, error) {
	m.MutateCalls++
	if m.MutateErr != nil {
		return nil, m.MutateErr
	}
	b, ok := m.Boards[projectID]
	if !ok {
		b = domain.NewBoard()
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	m.Boards[projectID] = b
	return b, nil
}

// Seed stores a board for a project, bypassing validation.
func (m *MockBoardStore) Seed(projectID string, b *domain.Board) {
	m.Boards[projectID] = b
}

// MockRegistry is an in-memory test double for domain.ProjectRegistry.
type MockRegistry struct {
	Projects  map[string]*domain.Project
	ListErr   error
	GetErr    error
	AddErr    error
	UpdateErr error
	RemoveErr error
}

// NewMockRegistry creates a new MockRegistry with initialized maps.
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{
		Projects: make(map[string]*domain.Project),
	}
}

// Ensure MockRegistry implements domain.ProjectRegistry.
var _ domain.ProjectRegistry = (*MockRegistry)(nil)

// List returns all projects ordered by ordering index, then id.
func (m *MockRegistry) List() ([]*domain.Project, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	projects := make([]*domain.Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Order != projects[j].Order {
			return projects[i].Order < projects[j].Order
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

// Get retrieves a project by id. Returns nil if not found.
func (m *MockRegistry) Get(id string) (*domain.Project, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Projects[id], nil
}

// Add registers a project, rejecting duplicate ids and paths.
func (m *MockRegistry) Add(p *domain.Project) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	for _, existing := range m.Projects {
		if existing.ID == p.ID || existing.Path == p.Path {
			return domain.ErrProjectExists
		}
	}
	m.Projects[p.ID] = p
	return nil
}

// Update replaces a registered project.
func (m *MockRegistry) Update(p *domain.Project) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.Projects[p.ID]; !ok {
		return domain.ErrProjectNotFound
	}
	m.Projects[p.ID] = p
	return nil
}

// Remove deletes a project from the registry.
func (m *MockRegistry) Remove(id string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	if _, ok := m.Projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(m.Projects, id)
	return nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	CreateErr  error
	MergeErr   error
	RemoveErr  error
	ListErr    error
	Conflict   *domain.MergeConflict
	CreatePath string
	Created    []string
	Merged     []string
	Removed    []string
	Worktrees  []domain.WorktreeInfo
}

// NewMockWorktreeManager creates a new MockWorktreeManager.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{}
}

// Ensure MockWorktreeManager implements domain.WorktreeManager.
var _ domain.WorktreeManager = (*MockWorktreeManager)(nil)

// CreateIsolated records the call and returns the configured path, or the
// deterministic worktree path when none is configured.
func (m *MockWorktreeManager) CreateIsolated(projectPath, shortID string) (string, error) {
	m.Created = append(m.Created, shortID)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if m.CreatePath != "" {
		return m.CreatePath, nil
	}
	return domain.WorktreePath(projectPath, shortID), nil
}

// Merge records the call and returns the configured conflict or error.
func (m *MockWorktreeManager) Merge(_, shortID string) (*domain.MergeConflict, error) {
	m.Merged = append(m.Merged, shortID)
	if m.MergeErr != nil {
		return nil, m.MergeErr
	}
	return m.Conflict, nil
}

// Remove records the call and returns the configured error.
func (m *MockWorktreeManager) Remove(_, shortID string) error {
	m.Removed = append(m.Removed, shortID)
	return m.RemoveErr
}

// List returns the configured worktrees or error.
func (m *MockWorktreeManager) List(_ string) ([]domain.WorktreeInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Worktrees, nil
}

// MockGit is a test double for domain.Git.
type MockGit struct {
	RemoteVal string
	RepoVal   bool
}

// Ensure MockGit implements domain.Git.
var _ domain.Git = (*MockGit)(nil)

// IsRepository returns the configured value.
func (m *MockGit) IsRepository(_ string) bool {
	return m.RepoVal
}

// RemoteURL returns the configured value.
func (m *MockGit) RemoteURL(_ string) string {
	return m.RemoteVal
}

// MockProcess is a scripted domain.AgentProcess: it replays the configured
// output chunks and reports the configured result.
type MockProcess struct {
	Output [][]byte
	Result domain.AgentResult
}

// Ensure MockProcess implements domain.AgentProcess.
var _ domain.AgentProcess = (*MockProcess)(nil)

// Chunks replays the configured output and closes the channel.
func (m *MockProcess) Chunks() <-chan []byte {
	ch := make(chan []byte, len(m.Output))
	for _, chunk := range m.Output {
		ch <- chunk
	}
	close(ch)
	return ch
}

// Wait returns the configured result.
func (m *MockProcess) Wait() domain.AgentResult {
	return m.Result
}

// MockRunner is a test double for domain.AgentRunner.
// Fields are ordered to minimize memory padding.
type MockRunner struct {
	Process     *MockProcess
	StartErr    error
	Spec        domain.AgentSpec
	StartCalled bool
}

// Ensure MockRunner implements domain.AgentRunner.
var _ domain.AgentRunner = (*MockRunner)(nil)

// Start records the spec and returns the configured process or error.
func (m *MockRunner) Start(_ context.Context, spec domain.AgentSpec) (domain.AgentProcess, error) {
	m.StartCalled = true
	m.Spec = spec
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	return m.Process, nil
}

// MockLauncher is a test double for domain.SupervisorLauncher.
// Fields are ordered to minimize memory padding.
type MockLauncher struct {
	LaunchErr    error
	ProjectID    string
	TaskID       string
	PID          int
	LaunchCalled bool
}

// NewMockLauncher creates a new MockLauncher with a fixed pid.
func NewMockLauncher() *MockLauncher {
	return &MockLauncher{PID: 4242}
}

// Ensure MockLauncher implements domain.SupervisorLauncher.
var _ domain.SupervisorLauncher = (*MockLauncher)(nil)

// Launch records the call and returns the configured pid or error.
func (m *MockLauncher) Launch(projectID, taskID string) (int, error) {
	m.LaunchCalled = true
	m.ProjectID = projectID
	m.TaskID = taskID
	if m.LaunchErr != nil {
		return 0, m.LaunchErr
	}
	return m.PID, nil
}

// MockSignaler is a test double for domain.ProcessSignaler.
type MockSignaler struct {
	TerminateErr error
	Terminated   []int
}

// Ensure MockSignaler implements domain.ProcessSignaler.
var _ domain.ProcessSignaler = (*MockSignaler)(nil)

// Terminate records the pid and returns the configured error.
func (m *MockSignaler) Terminate(pid int) error {
	m.Terminated = append(m.Terminated, pid)
	return m.TerminateErr
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// NewMockConfigLoader creates a new MockConfigLoader with the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{
		Config: domain.NewDefaultConfig(),
	}
}

// Ensure MockConfigLoader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// MockFollower is a scripted live-block follower: it emits the configured
// blocks in order and returns the configured error.
type MockFollower struct {
	Err       error
	ProjectID string
	TaskID    string
	Blocks    []domain.RenderBlock
}

// Follow records the call and replays the configured blocks.
func (m *MockFollower) Follow(_ context.Context, projectID, taskID string, emit func(domain.RenderBlock)) error {
	m.ProjectID = projectID
	m.TaskID = taskID
	for _, b := range m.Blocks {
		emit(b)
	}
	return m.Err
}
