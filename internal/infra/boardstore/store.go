// Package boardstore persists per-project task boards as JSON files.
package boardstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// Store implements domain.BoardStore using one JSON file per project.
//
// Mutations of the same project serialize through a per-project mutex
// in-process and an exclusive file lock across processes. Loads take a
// shared file lock, so they interleave with writers but never observe a
// torn file thanks to the atomic rename on write.
type Store struct {
	clock   domain.Clock
	dataDir string
	mu      keyedMutex
}

// New creates a Store rooted at the given data directory. Board files live
// under <dataDir>/boards and are created on first write.
func New(dataDir string) *Store {
	return &Store{
		dataDir: dataDir,
		clock:   domain.RealClock{},
	}
}

// NewWithClock creates a Store with a custom clock. Used by tests to pin
// undo pruning times.
func NewWithClock(dataDir string, clock domain.Clock) *Store {
	return &Store{
		dataDir: dataDir,
		clock:   clock,
	}
}

// Load returns the project's board. A missing, empty or corrupt file yields
// an empty default board. A legacy flat-list file is migrated to the column
// layout and persisted before being returned.
func (s *Store) Load(projectID string) (*domain.Board, error) {
	path := s.boardPath(projectID)

	lock, err := s.acquireLock(path, syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	board, migrated := readBoard(path)
	s.releaseLock(lock)

	if migrated {
		// Persist the migrated layout exactly once; Mutate re-reads under
		// the exclusive lock and migrates again in memory before writing.
		return s.Mutate(projectID, func(*domain.Board) error { return nil })
	}
	return board, nil
}

// Mutate loads the board, applies fn and persists the result atomically.
// When fn returns an error nothing is written. The undo buffer is age-pruned
// and the column-membership invariant checked on every write.
func (s *Store) Mutate(projectID string, fn func(*domain.Board) error) (*domain.Board, error) {
	unlock := s.mu.lock(projectID)
	defer unlock()

	path := s.boardPath(projectID)
	lock, err := s.acquireLock(path, syscall.LOCK_EX)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(lock)

	board, _ := readBoard(path)
	if err := fn(board); err != nil {
		return nil, err
	}
	board.PruneDeleted(s.clock.Now())
	if err := board.Validate(); err != nil {
		return nil, fmt.Errorf("board invariant violated: %w", err)
	}
	if err := writeBoard(path, board); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *Store) boardPath(projectID string) string {
	return domain.BoardPath(s.dataDir, projectID)
}

func (s *Store) acquireLock(path string, lockType int) (*os.File, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create board directory: %w", err)
	}

	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

// flatTask is the legacy persisted task shape: a task plus its position in
// the flat, order-indexed list.
type flatTask struct {
	domain.Task
	Order int `json:"order"`
}

// flatBoard is the legacy persisted board document.
type flatBoard struct {
	Chat          map[string][]domain.RenderBlock `json:"chat"`
	ExecutionMode domain.ExecutionMode            `json:"executionMode"`
	Tasks         []flatTask                      `json:"tasks"`
	Version       int                             `json:"version"`
}

// readBoard decodes the board file. The second return reports whether a
// legacy flat document was migrated in memory and should be re-persisted.
// Unreadable or corrupt files yield an empty default board.
func readBoard(path string) (*domain.Board, bool) {
	content, err := os.ReadFile(path)
	if err != nil || len(content) == 0 {
		return domain.NewBoard(), false
	}

	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return domain.NewBoard(), false
	}

	if probe.Version >= domain.BoardVersion {
		var board domain.Board
		if err := json.Unmarshal(content, &board); err != nil {
			return domain.NewBoard(), false
		}
		board.Normalize()
		return &board, false
	}

	var legacy flatBoard
	if err := json.Unmarshal(content, &legacy); err != nil {
		return domain.NewBoard(), false
	}
	return migrate(&legacy), true
}

// migrate converts a flat, order-indexed task list into the column layout.
// Tasks keep their relative order; the order field is dropped. A task with
// an unknown status lands at the tail of todo. Idempotent: the migrated
// form carries the current version and is never migrated again.
func migrate(legacy *flatBoard) *domain.Board {
	board := domain.NewBoard()
	if legacy.ExecutionMode.IsValid() {
		board.ExecutionMode = legacy.ExecutionMode
	}
	if legacy.Chat != nil {
		board.Chat = legacy.Chat
	}

	slices.SortStableFunc(legacy.Tasks, func(a, b flatTask) int {
		return a.Order - b.Order
	})
	for _, ft := range legacy.Tasks {
		task := ft.Task
		status := task.Status
		if !status.IsValid() {
			status = domain.StatusTodo
		}
		board.Insert(&task, status, len(board.Column(status)))
	}

	board.Normalize()
	return board
}

func writeBoard(path string, board *domain.Board) error {
	content, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// keyedMutex hands out one mutex per key so different projects mutate in
// parallel while the same project serializes.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Ensure Store implements BoardStore.
var _ domain.BoardStore = (*Store)(nil)
