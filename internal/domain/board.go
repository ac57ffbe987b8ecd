package domain

import (
	"fmt"
	"strings"
	"time"
)

// Undo windows. Deleted tasks are archived for UndoRetention and pruned by
// age on every write; RestoreLast only considers entries deleted within
// UndoPeekWindow.
const (
	UndoRetention  = 15 * time.Minute
	UndoPeekWindow = 2 * time.Minute
)

// BoardVersion is the persisted board schema version. Version 1 stored a
// flat, order-indexed task list; version 2 stores columns.
const BoardVersion = 2

// ExecutionMode selects how dispatched tasks get their working directory.
type ExecutionMode string

const (
	// ModeSequential runs every agent in the shared project working tree.
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel gives each in-progress task an isolated worktree and branch.
	ModeParallel ExecutionMode = "parallel"
)

// IsValid returns true if the mode is a known value.
func (m ExecutionMode) IsValid() bool {
	return m == ModeSequential || m == ModeParallel
}

// ParseExecutionMode converts user input into an ExecutionMode.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	m := ExecutionMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidExecutionMode, s)
	}
	return m, nil
}

// Board is one project's task state: four ordered columns, the undo buffer,
// the per-task chat history and the execution mode.
// Fields are ordered to minimize memory padding.
type Board struct {
	Chat          map[string][]RenderBlock `json:"chat,omitempty"`    // Task ID → render blocks
	Deleted       []DeletedTaskEntry       `json:"deleted,omitempty"` // Undo buffer, newest last
	Columns       Columns                  `json:"columns"`           //
	ExecutionMode ExecutionMode            `json:"executionMode"`     //
	Version       int                      `json:"version"`           //
}

// Columns holds the four status columns. Order within a column is the board
// order; a task's column is its status.
type Columns struct {
	Todo       []*Task `json:"todo"`
	InProgress []*Task `json:"inProgress"`
	Verify     []*Task `json:"verify"`
	Done       []*Task `json:"done"`
}

// DeletedTaskEntry snapshots a deleted task for undo.
// Fields are ordered to minimize memory padding.
type DeletedTaskEntry struct {
	DeletedAt time.Time `json:"deletedAt"`
	Task      *Task     `json:"task"`
	Column    Status    `json:"column"`
	Index     int       `json:"index"`
}

// NewBoard returns an empty board in the default sequential mode.
func NewBoard() *Board {
	return &Board{
		Version:       BoardVersion,
		ExecutionMode: ModeSequential,
		Chat:          make(map[string][]RenderBlock),
	}
}

// Normalize repairs zero values after JSON decoding.
func (b *Board) Normalize() {
	if b.Version == 0 {
		b.Version = BoardVersion
	}
	if b.ExecutionMode == "" {
		b.ExecutionMode = ModeSequential
	}
	if b.Chat == nil {
		b.Chat = make(map[string][]RenderBlock)
	}
	for _, t := range b.Tasks() {
		if t.Dispatch == "" {
			t.Dispatch = DispatchNone
		}
	}
}

// Column returns the tasks of one status column.
func (b *Board) Column(s Status) []*Task {
	switch s {
	case StatusTodo:
		return b.Columns.Todo
	case StatusInProgress:
		return b.Columns.InProgress
	case StatusVerify:
		return b.Columns.Verify
	case StatusDone:
		return b.Columns.Done
	default:
		return nil
	}
}

func (b *Board) setColumn(s Status, tasks []*Task) {
	switch s {
	case StatusTodo:
		b.Columns.Todo = tasks
	case StatusInProgress:
		b.Columns.InProgress = tasks
	case StatusVerify:
		b.Columns.Verify = tasks
	case StatusDone:
		b.Columns.Done = tasks
	}
}

// Tasks returns all tasks in board order (todo, in-progress, verify, done).
func (b *Board) Tasks() []*Task {
	var tasks []*Task
	for _, s := range AllStatuses() {
		tasks = append(tasks, b.Column(s)...)
	}
	return tasks
}

// Find returns the task with the given ID, or nil.
func (b *Board) Find(id string) *Task {
	for _, t := range b.Tasks() {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Locate returns the column and index of a task.
func (b *Board) Locate(id string) (Status, int, bool) {
	for _, s := range AllStatuses() {
		for i, t := range b.Column(s) {
			if t.ID == id {
				return s, i, true
			}
		}
	}
	return "", 0, false
}

// FindByRef resolves a task reference: the full UUID or a unique prefix of
// it (dashes ignored, so short ids work). Returns ErrTaskNotFound when
// nothing matches and ErrAmbiguousTaskRef when the prefix matches more than
// one task.
func (b *Board) FindByRef(ref string) (*Task, error) {
	norm := strings.ToLower(strings.ReplaceAll(ref, "-", ""))
	if norm == "" {
		return nil, ErrTaskNotFound
	}
	var found *Task
	for _, t := range b.Tasks() {
		if !strings.HasPrefix(strings.ReplaceAll(t.ID, "-", ""), norm) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousTaskRef, ref)
		}
		found = t
	}
	if found == nil {
		return nil, ErrTaskNotFound
	}
	return found, nil
}

// Insert places a task into a column at the given index, clamped to the
// column bounds, and sets the task's status to match.
func (b *Board) Insert(t *Task, s Status, index int) {
	col := b.Column(s)
	index = clampIndex(index, len(col))
	col = append(col, nil)
	copy(col[index+1:], col[index:])
	col[index] = t
	b.setColumn(s, col)
	t.Status = s
}

// Remove takes a task out of its column, returning the task and its prior
// column and index.
func (b *Board) Remove(id string) (*Task, Status, int, bool) {
	for _, s := range AllStatuses() {
		col := b.Column(s)
		for i, t := range col {
			if t.ID == id {
				b.setColumn(s, append(col[:i:i], col[i+1:]...))
				return t, s, i, true
			}
		}
	}
	return nil, "", 0, false
}

// Move transfers a task to a column at a clamped index, bumping UpdatedAt
// and appending a status_changed event when the column actually changed.
// Returns the task and its prior status.
func (b *Board) Move(id string, to Status, index int, now time.Time) (*Task, Status, error) {
	t, from, _, ok := b.Remove(id)
	if !ok {
		return nil, "", ErrTaskNotFound
	}
	b.Insert(t, to, index)
	t.UpdatedAt = now
	if from != to {
		t.Events = append(t.Events, NewStatusChangedEvent(now, from, to))
	}
	return t, from, nil
}

// Archive pushes a deleted task onto the undo buffer and prunes by age.
func (b *Board) Archive(t *Task, column Status, index int, now time.Time) {
	b.Deleted = append(b.Deleted, DeletedTaskEntry{
		DeletedAt: now,
		Task:      t,
		Column:    column,
		Index:     index,
	})
	b.PruneDeleted(now)
}

// PruneDeleted drops undo entries older than the retention window along with
// their chat history. Returns the number of entries pruned.
func (b *Board) PruneDeleted(now time.Time) int {
	cutoff := now.Add(-UndoRetention)
	kept := b.Deleted[:0]
	pruned := 0
	for _, e := range b.Deleted {
		if e.DeletedAt.After(cutoff) {
			kept = append(kept, e)
			continue
		}
		delete(b.Chat, e.Task.ID)
		pruned++
	}
	b.Deleted = kept
	return pruned
}

// RestoreLast re-inserts the most recently deleted task at its original
// column and index if it was deleted within the peek window. Returns nil
// when nothing qualifies.
func (b *Board) RestoreLast(now time.Time) *Task {
	if len(b.Deleted) == 0 {
		return nil
	}
	last := b.Deleted[len(b.Deleted)-1]
	if now.Sub(last.DeletedAt) > UndoPeekWindow {
		return nil
	}
	b.Deleted = b.Deleted[:len(b.Deleted)-1]
	b.Insert(last.Task, last.Column, last.Index)
	last.Task.UpdatedAt = now
	return last.Task
}

// ChatFor returns the render blocks recorded for a task.
func (b *Board) ChatFor(taskID string) []RenderBlock {
	return b.Chat[taskID]
}

// UpsertBlock replaces the block with the same ID or appends a new one.
func (b *Board) UpsertBlock(taskID string, blk RenderBlock) {
	blocks := b.Chat[taskID]
	for i := range blocks {
		if blocks[i].ID == blk.ID {
			blocks[i] = blk
			return
		}
	}
	b.Chat[taskID] = append(blocks, blk)
}

// Validate checks the column-membership invariant: every task id appears in
// exactly one column, exactly once.
func (b *Board) Validate() error {
	seen := make(map[string]Status)
	for _, s := range AllStatuses() {
		for _, t := range b.Column(s) {
			if prev, dup := seen[t.ID]; dup {
				return fmt.Errorf("task %s appears in both %s and %s", t.ShortID(), prev, s)
			}
			seen[t.ID] = s
			if t.Status != s {
				return fmt.Errorf("task %s has status %s but lives in column %s", t.ShortID(), t.Status, s)
			}
		}
	}
	return nil
}

func clampIndex(index, length int) int {
	if index < 0 {
		return 0
	}
	if index > length {
		return length
	}
	return index
}
