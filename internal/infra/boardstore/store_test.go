package boardstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreycrellin/deckhand/internal/domain"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := New(t.TempDir())

	board, err := store.Load("my-project")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if board.Version != domain.BoardVersion {
		t.Errorf("Version = %d, want %d", board.Version, domain.BoardVersion)
	}
	if board.ExecutionMode != domain.ModeSequential {
		t.Errorf("ExecutionMode = %q, want %q", board.ExecutionMode, domain.ModeSequential)
	}
	if len(board.Tasks()) != 0 {
		t.Errorf("Tasks() returned %d tasks, want 0", len(board.Tasks()))
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := domain.BoardPath(dir, "my-project")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := New(dir)
	board, err := store.Load("my-project")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(board.Tasks()) != 0 {
		t.Errorf("corrupt file should yield empty board, got %d tasks", len(board.Tasks()))
	}
	if err := board.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestStore_MutateAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	now := time.Now().Truncate(time.Second) // sub-second precision is lost in the file round-trip

	task := &domain.Task{
		ID:          "aabbccdd-0000-4000-8000-000000000001",
		Title:       "Test Task",
		Description: "Test Description",
		Status:      domain.StatusTodo,
		Priority:    domain.PriorityHigh,
		Dispatch:    domain.DispatchNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := store.Mutate("my-project", func(b *domain.Board) error {
		b.Insert(task, domain.StatusTodo, 0)
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	board, err := store.Load("my-project")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := board.Find(task.ID)
	if got == nil {
		t.Fatal("task not found after Mutate")
	}
	if got.Title != task.Title {
		t.Errorf("Title = %q, want %q", got.Title, task.Title)
	}
	if got.Priority != task.Priority {
		t.Errorf("Priority = %q, want %q", got.Priority, task.Priority)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
}

func TestStore_MutateErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	_, err := store.Mutate("my-project", func(b *domain.Board) error {
		b.Insert(&domain.Task{ID: "aabbccdd-0000-4000-8000-000000000001"}, domain.StatusTodo, 0)
		return fmt.Errorf("rejected")
	})
	if err == nil {
		t.Fatal("Mutate() should propagate fn error")
	}

	if _, statErr := os.Stat(domain.BoardPath(dir, "my-project")); !os.IsNotExist(statErr) {
		t.Error("board file should not exist after failed mutation")
	}
}

func TestStore_MutateRejectsInvariantViolation(t *testing.T) {
	store := New(t.TempDir())
	task := &domain.Task{ID: "aabbccdd-0000-4000-8000-000000000001", Status: domain.StatusTodo}

	_, err := store.Mutate("my-project", func(b *domain.Board) error {
		b.Columns.Todo = []*domain.Task{task}
		b.Columns.Done = []*domain.Task{task}
		return nil
	})
	if err == nil {
		t.Fatal("Mutate() should reject a task present in two columns")
	}
	if !strings.Contains(err.Error(), "board invariant violated") {
		t.Errorf("error = %v, want invariant violation", err)
	}
}

func TestStore_MigratesFlatLayout(t *testing.T) {
	dir := t.TempDir()
	path := domain.BoardPath(dir, "legacy")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}

	flat := `{
  "version": 1,
  "executionMode": "parallel",
  "tasks": [
    {"id": "cccccccc-0000-4000-8000-000000000003", "title": "third", "status": "todo", "order": 2},
    {"id": "aaaaaaaa-0000-4000-8000-000000000001", "title": "first", "status": "todo", "order": 0},
    {"id": "bbbbbbbb-0000-4000-8000-000000000002", "title": "second", "status": "in-progress", "order": 1},
    {"id": "dddddddd-0000-4000-8000-000000000004", "title": "stray", "status": "bogus", "order": 3}
  ]
}`
	if err := os.WriteFile(path, []byte(flat), 0o600); err != nil {
		t.Fatal(err)
	}

	store := New(dir)
	board, err := store.Load("legacy")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if board.ExecutionMode != domain.ModeParallel {
		t.Errorf("ExecutionMode = %q, want %q", board.ExecutionMode, domain.ModeParallel)
	}

	var todo []string
	for _, task := range board.Columns.Todo {
		todo = append(todo, task.Title)
	}
	want := []string{"first", "third", "stray"}
	if len(todo) != len(want) {
		t.Fatalf("todo column = %v, want %v", todo, want)
	}
	for i := range want {
		if todo[i] != want[i] {
			t.Errorf("todo[%d] = %q, want %q", i, todo[i], want[i])
		}
	}
	if len(board.Columns.InProgress) != 1 || board.Columns.InProgress[0].Title != "second" {
		t.Errorf("in-progress column wrong: %+v", board.Columns.InProgress)
	}
	if err := board.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	// The migrated layout is persisted: version bumped, order field dropped.
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		t.Fatal(err)
	}
	if probe.Version != domain.BoardVersion {
		t.Errorf("persisted version = %d, want %d", probe.Version, domain.BoardVersion)
	}
	if strings.Contains(string(content), `"order"`) {
		t.Error("persisted file still carries the legacy order field")
	}
}

func TestStore_MigrationIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := domain.BoardPath(dir, "legacy")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}

	flat := `{
  "tasks": [
    {"id": "aaaaaaaa-0000-4000-8000-000000000001", "title": "one", "status": "verify", "order": 1},
    {"id": "bbbbbbbb-0000-4000-8000-000000000002", "title": "two", "status": "verify", "order": 0}
  ]
}`
	if err := os.WriteFile(path, []byte(flat), 0o600); err != nil {
		t.Fatal(err)
	}

	store := New(dir)
	first, err := store.Load("legacy")
	if err != nil {
		t.Fatalf("first Load() error = %v", err)
	}
	second, err := store.Load("legacy")
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}

	firstIDs := columnIDs(first)
	secondIDs := columnIDs(second)
	if firstIDs != secondIDs {
		t.Errorf("migration not idempotent:\nfirst:  %s\nsecond: %s", firstIDs, secondIDs)
	}
}

func TestStore_MutatePrunesAgedUndoEntries(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewWithClock(dir, clock)

	task := &domain.Task{ID: "aabbccdd-0000-4000-8000-000000000001", Status: domain.StatusTodo}
	_, err := store.Mutate("my-project", func(b *domain.Board) error {
		b.Archive(task, domain.StatusTodo, 0, clock.now)
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	board, err := store.Load("my-project")
	if err != nil {
		t.Fatal(err)
	}
	if len(board.Deleted) != 1 {
		t.Fatalf("Deleted = %d entries, want 1", len(board.Deleted))
	}

	clock.now = clock.now.Add(domain.UndoRetention + time.Minute)
	board, err = store.Mutate("my-project", func(*domain.Board) error { return nil })
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if len(board.Deleted) != 0 {
		t.Errorf("Deleted = %d entries after retention window, want 0", len(board.Deleted))
	}
}

func TestStore_ConcurrentMutationsSerialize(t *testing.T) {
	store := New(t.TempDir())

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("%08x-0000-4000-8000-%012d", n, n)
			_, errs[n] = store.Mutate("my-project", func(b *domain.Board) error {
				b.Insert(&domain.Task{ID: id}, domain.StatusTodo, 0)
				return nil
			})
		}(i)
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: Mutate() error = %v", n, err)
		}
	}

	board, err := store.Load("my-project")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(board.Columns.Todo); got != workers {
		t.Errorf("todo column has %d tasks, want %d (lost update)", got, workers)
	}
	if err := board.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestStore_DifferentProjectsAreIndependent(t *testing.T) {
	store := New(t.TempDir())

	var wg sync.WaitGroup
	for _, project := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				id := fmt.Sprintf("%s-task-%d", p, i)
				if _, err := store.Mutate(p, func(b *domain.Board) error {
					b.Insert(&domain.Task{ID: id}, domain.StatusTodo, 0)
					return nil
				}); err != nil {
					t.Errorf("Mutate(%s) error = %v", p, err)
					return
				}
			}
		}(project)
	}
	wg.Wait()

	for _, project := range []string{"alpha", "beta"} {
		board, err := store.Load(project)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(board.Columns.Todo); got != 5 {
			t.Errorf("project %s has %d tasks, want 5", project, got)
		}
	}
}

func columnIDs(b *domain.Board) string {
	var sb strings.Builder
	for _, s := range domain.AllStatuses() {
		sb.WriteString(string(s))
		sb.WriteString(":")
		for _, task := range b.Column(s) {
			sb.WriteString(task.ID)
			sb.WriteString(",")
		}
		sb.WriteString(";")
	}
	return sb.String()
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}
