package stream

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coreycrellin/deckhand/internal/domain"
)

const (
	// followPollInterval is the fallback poll period while streaming.
	followPollInterval = 2 * time.Second

	// Initial connection backoff. A freshly dispatched task may not have
	// persisted any block yet.
	connectBackoffBase = 200 * time.Millisecond
	connectBackoffCap  = 5 * time.Second
	connectMaxAttempts = 10
)

// BoardReader is the read side of board persistence the follower needs.
type BoardReader interface {
	Load(projectID string) (*domain.Board, error)
}

// Follower tails a task's block history from another process than the
// supervisor writing it. It replays persisted blocks, then streams updates by
// watching the boards directory. The board file is replaced by rename on
// every write, so the directory is watched rather than the file, with a poll
// ticker as safety net.
type Follower struct {
	boards      BoardReader
	logger      domain.Logger
	boardsDir   string
	poll        time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration
	maxAttempts int
}

// NewFollower creates a Follower over the boards under dataDir.
func NewFollower(boards BoardReader, dataDir string, logger domain.Logger) *Follower {
	return &Follower{
		boards:      boards,
		logger:      logger,
		boardsDir:   domain.BoardsDir(dataDir),
		poll:        followPollInterval,
		backoffBase: connectBackoffBase,
		backoffCap:  connectBackoffCap,
		maxAttempts: connectMaxAttempts,
	}
}

// Follow emits the task's persisted blocks and every subsequent update, in
// order, until the task's dispatch clears or ctx is cancelled. A block is
// re-emitted whenever its content or status changes. While no block has ever
// been observed, connection is retried with bounded exponential backoff;
// after the attempt ceiling Follow returns ErrNoEventsObserved.
func (f *Follower) Follow(ctx context.Context, projectID, taskID string, emit func(domain.RenderBlock)) error {
	seen := make(map[string]domain.RenderBlock)

	backoff := f.backoffBase
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > f.backoffCap {
				backoff = f.backoffCap
			}
		}
		active, err := f.scan(projectID, taskID, seen, emit)
		if err != nil {
			return err
		}
		if len(seen) == 0 {
			continue
		}
		if !active {
			// History replayed and the run is already over.
			return nil
		}
		return f.stream(ctx, projectID, taskID, seen, emit)
	}
	return domain.ErrNoEventsObserved
}

// stream loops until the task's dispatch clears, rescanning on filesystem
// events and on the poll ticker. When the watcher cannot be established the
// loop degrades to polling only.
func (f *Follower) stream(ctx context.Context, projectID, taskID string, seen map[string]domain.RenderBlock, emit func(domain.RenderBlock)) error {
	var events <-chan fsnotify.Event
	var errs <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(f.boardsDir); werr != nil {
			f.logger.Warn("", "watch", fmt.Sprintf("watch %s: %v (polling only)", f.boardsDir, werr))
			watcher.Close()
		} else {
			defer watcher.Close()
			events = watcher.Events
			errs = watcher.Errors
		}
	} else {
		f.logger.Warn("", "watch", fmt.Sprintf("create watcher: %v (polling only)", err))
	}

	boardFile := filepath.Base(domain.BoardPath("", projectID))
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if filepath.Base(ev.Name) != boardFile {
				continue
			}
		case werr := <-errs:
			f.logger.Warn("", "watch", fmt.Sprintf("watcher error: %v", werr))
			continue
		case <-ticker.C:
		}

		active, err := f.scan(projectID, taskID, seen, emit)
		if err != nil {
			return err
		}
		if !active {
			return nil
		}
	}
}

// scan loads the board, emits blocks that are new or changed since the last
// scan and reports whether the task is still dispatched.
func (f *Follower) scan(projectID, taskID string, seen map[string]domain.RenderBlock, emit func(domain.RenderBlock)) (bool, error) {
	board, err := f.boards.Load(projectID)
	if err != nil {
		return false, fmt.Errorf("load board: %w", err)
	}
	task := board.Find(taskID)
	if task == nil {
		return false, domain.ErrTaskNotFound
	}
	for _, blk := range board.ChatFor(taskID) {
		prev, ok := seen[blk.ID]
		if ok && sameBlock(prev, blk) {
			continue
		}
		seen[blk.ID] = blk
		emit(blk)
	}
	return task.Dispatch.Active(), nil
}

// sameBlock compares the fields that change after a block is first emitted.
func sameBlock(a, b domain.RenderBlock) bool {
	return a.Status == b.Status &&
		a.Text == b.Text &&
		a.ToolResult == b.ToolResult &&
		a.IsError == b.IsError
}
