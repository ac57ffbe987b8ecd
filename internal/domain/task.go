// Package domain holds deckhand's entities, board state machine and the
// ports its infrastructure implements.
package domain

import (
	"strings"
	"time"
)

// ShortIDLength is the number of leading hex characters of a task UUID used
// for branch names, worktree directories and CLI display.
const ShortIDLength = 8

// Task represents a unit of work on a project board.
// Fields are ordered to minimize memory padding.
type Task struct {
	CreatedAt       time.Time      `json:"createdAt"`                 // Creation time
	UpdatedAt       time.Time      `json:"updatedAt"`                 // Last mutation time
	MergeConflict   *MergeConflict `json:"mergeConflict,omitempty"`   // Set when merge-back failed, awaiting human resolution
	ID              string         `json:"id"`                        // UUID
	Title           string         `json:"title"`                     // Title (derived from description when omitted)
	Description     string         `json:"description"`               // Description (required)
	Findings        string         `json:"findings,omitempty"`        // Agent findings, set via the task-update surface
	HumanSteps      string         `json:"humanSteps,omitempty"`      // Manual verification steps
	AgentLog        string         `json:"agentLog,omitempty"`        // Run summaries, one line per agent run
	WorktreePath    string         `json:"worktreePath,omitempty"`    // Set only while isolated
	Branch          string         `json:"branch,omitempty"`          // Set only while isolated
	PendingFollowUp string         `json:"pendingFollowUp,omitempty"` // Follow-up message awaiting the next dispatch
	Attachments     []string       `json:"attachments,omitempty"`     // File paths attached to the task
	Events          []TaskEvent    `json:"events"`                    // Append-only history
	Status          Status         `json:"status"`                    // Current column
	Priority        Priority       `json:"priority"`                  // low / medium / high
	ModeHint        ExecutionMode  `json:"modeHint,omitempty"`        // Per-task override of the project execution mode
	Dispatch        DispatchState  `json:"dispatch"`                  // Agent dispatch state
	DispatchPID     int            `json:"dispatchPID,omitempty"`     // Supervisor process id while dispatched
	Locked          bool           `json:"locked"`                    // Agent actively working
}

// MergeConflict records a failed merge-back for human resolution.
// Fields are ordered to minimize memory padding.
type MergeConflict struct {
	DetectedAt time.Time `json:"detectedAt"` // When the conflict was detected
	Summary    string    `json:"summary"`    // Human-readable description
	Files      []string  `json:"files"`      // Conflicting file paths (best-effort snapshot)
}

// ShortID returns the leading hex characters of the task UUID.
func (t *Task) ShortID() string {
	return ShortID(t.ID)
}

// ShortID shortens a task UUID for naming and display.
func ShortID(id string) string {
	s := strings.ReplaceAll(id, "-", "")
	if len(s) > ShortIDLength {
		return s[:ShortIDLength]
	}
	return s
}

// Isolated returns true if the task currently owns an isolation branch.
// The worktree directory may already be gone; the branch is what still
// holds unmerged work.
func (t *Task) Isolated() bool {
	return t.Branch != ""
}

// Dispatchable returns nil if the task can be handed to an agent.
func (t *Task) Dispatchable() error {
	if t.Locked {
		return ErrTaskLocked
	}
	if t.Dispatch.Active() {
		return ErrTaskDispatched
	}
	return nil
}

// SetDispatch transitions the dispatch state and appends the matching event.
// Clearing to DispatchNone emits dispatch_cleared; everything else emits
// dispatched. Returns ErrInvalidTransition for transitions the state machine
// does not allow.
func (t *Task) SetDispatch(to DispatchState, now time.Time) error {
	from := t.Dispatch.orNone()
	if from == to.orNone() {
		return nil
	}
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	t.Dispatch = to
	t.UpdatedAt = now
	if to == DispatchNone {
		t.Events = append(t.Events, NewDispatchClearedEvent(now, from))
		t.DispatchPID = 0
		return nil
	}
	t.Events = append(t.Events, NewDispatchedEvent(now, from, to))
	return nil
}

// AppendRunSummary adds one line to the agent log.
func (t *Task) AppendRunSummary(line string) {
	if t.AgentLog == "" {
		t.AgentLog = line
		return
	}
	t.AgentLog += "\n" + line
}

// DeriveTitle returns the explicit title, or the first line of the
// description truncated to 72 characters when no title was given.
func DeriveTitle(title, description string) string {
	if title != "" {
		return title
	}
	line := description
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	const maxTitle = 72
	if len(line) > maxTitle {
		return line[:maxTitle]
	}
	return line
}
