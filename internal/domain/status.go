package domain

import "fmt"

// Status identifies the board column a task lives in.
// Column membership is the task's status; the two never diverge.
type Status string

const (
	StatusTodo       Status = "todo"        // Created, awaiting work
	StatusInProgress Status = "in-progress" // Agent or human working
	StatusVerify     Status = "verify"      // Work finished, awaiting review
	StatusDone       Status = "done"        // Accepted
)

// AllStatuses returns the four column statuses in board order.
func AllStatuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusVerify, StatusDone}
}

// IsValid returns true if the status is one of the four columns.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusVerify, StatusDone:
		return true
	default:
		return false
	}
}

// Display returns the column label shown for the status.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusVerify:
		return "Verify"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus converts user input into a Status. It accepts the canonical
// values plus underscore and compact spellings of in-progress.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "todo":
		return StatusTodo, nil
	case "in-progress", "in_progress", "inprogress":
		return StatusInProgress, nil
	case "verify":
		return StatusVerify, nil
	case "done":
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}
