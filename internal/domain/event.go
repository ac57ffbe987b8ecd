package domain

import "time"

// EventKind discriminates task event records.
type EventKind string

const (
	EventCreated         EventKind = "created"          // Task created
	EventStatusChanged   EventKind = "status_changed"   // Column transfer
	EventDispatched      EventKind = "dispatched"       // Dispatch state advanced
	EventDispatchCleared EventKind = "dispatch_cleared" // Dispatch state returned to none
)

// TaskEvent is one entry in a task's append-only history. From and To carry
// statuses for status_changed and dispatch states for dispatched and
// dispatch_cleared; created uses neither.
// Fields are ordered to minimize memory padding.
type TaskEvent struct {
	Time time.Time `json:"time"`
	Kind EventKind `json:"kind"`
	From string    `json:"from,omitempty"`
	To   string    `json:"to,omitempty"`
}

// NewCreatedEvent records task creation.
func NewCreatedEvent(now time.Time) TaskEvent {
	return TaskEvent{Time: now, Kind: EventCreated}
}

// NewStatusChangedEvent records a column transfer.
func NewStatusChangedEvent(now time.Time, from, to Status) TaskEvent {
	return TaskEvent{Time: now, Kind: EventStatusChanged, From: string(from), To: string(to)}
}

// NewDispatchedEvent records a dispatch state advance.
func NewDispatchedEvent(now time.Time, from, to DispatchState) TaskEvent {
	return TaskEvent{Time: now, Kind: EventDispatched, From: string(from), To: string(to)}
}

// NewDispatchClearedEvent records the dispatch state returning to none.
func NewDispatchClearedEvent(now time.Time, from DispatchState) TaskEvent {
	return TaskEvent{Time: now, Kind: EventDispatchCleared, From: string(from)}
}
