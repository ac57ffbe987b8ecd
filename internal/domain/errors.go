package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrAmbiguousTaskRef     = errors.New("task reference matches multiple tasks")
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectExists        = errors.New("project already registered")
	ErrTaskLocked           = errors.New("task is locked by a running agent")
	ErrTaskDispatched       = errors.New("task already dispatched")
	ErrInvalidTransition    = errors.New("invalid dispatch transition")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidDispatchState = errors.New("invalid dispatch state")
	ErrInvalidExecutionMode = errors.New("invalid execution mode")
	ErrEmptyDescription     = errors.New("description cannot be empty")
	ErrEmptyMessage         = errors.New("message cannot be empty")
	ErrNotGitRepository     = errors.New("not a git repository (or any of the parent directories)")
	ErrNoFieldsToUpdate     = errors.New("no fields to update")
	ErrUnmergedBranch       = errors.New("task branch not merged back")
	ErrConfigExists         = errors.New("config file already exists")
	ErrNoEventsObserved     = errors.New("no events observed before retry ceiling")
)
