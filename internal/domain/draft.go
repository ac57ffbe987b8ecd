package domain

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Import file errors.
var (
	ErrEmptyFile     = errors.New("file is empty")
	ErrNoTasksInFile = errors.New("no tasks found in file")
)

// TaskDraft represents a task to be created from an import file.
// Fields are ordered to minimize memory padding.
type TaskDraft struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Priority    string `yaml:"priority"`
}

// importFile is the YAML import document shape.
type importFile struct {
	Tasks []TaskDraft `yaml:"tasks"`
}

// ParseTaskDrafts parses a YAML file containing tasks to create.
//
// Format:
//
//	tasks:
//	  - title: Fix login redirect
//	    description: |
//	      The login form redirects to / instead of the previous page.
//	    priority: high
//	  - description: Add request logging to the API server.
//
// Title is optional (derived from the description when omitted); priority
// defaults to medium.
func ParseTaskDrafts(content []byte) ([]TaskDraft, error) {
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}

	var doc importFile
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if len(doc.Tasks) == 0 {
		return nil, ErrNoTasksInFile
	}

	for i, draft := range doc.Tasks {
		if draft.Description == "" {
			return nil, fmt.Errorf("task %d: %w", i+1, ErrEmptyDescription)
		}
		if _, err := ParsePriority(draft.Priority); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}

	return doc.Tasks, nil
}
