package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// RemoveProjectInput contains the parameters for removing a project.
type RemoveProjectInput struct {
	ProjectID string // Project to remove (required)
}

// RemoveProjectOutput contains the result of removing a project.
type RemoveProjectOutput struct {
	Project *domain.Project // The removed project
}

// RemoveProject is the use case for unregistering a project. The board file
// stays on disk; re-adding a project under the same id brings its tasks back.
type RemoveProject struct {
	registry domain.ProjectRegistry
	logger   domain.Logger
}

// NewRemoveProject creates a new RemoveProject use case.
func NewRemoveProject(registry domain.ProjectRegistry, logger domain.Logger) *RemoveProject {
	return &RemoveProject{
		registry: registry,
		logger:   logger,
	}
}

// Execute removes the project from the registry.
func (uc *RemoveProject) Execute(_ context.Context, in RemoveProjectInput) (*RemoveProjectOutput, error) {
	project, err := uc.registry.Get(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
	}

	if err := uc.registry.Remove(in.ProjectID); err != nil {
		return nil, fmt.Errorf("remove project: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info("", "project", fmt.Sprintf("removed %q", in.ProjectID))
	}

	return &RemoveProjectOutput{Project: project}, nil
}
