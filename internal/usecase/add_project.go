// Package usecase contains application use cases.
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// AddProjectInput contains the parameters for registering a project.
type AddProjectInput struct {
	Path string // Repository path (required)
	Name string // Display name (optional, defaults to the directory name)
}

// AddProjectOutput contains the result of registering a project.
type AddProjectOutput struct {
	Project *domain.Project // The registered project
}

// AddProject is the use case for registering a repository with the engine.
type AddProject struct {
	registry domain.ProjectRegistry
	git      domain.Git
	clock    domain.Clock
	logger   domain.Logger
}

// NewAddProject creates a new AddProject use case.
func NewAddProject(registry domain.ProjectRegistry, git domain.Git, clock domain.Clock, logger domain.Logger) *AddProject {
	return &AddProject{
		registry: registry,
		git:      git,
		clock:    clock,
		logger:   logger,
	}
}

// Execute registers the repository at the given path.
func (uc *AddProject) Execute(_ context.Context, in AddProjectInput) (*AddProjectOutput, error) {
	// Resolve and validate the path
	path, err := filepath.Abs(in.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat project path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	if !uc.git.IsRepository(path) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotGitRepository)
	}

	// Derive the name and a unique slug id
	name := in.Name
	if name == "" {
		name = filepath.Base(path)
	}
	existing, err := uc.registry.List()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	id := domain.UniqueSlugID(name, func(candidate string) bool {
		for _, p := range existing {
			if p.ID == candidate {
				return true
			}
		}
		return false
	})

	// Register
	now := uc.clock.Now()
	project := &domain.Project{
		CreatedAt: now,
		UpdatedAt: now,
		ID:        id,
		Name:      name,
		Path:      path,
		RemoteURL: uc.git.RemoteURL(path),
		Status:    domain.ProjectActive,
		Order:     len(existing),
	}
	if err := uc.registry.Add(project); err != nil {
		return nil, fmt.Errorf("register project: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info("", "project", fmt.Sprintf("registered %q at %s", id, path))
	}

	return &AddProjectOutput{Project: project}, nil
}
