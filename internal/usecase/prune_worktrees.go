package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// PruneWorktreesInput contains the parameters for pruning orphaned worktrees.
type PruneWorktreesInput struct {
	ProjectID string // Restrict to one project; empty prunes all
}

// PrunedWorktree describes one removed worktree.
type PrunedWorktree struct {
	ProjectID string // Owning project
	ShortID   string // Task short id the worktree belonged to
	Path      string // Worktree path that was removed
	Branch    string // Branch that was removed with it
}

// PruneWorktreesOutput contains the result of pruning.
type PruneWorktreesOutput struct {
	Removed []PrunedWorktree // Worktrees removed, in discovery order
}

// PruneWorktrees is the use case for reclaiming worktrees whose task no
// longer exists. Only directories on deckhand-named branches are considered,
// and tasks sitting in the undo buffer still count as live so an undelete
// gets its work back.
type PruneWorktrees struct {
	registry  domain.ProjectRegistry
	boards    domain.BoardStore
	worktrees domain.WorktreeManager
	logger    domain.Logger
}

// NewPruneWorktrees creates a new PruneWorktrees use case.
func NewPruneWorktrees(registry domain.ProjectRegistry, boards domain.BoardStore, worktrees domain.WorktreeManager, logger domain.Logger) *PruneWorktrees {
	return &PruneWorktrees{
		registry:  registry,
		boards:    boards,
		worktrees: worktrees,
		logger:    logger,
	}
}

// Execute removes orphaned worktrees.
func (uc *PruneWorktrees) Execute(_ context.Context, in PruneWorktreesInput) (*PruneWorktreesOutput, error) {
	var projects []*domain.Project
	if in.ProjectID != "" {
		p, err := uc.registry.Get(in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
		}
		projects = []*domain.Project{p}
	} else {
		all, err := uc.registry.List()
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		projects = all
	}

	var removed []PrunedWorktree
	for _, p := range projects {
		infos, err := uc.worktrees.List(p.Path)
		if err != nil {
			return nil, fmt.Errorf("list worktrees for %s: %w", p.ID, err)
		}
		if len(infos) == 0 {
			continue
		}

		board, err := uc.boards.Load(p.ID)
		if err != nil {
			return nil, fmt.Errorf("load board for %s: %w", p.ID, err)
		}
		live := make(map[string]bool)
		for _, t := range board.Tasks() {
			live[t.ShortID()] = true
		}
		for _, e := range board.Deleted {
			live[e.Task.ShortID()] = true
		}

		for _, info := range infos {
			shortID, ok := domain.ParseBranchShortID(info.Branch)
			if !ok || live[shortID] {
				continue
			}
			if err := uc.worktrees.Remove(p.Path, shortID); err != nil {
				return nil, fmt.Errorf("remove worktree %s: %w", shortID, err)
			}
			removed = append(removed, PrunedWorktree{
				ProjectID: p.ID,
				ShortID:   shortID,
				Path:      info.Path,
				Branch:    info.Branch,
			})
			if uc.logger != nil {
				uc.logger.Info(shortID, "prune", fmt.Sprintf("removed orphaned worktree %s", info.Path))
			}
		}
	}

	return &PruneWorktreesOutput{Removed: removed}, nil
}
