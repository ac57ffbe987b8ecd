// Package shared contains helpers used by multiple use cases.
package shared

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// ResolveProject picks the project a command operates on. An explicit id
// wins; otherwise the registered project whose path contains workDir is
// chosen, preferring the longest (most specific) path.
func ResolveProject(registry domain.ProjectRegistry, explicitID, workDir string) (*domain.Project, error) {
	if explicitID != "" {
		p, err := registry.Get(explicitID)
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, explicitID)
		}
		return p, nil
	}

	projects, err := registry.List()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var best *domain.Project
	for _, p := range projects {
		if !containsPath(p.Path, workDir) {
			continue
		}
		if best == nil || len(p.Path) > len(best.Path) {
			best = p
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no registered project contains %s", domain.ErrProjectNotFound, workDir)
	}
	return best, nil
}

// containsPath reports whether dir equals root or lives underneath it.
func containsPath(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
