// Package worktree provides git worktree isolation for dispatched tasks.
package worktree

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// Manager manages per-task git worktrees. Worktrees and branches are named
// deterministically from the task short id, so every operation can locate
// its artifacts without an index.
type Manager struct {
	logger domain.Logger
}

// New creates a worktree Manager.
func New(logger domain.Logger) *Manager {
	return &Manager{logger: logger}
}

// Ensure Manager implements domain.WorktreeManager.
var _ domain.WorktreeManager = (*Manager)(nil)

// CreateIsolated ensures the worktree root is git-ignored, then creates a
// worktree and branch for the task. Idempotent: an existing worktree for the
// short id is returned as is.
func (m *Manager) CreateIsolated(projectPath, shortID string) (string, error) {
	if err := ensureIgnored(projectPath); err != nil {
		return "", err
	}

	path := domain.WorktreePath(projectPath, shortID)
	branch := domain.BranchName(shortID)

	exists, err := m.worktreeExists(projectPath, branch)
	if err != nil {
		return "", err
	}
	if exists {
		return path, nil
	}

	branchExists, err := m.branchExists(projectPath, branch)
	if err != nil {
		return "", err
	}

	var args []string
	if branchExists {
		args = []string{"worktree", "add", path, branch}
	} else {
		args = []string{"worktree", "add", "-b", branch, path}
	}

	out, err := m.git(projectPath, args...)
	if err != nil {
		// A registered worktree whose directory is gone blocks re-adding.
		// Prune stale entries and retry once.
		if !strings.Contains(out, "already registered") {
			return "", fmt.Errorf("create worktree: %w: %s", err, strings.TrimSpace(out))
		}
		if pruneOut, pruneErr := m.git(projectPath, "worktree", "prune"); pruneErr != nil {
			return "", fmt.Errorf("prune stale worktrees: %w: %s", pruneErr, strings.TrimSpace(pruneOut))
		}
		out, err = m.git(projectPath, args...)
		if err != nil {
			return "", fmt.Errorf("create worktree after prune: %w: %s", err, strings.TrimSpace(out))
		}
	}

	m.logger.Info(shortID, "worktree", "created worktree at "+path)
	return path, nil
}

// Merge reconciles the task branch into the branch currently checked out at
// projectPath using a non-fast-forward merge. Uncommitted work in the task
// worktree is committed first so it is not silently dropped. On success the
// worktree and branch are removed. On conflict the merge is aborted and the
// conflicting paths are returned as data; the snapshot of conflicting files
// is best-effort and may be skewed by concurrent repository mutation.
func (m *Manager) Merge(projectPath, shortID string) (*domain.MergeConflict, error) {
	branch := domain.BranchName(shortID)

	if err := m.commitPending(projectPath, shortID); err != nil {
		return nil, err
	}

	out, err := m.git(projectPath, "merge", "--no-ff", "-m", "Merge "+branch, branch)
	if err != nil {
		files := m.conflictingFiles(projectPath)
		if abortOut, abortErr := m.git(projectPath, "merge", "--abort"); abortErr != nil {
			m.logger.Warn(shortID, "merge", "merge abort failed: "+strings.TrimSpace(abortOut))
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("merge branch %s: %w: %s", branch, err, strings.TrimSpace(out))
		}
		m.logger.Info(shortID, "merge", fmt.Sprintf("merge of %s conflicted on %d file(s)", branch, len(files)))
		return &domain.MergeConflict{
			DetectedAt: time.Now(),
			Summary:    fmt.Sprintf("merge of %s stopped on %d conflicting file(s)", branch, len(files)),
			Files:      files,
		}, nil
	}

	if err := m.Remove(projectPath, shortID); err != nil {
		return nil, fmt.Errorf("cleanup after merge: %w", err)
	}
	m.logger.Info(shortID, "merge", "merged "+branch)
	return nil, nil
}

// Remove force-removes the task worktree and best-effort deletes the branch.
// A missing worktree or branch is not an error; git-level refusals are
// logged, not propagated.
func (m *Manager) Remove(projectPath, shortID string) error {
	path := domain.WorktreePath(projectPath, shortID)
	branch := domain.BranchName(shortID)

	if out, err := m.git(projectPath, "worktree", "remove", "--force", path); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("remove worktree: %w", err)
		}
		if !strings.Contains(out, "is not a working tree") {
			m.logger.Warn(shortID, "worktree", "remove failed: "+strings.TrimSpace(out))
		}
	}

	if out, err := m.git(projectPath, "branch", "-D", branch); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("delete branch: %w", err)
		}
		if !strings.Contains(out, "not found") {
			m.logger.Debug(shortID, "worktree", "branch delete: "+strings.TrimSpace(out))
		}
	}

	// Drop metadata of entries whose directory was removed out of band.
	_, _ = m.git(projectPath, "worktree", "prune")
	return nil
}

// List returns all worktrees of the repository at projectPath.
func (m *Manager) List(projectPath string) ([]domain.WorktreeInfo, error) {
	out, err := m.gitOut(projectPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	return parseWorktreeList(out), nil
}

// commitPending commits uncommitted work in the task worktree so the merge
// sees it. A missing worktree directory is fine: the branch merges as is.
func (m *Manager) commitPending(projectPath, shortID string) error {
	path := domain.WorktreePath(projectPath, shortID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("check worktree: %w", err)
	}

	status, err := m.gitOut(path, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("check uncommitted changes: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return nil
	}

	if out, err := m.git(path, "add", "-A"); err != nil {
		return fmt.Errorf("stage changes: %w: %s", err, strings.TrimSpace(out))
	}
	if out, err := m.git(path, "commit", "-m", "deckhand checkpoint "+shortID); err != nil {
		return fmt.Errorf("commit changes: %w: %s", err, strings.TrimSpace(out))
	}
	m.logger.Debug(shortID, "merge", "committed pending worktree changes")
	return nil
}

// conflictingFiles returns the unmerged paths of an in-progress merge.
func (m *Manager) conflictingFiles(projectPath string) []string {
	out, err := m.gitOut(projectPath, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}

// worktreeExists checks if a worktree exists for the branch. Returns true
// only if both the git registration and the directory exist.
func (m *Manager) worktreeExists(projectPath, branch string) (bool, error) {
	worktrees, err := m.List(projectPath)
	if err != nil {
		return false, err
	}
	for _, wt := range worktrees {
		if wt.Branch != branch {
			continue
		}
		if _, err := os.Stat(wt.Path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("check worktree directory: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// branchExists checks if a branch exists in the repository.
func (m *Manager) branchExists(projectPath, branch string) (bool, error) {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = projectPath
	err := cmd.Run()
	if err != nil {
		// Exit code 1 means the branch doesn't exist
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch exists: %w", err)
	}
	return true, nil
}

// git runs a git command and returns its combined output.
func (m *Manager) git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// gitOut runs a git command and returns stdout only, for parse-sensitive
// output.
func (m *Manager) gitOut(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}

// ensureIgnored appends the worktree root to the project's .gitignore once,
// idempotently, creating the file if absent.
func ensureIgnored(projectPath string) error {
	path := filepath.Join(projectPath, ".gitignore")
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read gitignore: %w", err)
	}

	entry := domain.WorktreeRootDir + "/"
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == entry || trimmed == domain.WorktreeRootDir {
			return nil
		}
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(entry)
	buf.WriteByte('\n')

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write gitignore: %w", err)
	}
	return nil
}

// parseWorktreeList parses `git worktree list --porcelain` output: one
// stanza per worktree, blank-line separated, each holding a "worktree"
// path line and usually a "branch" ref line. Detached or bare entries
// come back without a branch.
func parseWorktreeList(output string) []domain.WorktreeInfo {
	var worktrees []domain.WorktreeInfo
	for _, stanza := range strings.Split(output, "\n\n") {
		info := domain.WorktreeInfo{}
		for _, line := range strings.Split(stanza, "\n") {
			if path, ok := strings.CutPrefix(line, "worktree "); ok {
				info.Path = path
			} else if ref, ok := strings.CutPrefix(line, "branch "); ok {
				info.Branch = strings.TrimPrefix(ref, "refs/heads/")
			}
		}
		if info.Path != "" {
			worktrees = append(worktrees, info)
		}
	}
	return worktrees
}
