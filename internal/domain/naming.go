package domain

import (
	"path/filepath"
	"regexp"
)

// WorktreeRootDir is the ignored subdirectory of a project root that holds
// task worktrees.
const WorktreeRootDir = ".deckhand"

// BranchName returns the branch for an isolated task.
// Format: deckhand/<short-id>
func BranchName(shortID string) string {
	return "deckhand/" + shortID
}

// WorktreePath returns the worktree directory for an isolated task.
func WorktreePath(projectPath, shortID string) string {
	return filepath.Join(projectPath, WorktreeRootDir, "worktrees", shortID)
}

// branchPattern matches deckhand branch names: deckhand/<short-id>.
var branchPattern = regexp.MustCompile(`^deckhand/([0-9a-f]{8})$`)

// ParseBranchShortID extracts the task short id from a branch name.
// Returns the short id and true if the branch follows the deckhand naming
// convention, or "" and false if not.
func ParseBranchShortID(branch string) (string, bool) {
	matches := branchPattern.FindStringSubmatch(branch)
	if matches == nil {
		return "", false
	}
	return matches[1], true
}

// RegistryPath returns the path to the project registry file.
func RegistryPath(dataDir string) string {
	return filepath.Join(dataDir, "projects.json")
}

// BoardsDir returns the directory holding per-project board files.
func BoardsDir(dataDir string) string {
	return filepath.Join(dataDir, "boards")
}

// BoardPath returns the path to a project's board file.
func BoardPath(dataDir, projectID string) string {
	return filepath.Join(BoardsDir(dataDir), projectID+".json")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "deckhand.log")
}

// TaskLogPath returns the path to a task's log file.
func TaskLogPath(dataDir, shortID string) string {
	return filepath.Join(dataDir, "logs", "tasks", shortID+".log")
}

// ConfigFileName is the configuration file name inside the config directory.
const ConfigFileName = "config.toml"
