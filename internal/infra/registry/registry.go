// Package registry persists the cross-project registry as a JSON file.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// registryFile is the persisted document shape.
type registryFile struct {
	Projects []*domain.Project `json:"projects"`
}

// Store implements domain.ProjectRegistry using a single JSON file.
// Registry mutations serialize under their own lock, independent of any
// board.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store for the registry under the given data directory.
// A missing file reads as an empty registry and appears on first write.
func New(dataDir string) *Store {
	return &Store{path: domain.RegistryPath(dataDir)}
}

// List returns all projects ordered by their ordering index, then name.
func (s *Store) List() ([]*domain.Project, error) {
	doc, err := s.readLocked(syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(doc.Projects, func(a, b *domain.Project) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Name, b.Name)
	})
	return doc.Projects, nil
}

// Get retrieves a project by id. Returns nil if not found.
func (s *Store) Get(id string) (*domain.Project, error) {
	doc, err := s.readLocked(syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	for _, p := range doc.Projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

// Add registers a project. A project with the same id or the same path is
// rejected with ErrProjectExists.
func (s *Store) Add(project *domain.Project) error {
	return s.mutate(func(doc *registryFile) error {
		for _, p := range doc.Projects {
			if p.ID == project.ID {
				return fmt.Errorf("%w: id %q", domain.ErrProjectExists, project.ID)
			}
			if p.Path == project.Path {
				return fmt.Errorf("%w: path %q", domain.ErrProjectExists, project.Path)
			}
		}
		doc.Projects = append(doc.Projects, project)
		return nil
	})
}

// Update replaces a registered project.
func (s *Store) Update(project *domain.Project) error {
	return s.mutate(func(doc *registryFile) error {
		for i, p := range doc.Projects {
			if p.ID == project.ID {
				doc.Projects[i] = project
				return nil
			}
		}
		return fmt.Errorf("%w: %q", domain.ErrProjectNotFound, project.ID)
	})
}

// Remove deletes a project from the registry.
func (s *Store) Remove(id string) error {
	return s.mutate(func(doc *registryFile) error {
		for i, p := range doc.Projects {
			if p.ID == id {
				doc.Projects = append(doc.Projects[:i:i], doc.Projects[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %q", domain.ErrProjectNotFound, id)
	})
}

func (s *Store) mutate(fn func(*registryFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	doc := s.read()
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) readLocked(lockType int) (*registryFile, error) {
	lock, err := s.acquireLock(lockType)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(lock)
	return s.read(), nil
}

// read decodes the registry. A missing or corrupt file yields an empty
// registry.
func (s *Store) read() *registryFile {
	content, err := os.ReadFile(s.path)
	if err != nil || len(content) == 0 {
		return &registryFile{}
	}
	var doc registryFile
	if err := json.Unmarshal(content, &doc); err != nil {
		return &registryFile{}
	}
	return &doc
}

func (s *Store) write(doc *registryFile) error {
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

// Ensure Store implements ProjectRegistry.
var _ domain.ProjectRegistry = (*Store)(nil)
