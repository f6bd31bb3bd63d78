package project

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/driftwood-studio/loom/internal/story"
)

// MemoryStore is an in-process Store backed by a map. It is the default
// store for tests and single-session use; copies go in and out so callers
// never share slices with the stored aggregate.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]story.Project
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: map[string]story.Project{}}
}

// GetProject loads a deep copy of the project by id.
func (s *MemoryStore) GetProject(ctx context.Context, id string) (*story.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneProject(&p)
}

// SaveProject creates or fully replaces a project.
func (s *MemoryStore) SaveProject(ctx context.Context, p *story.Project) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("project with an id is required")
	}

	stored, err := cloneProject(p)
	if err != nil {
		return err
	}
	stored.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = *stored
	return nil
}

// UpdateProject applies a whole-field replacement patch.
func (s *MemoryStore) UpdateProject(ctx context.Context, id string, patch Patch) (*story.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	apply(&p, patch)
	p.UpdatedAt = time.Now()

	stored, err := cloneProject(&p)
	if err != nil {
		return nil, err
	}
	s.projects[id] = *stored

	return cloneProject(&p)
}

// ListProjects returns copies of all stored projects.
func (s *MemoryStore) ListProjects(ctx context.Context) ([]story.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]story.Project, 0, len(s.projects))
	for _, p := range s.projects {
		copied, err := cloneProject(&p)
		if err != nil {
			return nil, err
		}
		out = append(out, *copied)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cloneProject deep-copies a project through JSON. The aggregate is small
// and client-resident, so the round trip is cheap relative to a
// collaborator call.
func cloneProject(p *story.Project) (*story.Project, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("clone project: %w", err)
	}
	var out story.Project
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone project: %w", err)
	}
	return &out, nil
}
