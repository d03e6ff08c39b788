package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/notewave/notewave/internal/note"
)

// MemoryRepo is an in-memory repository used by the standalone note service
// and unit tests. A single mutex serializes all writes, which also satisfies
// the per-note write ordering the version log requires.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*note.Note
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*note.Note)}
}

func (m *MemoryRepo) Create(_ context.Context, n *note.Note) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = xid.New().String()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Content == nil {
		n.Content = note.EmptyContent()
	}
	n.Versions = []note.Version{{
		ID:        xid.New().String(),
		Content:   n.Content,
		EditedBy:  n.CreatedBy,
		Timestamp: now,
	}}
	m.store[n.ID] = cloneNote(n)
	return n.ID, nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.store[id]; ok {
		return cloneNote(n), nil
	}
	return nil, note.ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context, collaboratorID string) ([]*note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*note.Note, 0, len(m.store))
	for _, n := range m.store {
		if collaboratorID != "" && !n.HasCollaborator(collaboratorID) {
			continue
		}
		out = append(out, cloneNote(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, id string, title *string, content interface{}, editorID string) (*note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.store[id]
	if !ok {
		return nil, note.ErrNotFound
	}
	if title != nil {
		n.Title = *title
	}
	if content != nil {
		n.Content = content
		n.Versions = append(n.Versions, note.Version{
			ID:        xid.New().String(),
			Content:   content,
			EditedBy:  editorID,
			Timestamp: time.Now().UTC(),
		})
	}
	n.UpdatedAt = time.Now().UTC()
	return cloneNote(n), nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return note.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) ListVersions(_ context.Context, id string) ([]note.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.store[id]
	if !ok {
		return nil, note.ErrNotFound
	}
	// newest first
	out := make([]note.Version, len(n.Versions))
	for i, v := range n.Versions {
		out[len(n.Versions)-1-i] = v
	}
	return out, nil
}

func (m *MemoryRepo) RestoreVersion(_ context.Context, id, versionID, editorID string) (*note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.store[id]
	if !ok {
		return nil, note.ErrNotFound
	}
	var snap *note.Version
	for i := range n.Versions {
		if n.Versions[i].ID == versionID {
			snap = &n.Versions[i]
			break
		}
	}
	if snap == nil {
		return nil, note.ErrNotFound
	}
	n.Content = snap.Content
	n.Versions = append(n.Versions, note.Version{
		ID:        xid.New().String(),
		Content:   snap.Content,
		EditedBy:  editorID,
		Timestamp: time.Now().UTC(),
	})
	n.UpdatedAt = time.Now().UTC()
	return cloneNote(n), nil
}

func (m *MemoryRepo) AddCollaborator(_ context.Context, id, userID string) (*note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.store[id]
	if !ok {
		return nil, note.ErrNotFound
	}
	if n.HasCollaborator(userID) {
		return nil, note.ErrAlreadyCollaborator
	}
	n.Collaborators = append(n.Collaborators, userID)
	n.UpdatedAt = time.Now().UTC()
	return cloneNote(n), nil
}

// cloneNote copies the struct and its slices so callers never share the
// stored instance.
func cloneNote(n *note.Note) *note.Note {
	cp := *n
	cp.Collaborators = append([]string(nil), n.Collaborators...)
	cp.Versions = append([]note.Version(nil), n.Versions...)
	return &cp
}
