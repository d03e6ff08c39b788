package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/notewave/notewave/internal/note"
	"github.com/notewave/notewave/internal/note/repository"
	"github.com/notewave/notewave/pkg/metrics"
)

// Identities resolves editor identifiers to canonical user ids. Unresolvable
// ids go through an explicit guest-provisioning path (never implicit account
// creation inside note operations).
type Identities interface {
	EnsureEditor(ctx context.Context, editorID string) (string, error)
	EnsureByEmail(ctx context.Context, email string) (string, error)
}

// Service defines the note business operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, title string, content interface{}, ownerID string) (*note.Note, error)
	Get(ctx context.Context, id string) (*note.Note, error)
	List(ctx context.Context, collaboratorID string) ([]*note.Note, error)
	Update(ctx context.Context, id string, title *string, content interface{}, editorID string) (*note.Note, error)
	Delete(ctx context.Context, id string) error
	ListVersions(ctx context.Context, id string) ([]note.Version, error)
	RestoreVersion(ctx context.Context, id, versionID, editorID string) (*note.Note, error)
	Invite(ctx context.Context, id, email string) (*note.Note, error)
}

type noteService struct {
	repo repository.Repository
	ids  Identities
}

// New returns a Service over the given repository. ids may be nil, in which
// case editor identifiers are trusted as-is (standalone/test mode).
func New(repo repository.Repository, ids Identities) Service {
	return &noteService{repo: repo, ids: ids}
}

func (s *noteService) resolveEditor(ctx context.Context, editorID string) (string, error) {
	if strings.TrimSpace(editorID) == "" {
		return "", fmt.Errorf("%w: editor identity required", note.ErrValidation)
	}
	if s.ids == nil {
		return editorID, nil
	}
	return s.ids.EnsureEditor(ctx, editorID)
}

func (s *noteService) Create(ctx context.Context, title string, content interface{}, ownerID string) (*note.Note, error) {
	owner, err := s.resolveEditor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = note.DefaultTitle
	}
	if content == nil {
		content = note.EmptyContent()
	}
	n := &note.Note{
		Title:         title,
		Content:       content,
		CreatedBy:     owner,
		Collaborators: []string{owner}, // owner is always a member
	}
	id, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *noteService) Get(ctx context.Context, id string) (*note.Note, error) {
	return s.repo.Get(ctx, id)
}

func (s *noteService) List(ctx context.Context, collaboratorID string) ([]*note.Note, error) {
	return s.repo.List(ctx, collaboratorID)
}

func (s *noteService) Update(ctx context.Context, id string, title *string, content interface{}, editorID string) (*note.Note, error) {
	editor, err := s.resolveEditor(ctx, editorID)
	if err != nil {
		return nil, err
	}
	if title == nil && content == nil {
		return nil, fmt.Errorf("%w: nothing to update", note.ErrValidation)
	}
	n, err := s.repo.Update(ctx, id, title, content, editor)
	if err != nil {
		return nil, err
	}
	if content != nil {
		metrics.NoteSaves.Inc()
	}
	return n, nil
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *noteService) ListVersions(ctx context.Context, id string) ([]note.Version, error) {
	return s.repo.ListVersions(ctx, id)
}

func (s *noteService) RestoreVersion(ctx context.Context, id, versionID, editorID string) (*note.Note, error) {
	editor, err := s.resolveEditor(ctx, editorID)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.RestoreVersion(ctx, id, versionID, editor)
	if err != nil {
		return nil, err
	}
	metrics.NoteRestores.Inc()
	return n, nil
}

func (s *noteService) Invite(ctx context.Context, id, email string) (*note.Note, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", note.ErrValidation)
	}
	var userID string
	if s.ids != nil {
		uid, err := s.ids.EnsureByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		userID = uid
	} else {
		userID = email
	}
	return s.repo.AddCollaborator(ctx, id, userID)
}
