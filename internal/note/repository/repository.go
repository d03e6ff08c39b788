package repository

import (
	"context"

	"github.com/notewave/notewave/internal/note"
)

// Repository defines persistence operations for notes and their version log.
// Implementations must serialize concurrent writes to the same note id so a
// later edit's version entry never precedes one it superseded.
type Repository interface {
	// Create stores a new note and writes the initial version entry.
	Create(ctx context.Context, n *note.Note) (string, error)
	Get(ctx context.Context, id string) (*note.Note, error)
	// List returns notes most-recently-updated first; collaboratorID filters
	// to notes the user is a member of ("" returns all).
	List(ctx context.Context, collaboratorID string) ([]*note.Note, error)
	// Update applies title and/or content; a content change appends a new
	// version entry and bumps updatedAt.
	Update(ctx context.Context, id string, title *string, content interface{}, editorID string) (*note.Note, error)
	// Delete removes the note and its entire version log.
	Delete(ctx context.Context, id string) error
	// ListVersions returns the version log newest first.
	ListVersions(ctx context.Context, id string) ([]note.Version, error)
	// RestoreVersion sets current content to the snapshot and appends a new
	// entry; prior entries are never removed or reordered.
	RestoreVersion(ctx context.Context, id, versionID, editorID string) (*note.Note, error)
	// AddCollaborator fails with note.ErrAlreadyCollaborator when the user is
	// already a member.
	AddCollaborator(ctx context.Context, id, userID string) (*note.Note, error)
}
