package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notewave/notewave/internal/note"
)

func newTestNote(t *testing.T, r *MemoryRepo) *note.Note {
	t.Helper()
	n := &note.Note{
		Title:         "meeting notes",
		Content:       map[string]interface{}{"rev": "initial"},
		CreatedBy:     "u1",
		Collaborators: []string{"u1"},
	}
	id, err := r.Create(context.Background(), n)
	require.NoError(t, err)
	got, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	return got
}

func TestMemoryRepoCRUD(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	n := newTestNote(t, r)

	require.Equal(t, "meeting notes", n.Title)
	require.Len(t, n.Versions, 1, "creation writes the initial version entry")

	title := "renamed"
	updated, err := r.Update(ctx, n.ID, &title, map[string]interface{}{"rev": "second"}, "u2")
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Title)
	require.Len(t, updated.Versions, 2)

	list, err := r.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = r.List(ctx, "someone-else")
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, r.Delete(ctx, n.ID))
	_, err = r.Get(ctx, n.ID)
	require.ErrorIs(t, err, note.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, n.ID), note.ErrNotFound)
}

func TestMemoryRepo_ListOrdersByUpdatedAtDesc(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	a := newTestNote(t, r)
	b := newTestNote(t, r)

	// touching a makes it most recent
	_, err := r.Update(ctx, a.ID, nil, map[string]interface{}{"rev": "x"}, "u1")
	require.NoError(t, err)

	list, err := r.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, a.ID, list[0].ID)
	require.Equal(t, b.ID, list[1].ID)
}

func TestMemoryRepo_VersionLogAppendOnly(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	n := newTestNote(t, r)

	prev := 1
	for i := 0; i < 3; i++ {
		_, err := r.Update(ctx, n.ID, nil, map[string]interface{}{"rev": i}, "u1")
		require.NoError(t, err)
		vs, err := r.ListVersions(ctx, n.ID)
		require.NoError(t, err)
		require.Greater(t, len(vs), prev-1, "version count never decreases")
		prev = len(vs)
	}

	// repeated reads never mutate entries
	vs1, err := r.ListVersions(ctx, n.ID)
	require.NoError(t, err)
	vs2, err := r.ListVersions(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, vs1, vs2)

	// newest first
	require.Equal(t, map[string]interface{}{"rev": 2}, vs1[0].Content)
	require.Equal(t, map[string]interface{}{"rev": "initial"}, vs1[len(vs1)-1].Content)
}

func TestMemoryRepo_RestoreIsNonDestructive(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	n := newTestNote(t, r)

	_, err := r.Update(ctx, n.ID, nil, map[string]interface{}{"rev": "second"}, "u1")
	require.NoError(t, err)

	before, err := r.ListVersions(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)
	oldest := before[len(before)-1]

	restored, err := r.RestoreVersion(ctx, n.ID, oldest.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, oldest.Content, restored.Content)

	after, err := r.ListVersions(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, after, 3, "restore appends, never rewrites")
	require.Equal(t, oldest.Content, after[0].Content)
	require.Equal(t, "u2", after[0].EditedBy)
	// prior entries untouched
	require.Equal(t, before, after[1:])

	_, err = r.RestoreVersion(ctx, n.ID, "no-such-version", "u2")
	require.ErrorIs(t, err, note.ErrNotFound)
}

func TestMemoryRepo_AddCollaborator(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	n := newTestNote(t, r)

	updated, err := r.AddCollaborator(ctx, n.ID, "u2")
	require.NoError(t, err)
	require.True(t, updated.HasCollaborator("u2"))
	require.True(t, updated.HasCollaborator("u1"), "owner stays a member")

	_, err = r.AddCollaborator(ctx, n.ID, "u2")
	require.ErrorIs(t, err, note.ErrAlreadyCollaborator)

	_, err = r.AddCollaborator(ctx, "missing", "u2")
	require.ErrorIs(t, err, note.ErrNotFound)
}
