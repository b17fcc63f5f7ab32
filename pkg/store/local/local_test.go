package local_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
	"github.com/textverse/textverse/pkg/store/local"
)

func newStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.New(filepath.Join(t.TempDir(), "textverse.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleNote(owner models.OwnerID) *models.Note {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Note{
		ID:        models.NewNoteID(),
		OwnerID:   owner,
		Title:     "title",
		Content:   "content",
		CreatedAt: now,
		EditedAt:  now,
	}
}

func TestNoteCRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	owner := models.LocalOwnerID()

	n := sampleNote(owner)
	require.NoError(t, s.CreateNote(ctx, n))

	got, err := s.GetNote(ctx, owner, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, n.ID, got.ID)
	require.Equal(t, "title", got.Title)

	require.NoError(t, s.PatchNote(ctx, owner, n.ID, map[string]any{
		"title":  "renamed",
		"pinned": true,
	}))
	got, err = s.GetNote(ctx, owner, n.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)
	require.True(t, got.Pinned)

	notes, err := s.ListNotes(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	require.NoError(t, s.DeleteNote(ctx, owner, n.ID))
	got, err = s.GetNote(ctx, owner, n.ID)
	require.NoError(t, err)
	require.Nil(t, got, "a missing note reads as nil, not an error")
}

func TestNotesScopedByOwner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mine := models.NewOwnerID()
	theirs := models.NewOwnerID()
	n := sampleNote(mine)
	require.NoError(t, s.CreateNote(ctx, n))

	got, err := s.GetNote(ctx, theirs, n.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	notes, err := s.ListNotes(ctx, theirs)
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestPatchMissingNote(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.PatchNote(ctx, models.LocalOwnerID(), models.NewNoteID(), map[string]any{"title": "x"})
	require.True(t, errors.Is(err, store.ErrNotFound))

	err = s.DeleteNote(ctx, models.LocalOwnerID(), models.NewNoteID())
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestTrashTableIsSeparate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	owner := models.LocalOwnerID()

	n := sampleNote(owner)
	deleted := time.Now().UTC().Truncate(time.Second)
	n.DeletedAt = &deleted
	require.NoError(t, s.CreateTrashEntry(ctx, n))

	// The entry is in the trash set only.
	notes, err := s.ListNotes(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, notes)

	entries, err := s.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, n.ID, entries[0].ID)
	require.NotNil(t, entries[0].DeletedAt)

	require.NoError(t, s.DeleteTrashEntry(ctx, owner, n.ID))
	entries, err = s.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, entries)

	err = s.DeleteTrashEntry(ctx, owner, n.ID)
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestFolderCRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	owner := models.LocalOwnerID()

	f := &models.Folder{
		ID:        models.NewFolderID(),
		OwnerID:   owner,
		Label:     "Work",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateFolder(ctx, f))

	f.Label = "Job"
	require.NoError(t, s.UpdateFolder(ctx, f))

	folders, err := s.ListFolders(ctx, owner)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	require.Equal(t, "Job", folders[0].Label)

	require.NoError(t, s.DeleteFolder(ctx, owner, f.ID))
	folders, err = s.ListFolders(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, folders)
}

func TestShareLookupIsGlobal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	owner := models.NewOwnerID()

	n := sampleNote(owner)
	require.NoError(t, s.CreateNote(ctx, n))
	share := &models.ShareRecord{
		Token:     models.NewShareToken(),
		OwnerID:   owner,
		NoteID:    n.ID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateShare(ctx, share))

	// Token resolution needs no owner.
	got, err := s.GetShare(ctx, share.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, n.ID, got.NoteID)
	require.Equal(t, owner, got.OwnerID)

	byNote, err := s.GetShareByNote(ctx, owner, n.ID)
	require.NoError(t, err)
	require.NotNil(t, byNote)
	require.Equal(t, share.Token, byNote.Token)

	require.NoError(t, s.DeleteShare(ctx, share.Token))
	got, err = s.GetShare(ctx, share.Token)
	require.NoError(t, err)
	require.Nil(t, got)

	err = s.DeleteShare(ctx, share.Token)
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSubscribeFiresOnce(t *testing.T) {
	s := newStore(t)

	fired := 0
	unsubscribe, err := s.Subscribe(context.Background(), models.LocalOwnerID(), func(store.Change) {
		fired++
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.Equal(t, 1, fired, "the local backend reports once on attach and then stays silent")
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}
