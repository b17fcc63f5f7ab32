package textverse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
	"github.com/textverse/textverse/pkg/textverse"
)

func TestAddFolderValidation(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)

	for _, label := range []string{"", "  ", "All Notes", "all notes", "Uncategorized", "Work", "work"} {
		_, err := c.AddFolder(ctx, label)
		require.Error(t, err, "label %q must be rejected", label)
		require.True(t, textverse.IsValidation(err))
	}

	require.Len(t, c.Folders(), 1)
}

func TestFoldersSortedByLabel(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	for _, label := range []string{"Work", "Archive", "Ideas"} {
		_, err := c.AddFolder(ctx, label)
		require.NoError(t, err)
	}

	folders := c.Folders()
	require.Len(t, folders, 3)
	require.Equal(t, "Archive", folders[0].Label)
	require.Equal(t, "Ideas", folders[1].Label)
	require.Equal(t, "Work", folders[2].Label)
}

func TestAddNoteIntoUnknownFolderRejected(t *testing.T) {
	c, _, _ := newEngine(t)

	_, err := c.AddNote(context.Background(), "a", "body", "Nope")
	require.Error(t, err)
	require.True(t, textverse.IsValidation(err))
	require.Empty(t, c.Notes())
}

func TestReservedFolderLabelsMapToUncategorized(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	for _, label := range []string{"", "All Notes", "Uncategorized"} {
		n, err := c.AddNote(ctx, "a", "body", label)
		require.NoError(t, err)
		require.Empty(t, n.Folder, "label %q stores as the empty assignment", label)
	}
}

func TestRenameFolderRelabelsMembers(t *testing.T) {
	c, local, _ := newEngine(t)
	ctx := context.Background()

	f, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)
	in, err := c.AddNote(ctx, "in", "body", "Work")
	require.NoError(t, err)
	out, err := c.AddNote(ctx, "out", "body", "")
	require.NoError(t, err)

	require.NoError(t, c.RenameFolder(ctx, f.ID, "Job"))

	require.Equal(t, "Job", c.Folders()[0].Label)
	require.Equal(t, "Job", c.GetNote(in.ID).Folder)
	require.Empty(t, c.GetNote(out.ID).Folder)

	// Relabeling reached the backend too.
	persisted, err := local.GetNote(ctx, c.Session().OwnerID, in.ID)
	require.NoError(t, err)
	require.Equal(t, "Job", persisted.Folder)
}

func TestRenameFolderValidation(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	f, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)
	_, err = c.AddFolder(ctx, "Play")
	require.NoError(t, err)

	require.Error(t, c.RenameFolder(ctx, f.ID, "Play"))
	require.Error(t, c.RenameFolder(ctx, f.ID, "All Notes"))
	require.Error(t, c.RenameFolder(ctx, f.ID, "Work"))
	require.Error(t, c.RenameFolder(ctx, models.NewFolderID(), "Other"))

	// Changing only the casing is a legal rename.
	require.NoError(t, c.RenameFolder(ctx, f.ID, "WORK"))
}

func TestRenameFolderRollback(t *testing.T) {
	c, local, _ := newEngine(t)
	ctx := context.Background()

	f, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)
	n, err := c.AddNote(ctx, "in", "body", "Work")
	require.NoError(t, err)

	local.FailOnce("UpdateFolder", store.Retryable(errors.New("boom")))
	require.Error(t, c.RenameFolder(ctx, f.ID, "Job"))

	require.Equal(t, "Work", c.Folders()[0].Label)
	require.Equal(t, "Work", c.GetNote(n.ID).Folder)
}

func TestDeleteFolderReassignsAndResetsView(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	f, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)
	n, err := c.AddNote(ctx, "in", "body", "Work")
	require.NoError(t, err)
	require.NoError(t, c.SetCurrentFolder("Work"))

	require.NoError(t, c.DeleteFolder(ctx, f.ID))

	require.Empty(t, c.Folders())
	require.Empty(t, c.GetNote(n.ID).Folder, "members drop to Uncategorized")
	require.Equal(t, models.FolderAllNotes, c.CurrentFolder(), "view pointing at the deleted folder resets")
}

func TestDeleteMissingFolderIsNotFound(t *testing.T) {
	c, _, _ := newEngine(t)
	err := c.DeleteFolder(context.Background(), models.NewFolderID())
	require.Error(t, err)
	require.True(t, textverse.IsNotFound(err))
}

func TestSetCurrentFolder(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)

	require.NoError(t, c.SetCurrentFolder("work"))
	require.Equal(t, "Work", c.CurrentFolder(), "label canonicalizes to the stored casing")

	require.NoError(t, c.SetCurrentFolder("Uncategorized"))
	require.Error(t, c.SetCurrentFolder("Nope"))
	require.Equal(t, "Uncategorized", c.CurrentFolder(), "rejected selection leaves the view alone")
}

func TestFilteredNotesByFolder(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)
	_, err = c.AddNote(ctx, "work note", "body", "Work")
	require.NoError(t, err)
	_, err = c.AddNote(ctx, "loose note", "body", "")
	require.NoError(t, err)

	require.Len(t, c.FilteredNotes(models.FolderAllNotes, ""), 2)
	require.Len(t, c.FilteredNotes("Work", ""), 1)
	require.Len(t, c.FilteredNotes(models.FolderUncategorized, ""), 1)
	require.Equal(t, "work note", c.FilteredNotes("Work", "")[0].Title)
}

func TestCountsByFolder(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := c.AddFolder(ctx, "Work")
	require.NoError(t, err)
	_, err = c.AddFolder(ctx, "Empty")
	require.NoError(t, err)
	_, err = c.AddNote(ctx, "a", "body", "Work")
	require.NoError(t, err)
	_, err = c.AddNote(ctx, "b", "body", "Work")
	require.NoError(t, err)
	_, err = c.AddNote(ctx, "c", "body", "")
	require.NoError(t, err)

	counts := c.CountsByFolder()
	require.Equal(t, 3, counts[models.FolderAllNotes])
	require.Equal(t, 1, counts[models.FolderUncategorized])
	require.Equal(t, 2, counts["Work"])
	require.Equal(t, 0, counts["Empty"])
}
