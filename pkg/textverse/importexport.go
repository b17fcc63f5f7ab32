package textverse

import (
	"context"
	"fmt"
	"strings"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

// ExportNotes returns the owner's full collection, active set first in
// presentation order, then trash, in the interchange shape.
func (c *Coordinator) ExportNotes() []models.ExportRecord {
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	out := make([]models.ExportRecord, 0, len(snap.Notes)+len(snap.Trash))
	for i := range snap.Notes {
		out = append(out, snap.Notes[i].Export())
	}
	for i := range snap.Trash {
		out = append(out, snap.Trash[i].Export())
	}
	return out
}

// ImportNotes merges a batch of exported records into the owner's
// collection. Validation is all-or-nothing: every record is checked before
// anything is applied, and one malformed record rejects the whole batch.
// Folders referenced by imported notes are created on the fly. Identities
// are preserved on the local backend; while authenticated, every imported
// record gets a fresh id so imports can never collide with another
// device's notes. Records carrying a deletion time land in the trash. On
// success the collection is re-read from the backend so the working set
// reflects the committed batch.
//
// Returns the number of imported records.
func (c *Coordinator) ImportNotes(ctx context.Context, records []models.ExportRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	session := c.Session()
	if err := validateImport(records, session.Authenticated); err != nil {
		return 0, err
	}

	var (
		newNotes   []*models.Note
		newTrash   []*models.Note
		newFolders []*models.Folder
	)

	err := c.mutate(ctx, "import notes",
		func() (func(), error) {
			// Preserved identities must not collide with existing records.
			if !session.Authenticated {
				for i, rec := range records {
					if _, ok := c.notes[rec.ID]; ok {
						return nil, validationErr(fmt.Sprintf("import record %d", i), "id already exists")
					}
					if _, ok := c.trash[rec.ID]; ok {
						return nil, validationErr(fmt.Sprintf("import record %d", i), "id already exists in trash")
					}
				}
			}

			// Create folders the batch references but the registry lacks.
			seen := map[string]bool{}
			for _, rec := range records {
				label := strings.TrimSpace(rec.Folder)
				if label == "" ||
					strings.EqualFold(label, models.FolderAllNotes) ||
					strings.EqualFold(label, models.FolderUncategorized) {
					continue
				}
				if c.folderByLabelLocked(label) != nil || seen[strings.ToLower(label)] {
					continue
				}
				seen[strings.ToLower(label)] = true
				folder := &models.Folder{
					ID:        models.NewFolderID(),
					OwnerID:   session.OwnerID,
					Label:     label,
					CreatedAt: c.now(),
				}
				c.folders[folder.ID] = folder
				newFolders = append(newFolders, folder)
			}

			for _, rec := range records {
				note := noteFromRecord(rec, session)
				if note.Folder != "" && c.folderByLabelLocked(note.Folder) != nil {
					note.Folder = c.folderByLabelLocked(note.Folder).Label
				}
				if note.IsTrashed() {
					c.trash[note.ID] = note
					newTrash = append(newTrash, note)
				} else {
					c.notes[note.ID] = note
					newNotes = append(newNotes, note)
				}
			}

			return func() {
				for _, n := range newNotes {
					delete(c.notes, n.ID)
				}
				for _, n := range newTrash {
					delete(c.trash, n.ID)
				}
				for _, f := range newFolders {
					delete(c.folders, f.ID)
				}
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			for _, f := range newFolders {
				cf := *f
				if err := st.CreateFolder(ctx, &cf); err != nil {
					return err
				}
			}
			for _, n := range newNotes {
				if err := st.CreateNote(ctx, n.Clone()); err != nil {
					return err
				}
			}
			for _, n := range newTrash {
				if err := st.CreateTrashEntry(ctx, n.Clone()); err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return 0, err
	}

	// Re-read the collection so the working set reflects the backend's view
	// of the committed batch, including any server-side normalization.
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.refresh(ctx, epoch)

	return len(newNotes) + len(newTrash), nil
}

// validateImport checks every record before any write. The id requirement
// depends on the backend: local imports keep their identities and so must
// carry one, remote imports are re-identified anyway.
func validateImport(records []models.ExportRecord, authenticated bool) error {
	seen := map[models.NoteID]bool{}
	for i, rec := range records {
		field := fmt.Sprintf("import record %d", i)
		if !authenticated && rec.ID.IsZero() {
			return validationErr(field, "missing id")
		}
		if !rec.ID.IsZero() {
			if seen[rec.ID] {
				return validationErr(field, "duplicate id "+rec.ID.String())
			}
			seen[rec.ID] = true
		}
		if rec.CreatedAt.IsZero() {
			return validationErr(field, "missing created_at")
		}
		if !rec.EditedAt.IsZero() && rec.EditedAt.Before(rec.CreatedAt) {
			return validationErr(field, "edited_at precedes created_at")
		}
		if rec.DeletedAt != nil && rec.DeletedAt.IsZero() {
			return validationErr(field, "malformed deleted_at")
		}
		label := strings.TrimSpace(rec.Folder)
		if strings.EqualFold(label, models.FolderAllNotes) {
			return validationErr(field, "folder may not be the reserved view label")
		}
	}
	return nil
}

// noteFromRecord builds the note a record imports as under the given
// session: local imports keep the record's identity, authenticated imports
// get a fresh one.
func noteFromRecord(rec models.ExportRecord, session Session) *models.Note {
	id := rec.ID
	if session.Authenticated || id.IsZero() {
		id = models.NewNoteID()
	}
	folder := strings.TrimSpace(rec.Folder)
	if strings.EqualFold(folder, models.FolderUncategorized) {
		folder = ""
	}
	edited := rec.EditedAt
	if edited.IsZero() {
		edited = rec.CreatedAt
	}
	note := &models.Note{
		ID:        id,
		OwnerID:   session.OwnerID,
		Title:     rec.Title,
		Content:   rec.Content,
		Folder:    folder,
		Pinned:    rec.Pinned,
		CreatedAt: rec.CreatedAt,
		EditedAt:  edited,
	}
	if rec.DeletedAt != nil {
		t := *rec.DeletedAt
		note.DeletedAt = &t
	}
	return note
}
