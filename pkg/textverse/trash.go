package textverse

import (
	"context"
	"errors"
	"sort"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

// sortTrash orders trash entries by deletion time descending.
func sortTrash(notes []*models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.DeletedAt == nil || b.DeletedAt == nil {
			return b.DeletedAt == nil && a.DeletedAt != nil
		}
		return a.DeletedAt.After(*b.DeletedAt)
	})
}

// Trash returns the trash set ordered by deletion time descending.
func (c *Coordinator) Trash() []models.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked().Trash
}

// DeleteNote moves an active note to the trash, stamping its deletion time.
// The note leaves the active set and ordering immediately.
func (c *Coordinator) DeleteNote(ctx context.Context, id models.NoteID) error {
	var trashed *models.Note
	return c.mutate(ctx, "delete note",
		func() (func(), error) {
			note, ok := c.notes[id]
			if !ok {
				return nil, notFoundErr("note", id.String())
			}
			prior := note.Clone()
			delete(c.notes, id)
			entry := prior.Clone()
			now := c.now()
			entry.DeletedAt = &now
			c.trash[id] = entry
			trashed = entry.Clone()
			return func() {
				delete(c.trash, id)
				c.notes[id] = prior
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			// Create the trash entry before deleting the active record.
			// A failure in between leaves a duplicate, never a note that
			// exists in neither set.
			if err := st.CreateTrashEntry(ctx, trashed.Clone()); err != nil {
				return err
			}
			owner := trashed.OwnerID
			if err := st.DeleteNote(ctx, owner, id); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return nil
		},
	)
}

// DeleteNotes trashes a selection. Missing notes are reported but do not
// stop the rest of the selection.
func (c *Coordinator) DeleteNotes(ctx context.Context, ids []models.NoteID) error {
	var errs []error
	for _, id := range ids {
		if err := c.DeleteNote(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteAllNotes trashes the entire active set.
func (c *Coordinator) DeleteAllNotes(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]models.NoteID, 0, len(c.notes))
	for id := range c.notes {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	return c.DeleteNotes(ctx, ids)
}

// RestoreNote moves a trash entry back to the active set, clearing its
// deletion time. A restored note whose folder no longer exists comes back
// as Uncategorized.
func (c *Coordinator) RestoreNote(ctx context.Context, id models.NoteID) error {
	var restored *models.Note
	return c.mutate(ctx, "restore note",
		func() (func(), error) {
			entry, ok := c.trash[id]
			if !ok {
				return nil, notFoundErr("trash entry", id.String())
			}
			prior := entry.Clone()
			delete(c.trash, id)
			note := prior.Clone()
			note.DeletedAt = nil
			if note.Folder != "" && c.folderByLabelLocked(note.Folder) == nil {
				note.Folder = ""
			}
			c.notes[id] = note
			restored = note.Clone()
			return func() {
				delete(c.notes, id)
				c.trash[id] = prior
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			// Same ordering as DeleteNote: land the note in its destination
			// set before removing it from the source set.
			if err := st.CreateNote(ctx, restored.Clone()); err != nil {
				return err
			}
			owner := restored.OwnerID
			if err := st.DeleteTrashEntry(ctx, owner, id); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return nil
		},
	)
}

// RestoreNotes restores a selection of trash entries.
func (c *Coordinator) RestoreNotes(ctx context.Context, ids []models.NoteID) error {
	var errs []error
	for _, id := range ids {
		if err := c.RestoreNote(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PermanentlyDeleteNote purges a trash entry. If the note still has a live
// share, the share goes with it so the token stops resolving.
func (c *Coordinator) PermanentlyDeleteNote(ctx context.Context, id models.NoteID) error {
	var owner models.OwnerID
	var shareToken *models.ShareToken
	return c.mutate(ctx, "purge note",
		func() (func(), error) {
			entry, ok := c.trash[id]
			if !ok {
				return nil, notFoundErr("trash entry", id.String())
			}
			prior := entry.Clone()
			owner = entry.OwnerID
			delete(c.trash, id)
			priorShare := c.sharesByNote[id]
			if priorShare != nil {
				t := priorShare.Token
				shareToken = &t
				delete(c.sharesByNote, id)
			}
			return func() {
				c.trash[id] = prior
				if priorShare != nil {
					c.sharesByNote[id] = priorShare
				}
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			if err := st.DeleteTrashEntry(ctx, owner, id); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if shareToken != nil {
				if err := st.DeleteShare(ctx, *shareToken); err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			return nil
		},
	)
}

// PermanentlyDeleteNotes purges a selection of trash entries.
func (c *Coordinator) PermanentlyDeleteNotes(ctx context.Context, ids []models.NoteID) error {
	var errs []error
	for _, id := range ids {
		if err := c.PermanentlyDeleteNote(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// expireTrash drops entries older than the retention window. Runs
// opportunistically when the trash is loaded; purge failures are logged and
// the entry stays until the next load. Returns the surviving entries.
func (c *Coordinator) expireTrash(ctx context.Context, st store.Store, owner models.OwnerID, trash []*models.Note) []*models.Note {
	cutoff := c.now().Add(-models.TrashRetention)
	kept := trash[:0]
	for _, entry := range trash {
		if entry.DeletedAt == nil || entry.DeletedAt.After(cutoff) {
			kept = append(kept, entry)
			continue
		}
		if err := st.DeleteTrashEntry(ctx, owner, entry.ID); err != nil {
			c.log.Warn().Str("note", entry.ID.String()).Err(err).Msg("trash expiry failed")
			kept = append(kept, entry)
			continue
		}
		c.log.Info().Str("note", entry.ID.String()).Msg("expired trash entry")
	}
	return kept
}

// ExpireTrash runs one retention pass over the session owner's trash
// against the active backend, outside of a full load. Used by the expire
// subcommand.
func (c *Coordinator) ExpireTrash(ctx context.Context) error {
	c.mu.Lock()
	st := c.activeStore()
	owner := c.session.OwnerID
	c.mu.Unlock()

	trash, err := st.ListTrash(ctx, owner)
	if err != nil {
		return err
	}
	kept := c.expireTrash(ctx, st, owner, trash)

	c.mu.Lock()
	c.trash = make(map[models.NoteID]*models.Note, len(kept))
	for _, n := range kept {
		c.trash[n.ID] = n.Clone()
	}
	c.mu.Unlock()
	c.notify()
	return nil
}
