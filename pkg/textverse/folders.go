package textverse

import (
	"context"
	"sort"
	"strings"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

// folderByLabelLocked finds a folder by label, case-insensitively. Caller
// holds the lock.
func (c *Coordinator) folderByLabelLocked(label string) *models.Folder {
	for _, f := range c.folders {
		if strings.EqualFold(f.Label, label) {
			return f
		}
	}
	return nil
}

// normalizeFolderLocked maps a requested folder label to the stored
// assignment: empty and the reserved labels become the empty assignment
// (Uncategorized), any other label must name an existing folder. Caller
// holds the lock.
func (c *Coordinator) normalizeFolderLocked(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" ||
		strings.EqualFold(label, models.FolderAllNotes) ||
		strings.EqualFold(label, models.FolderUncategorized) {
		return "", nil
	}
	f := c.folderByLabelLocked(label)
	if f == nil {
		return "", validationErr("folder", "no folder named "+label)
	}
	return f.Label, nil
}

// inFolderViewLocked reports whether a note is visible under the given view
// filter. Notes whose assignment no longer names a live folder count as
// Uncategorized. Caller holds the lock.
func (c *Coordinator) inFolderViewLocked(n *models.Note, view string) bool {
	if view == "" || strings.EqualFold(view, models.FolderAllNotes) {
		return true
	}
	effective := n.Folder
	if effective != "" && c.folderByLabelLocked(effective) == nil {
		effective = ""
	}
	if strings.EqualFold(view, models.FolderUncategorized) {
		return effective == ""
	}
	return strings.EqualFold(effective, view)
}

// validateLabelLocked rejects empty, reserved, and duplicate labels. Caller
// holds the lock.
func (c *Coordinator) validateLabelLocked(label string) error {
	if label == "" {
		return validationErr("folder label", "must not be empty")
	}
	if strings.EqualFold(label, models.FolderAllNotes) ||
		strings.EqualFold(label, models.FolderUncategorized) {
		return validationErr("folder label", label+" is reserved")
	}
	if c.folderByLabelLocked(label) != nil {
		return validationErr("folder label", label+" already exists")
	}
	return nil
}

// sortedFolders returns folders as values ordered by label.
func sortedFolders(folders map[models.FolderID]*models.Folder) []models.Folder {
	out := make([]models.Folder, 0, len(folders))
	for _, f := range folders {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Folders returns the registry ordered by label.
func (c *Coordinator) Folders() []models.Folder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedFolders(c.folders)
}

// CurrentFolder returns the active view filter label.
func (c *Coordinator) CurrentFolder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetCurrentFolder selects the view filter. The label must be All Notes,
// Uncategorized, or an existing folder.
func (c *Coordinator) SetCurrentFolder(label string) error {
	c.mu.Lock()
	label = strings.TrimSpace(label)
	if !strings.EqualFold(label, models.FolderAllNotes) &&
		!strings.EqualFold(label, models.FolderUncategorized) &&
		c.folderByLabelLocked(label) == nil {
		c.mu.Unlock()
		return validationErr("folder", "no folder named "+label)
	}
	if f := c.folderByLabelLocked(label); f != nil {
		label = f.Label
	}
	c.current = label
	c.mu.Unlock()
	c.notify()
	return nil
}

// AddFolder creates a folder with the given label. Reserved and duplicate
// labels are rejected before anything is written.
func (c *Coordinator) AddFolder(ctx context.Context, label string) (*models.Folder, error) {
	label = strings.TrimSpace(label)
	var created *models.Folder
	err := c.mutate(ctx, "add folder",
		func() (func(), error) {
			if err := c.validateLabelLocked(label); err != nil {
				return nil, err
			}
			folder := &models.Folder{
				ID:        models.NewFolderID(),
				OwnerID:   c.session.OwnerID,
				Label:     label,
				CreatedAt: c.now(),
			}
			c.folders[folder.ID] = folder
			cf := *folder
			created = &cf
			id := folder.ID
			return func() { delete(c.folders, id) }, nil
		},
		func(ctx context.Context, st store.Store) error {
			cf := *created
			return st.CreateFolder(ctx, &cf)
		},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RenameFolder changes a folder's label and relabels every active note in
// it so the assignment follows the folder.
func (c *Coordinator) RenameFolder(ctx context.Context, id models.FolderID, newLabel string) error {
	newLabel = strings.TrimSpace(newLabel)
	owner := c.Session().OwnerID
	var renamed models.Folder
	var memberIDs []models.NoteID
	return c.mutate(ctx, "rename folder",
		func() (func(), error) {
			folder, ok := c.folders[id]
			if !ok {
				return nil, notFoundErr("folder", id.String())
			}
			if strings.EqualFold(folder.Label, newLabel) && folder.Label == newLabel {
				return nil, validationErr("folder label", "unchanged")
			}
			if err := c.validateLabelLocked(newLabel); err != nil {
				// Renaming only a label's casing is allowed.
				if !strings.EqualFold(folder.Label, newLabel) {
					return nil, err
				}
			}
			oldLabel := folder.Label
			folder.Label = newLabel
			memberIDs = memberIDs[:0]
			for _, n := range c.notes {
				if n.Folder == oldLabel {
					n.Folder = newLabel
					memberIDs = append(memberIDs, n.ID)
				}
			}
			renamed = *folder
			members := append([]models.NoteID(nil), memberIDs...)
			return func() {
				if f, ok := c.folders[id]; ok {
					f.Label = oldLabel
				}
				for _, nid := range members {
					if n, ok := c.notes[nid]; ok {
						n.Folder = oldLabel
					}
				}
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			rf := renamed
			if err := st.UpdateFolder(ctx, &rf); err != nil {
				return err
			}
			for _, nid := range memberIDs {
				if err := st.PatchNote(ctx, owner, nid, map[string]any{"folder": newLabel}); err != nil {
					return err
				}
			}
			return nil
		},
	)
}

// DeleteFolder removes a folder, reassigns its active notes to
// Uncategorized, and resets the view filter to All Notes if it pointed at
// the deleted label.
func (c *Coordinator) DeleteFolder(ctx context.Context, id models.FolderID) error {
	owner := c.Session().OwnerID
	var memberIDs []models.NoteID
	return c.mutate(ctx, "delete folder",
		func() (func(), error) {
			folder, ok := c.folders[id]
			if !ok {
				return nil, notFoundErr("folder", id.String())
			}
			removed := *folder
			delete(c.folders, id)
			memberIDs = memberIDs[:0]
			for _, n := range c.notes {
				if n.Folder == removed.Label {
					n.Folder = ""
					memberIDs = append(memberIDs, n.ID)
				}
			}
			priorCurrent := c.current
			if strings.EqualFold(c.current, removed.Label) {
				c.current = models.FolderAllNotes
			}
			members := append([]models.NoteID(nil), memberIDs...)
			return func() {
				rf := removed
				c.folders[id] = &rf
				for _, nid := range members {
					if n, ok := c.notes[nid]; ok {
						n.Folder = removed.Label
					}
				}
				c.current = priorCurrent
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			if err := st.DeleteFolder(ctx, owner, id); err != nil {
				return err
			}
			for _, nid := range memberIDs {
				if err := st.PatchNote(ctx, owner, nid, map[string]any{"folder": ""}); err != nil {
					return err
				}
			}
			return nil
		},
	)
}

// CountsByFolder reports active note counts per view label. All Notes
// counts the whole active set; Uncategorized counts notes without a live
// folder assignment.
func (c *Coordinator) CountsByFolder() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := map[string]int{
		models.FolderAllNotes:      len(c.notes),
		models.FolderUncategorized: 0,
	}
	for _, f := range c.folders {
		counts[f.Label] = 0
	}
	for _, n := range c.notes {
		label := n.Folder
		if label == "" || c.folderByLabelLocked(label) == nil {
			counts[models.FolderUncategorized]++
			continue
		}
		counts[c.folderByLabelLocked(label).Label]++
	}
	return counts
}
