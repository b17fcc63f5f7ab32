// Package models defines the note-taking domain entities shared by every
// storage backend and by the sync coordinator.
//
// All entities use typed IDs ([NoteID], [FolderID], [OwnerID], [ShareToken])
// rather than raw strings or UUIDs. The typed IDs marshal to the format each
// backend expects: plain UUID strings for JSON and SQLite, and SurrealDB
// RecordIDs (CBOR tag 8) for the remote store. This keeps a single set of
// structs usable across both backends without conversion layers.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Reserved folder labels. Neither may be stored as a real folder: "All Notes"
// is a pure view filter over the whole active set, and "Uncategorized" is the
// implicit bucket for notes without a folder assignment.
const (
	FolderAllNotes      = "All Notes"
	FolderUncategorized = "Uncategorized"
)

// TrashRetention is how long a trashed note survives before it becomes
// eligible for automatic purging.
const TrashRetention = 30 * 24 * time.Hour

// Note is the core content unit. The same struct represents both active
// notes and trash entries; a note is trashed exactly when DeletedAt is set,
// and the two record sets never overlap.
type Note struct {
	ID        NoteID     `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   OwnerID    `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title     string     `json:"title"`
	Content   string     `gorm:"type:text" json:"content"`
	Folder    string     `json:"folder"`
	Pinned    bool       `json:"pinned"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  time.Time  `json:"edited_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (Note) TableName() string { return "notes" }

// BeforeCreate hook to generate ID if not set
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNoteID()
	}
	return nil
}

// LastActivity is the timestamp notes are ordered by: the later of the edit
// and creation times, so never-edited notes still sort by recency.
func (n *Note) LastActivity() time.Time {
	if n.EditedAt.After(n.CreatedAt) {
		return n.EditedAt
	}
	return n.CreatedAt
}

// IsTrashed reports whether the note belongs to the trash record set.
func (n *Note) IsTrashed() bool { return n.DeletedAt != nil }

// FolderLabel returns the effective folder bucket, mapping an empty
// assignment to Uncategorized.
func (n *Note) FolderLabel() string {
	if n.Folder == "" {
		return FolderUncategorized
	}
	return n.Folder
}

// Clone returns a deep copy. The coordinator hands copies to subscribers and
// keeps copies as rollback snapshots so callers can never alias its state.
func (n *Note) Clone() *Note {
	c := *n
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// Folder is a user-created grouping label for notes. Labels are unique per
// owner and notes reference folders by label, not by ID, mirroring how the
// folder field travels with exported notes.
type Folder struct {
	ID        FolderID  `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   OwnerID   `gorm:"type:uuid;not null;index" json:"owner_id"`
	Label     string    `gorm:"not null" json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

func (Folder) TableName() string { return "folders" }

// BeforeCreate hook to generate ID if not set
func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID.IsZero() {
		f.ID = NewFolderID()
	}
	return nil
}

// ShareRecord maps a public token to a note. Shares live in a single global
// namespace rather than under an owner so a token can be resolved without
// knowing or authenticating as the owner.
type ShareRecord struct {
	Token     ShareToken `gorm:"type:uuid;primary_key" json:"token"`
	OwnerID   OwnerID    `gorm:"type:uuid;not null;index" json:"owner_id"`
	NoteID    NoteID     `gorm:"type:uuid;not null;index" json:"note_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func (ShareRecord) TableName() string { return "public_notes" }

// ExportRecord is the interchange shape for backup and import. It carries
// the note's own identity and timestamps so a round trip through export and
// import preserves ordering.
type ExportRecord struct {
	ID        NoteID     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Folder    string     `json:"folder"`
	Pinned    bool       `json:"pinned"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  time.Time  `json:"edited_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Export converts a note to its interchange shape.
func (n *Note) Export() ExportRecord {
	rec := ExportRecord{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Folder:    n.Folder,
		Pinned:    n.Pinned,
		CreatedAt: n.CreatedAt,
		EditedAt:  n.EditedAt,
	}
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		rec.DeletedAt = &t
	}
	return rec
}
