// Package store defines the persistence contract implemented by every
// backend of the sync engine.
//
// Two implementations exist: [github.com/textverse/textverse/pkg/store/local.Store]
// keeps records in a device-scoped SQLite file, and
// [github.com/textverse/textverse/pkg/store/remote.Store] keeps them in
// SurrealDB where multiple devices of the same owner may write concurrently.
// The coordinator treats the two interchangeably and switches between them
// on session transitions, so the interface is the full surface area either
// backend must provide.
//
// # Record sets
//
// Four record sets exist. Notes, trash entries, and folders are scoped by
// owner; every operation on them takes or carries an [models.OwnerID] and
// backends must never let one owner's records appear in another owner's
// listings. Shares are deliberately global: a share token must resolve
// without knowing the owner, so the public_notes set has no owner scoping
// on reads.
//
// # Not-found convention
//
// Get-style methods return (nil, nil) when the record does not exist.
// Mutations against a missing record return [ErrNotFound]. Callers decide
// whether a missing record is an error or a reportable no-op.
//
// # Failure classification
//
// Transient transport failures (lost connection, timeout) are wrapped in
// [RetryableError] so the coordinator can roll back its optimistic state and
// surface a retryable condition. Anything else is treated as fatal to the
// operation.
package store

import (
	"context"

	"github.com/textverse/textverse/pkg/models"
)

// Action classifies a change observed by a subscription.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes one observed mutation in the backing store. Subscribers
// use it as a hint to refresh; the authoritative state is always a full
// re-read of the owner's record sets.
type Change struct {
	Action Action
	Set    string // record set name: notes, deleted_notes, folders
}

// ChangeFunc receives change notifications. It must not block; long work
// should be handed off to the caller's own goroutine.
type ChangeFunc func(Change)

// UnsubscribeFunc tears down a subscription. It is idempotent.
type UnsubscribeFunc func()

// Store is the persistence contract shared by the local and remote backends.
type Store interface {
	// Notes (active set)
	ListNotes(ctx context.Context, owner models.OwnerID) ([]*models.Note, error)
	GetNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.Note, error)
	CreateNote(ctx context.Context, note *models.Note) error
	UpdateNote(ctx context.Context, note *models.Note) error
	// PatchNote applies a partial update to the named fields only. Field
	// names follow the wire names of models.Note (title, content, folder,
	// pinned, edited_at).
	PatchNote(ctx context.Context, owner models.OwnerID, id models.NoteID, fields map[string]any) error
	DeleteNote(ctx context.Context, owner models.OwnerID, id models.NoteID) error

	// Trash (deleted_notes set). Entries are notes with DeletedAt set.
	ListTrash(ctx context.Context, owner models.OwnerID) ([]*models.Note, error)
	CreateTrashEntry(ctx context.Context, note *models.Note) error
	DeleteTrashEntry(ctx context.Context, owner models.OwnerID, id models.NoteID) error

	// Folders
	ListFolders(ctx context.Context, owner models.OwnerID) ([]*models.Folder, error)
	CreateFolder(ctx context.Context, folder *models.Folder) error
	UpdateFolder(ctx context.Context, folder *models.Folder) error
	DeleteFolder(ctx context.Context, owner models.OwnerID, id models.FolderID) error

	// Shares (global public_notes set)
	CreateShare(ctx context.Context, share *models.ShareRecord) error
	GetShare(ctx context.Context, token models.ShareToken) (*models.ShareRecord, error)
	GetShareByNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.ShareRecord, error)
	ListShares(ctx context.Context, owner models.OwnerID) ([]*models.ShareRecord, error)
	DeleteShare(ctx context.Context, token models.ShareToken) error

	// Subscribe attaches a change feed for one owner's record sets. The
	// local backend fires exactly once, immediately, since nothing else
	// writes to it. The remote backend delivers a notification for every
	// mutation until the returned UnsubscribeFunc is called.
	Subscribe(ctx context.Context, owner models.OwnerID, fn ChangeFunc) (UnsubscribeFunc, error)

	// Migrate prepares the backing schema. Safe to run repeatedly.
	Migrate(ctx context.Context) error

	Close() error
}
