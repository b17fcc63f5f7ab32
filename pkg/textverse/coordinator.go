// Package textverse implements the note synchronization and ordering engine.
//
// The [Coordinator] is the single logical writer over an in-memory working
// set of one owner's notes, trash entries, folders, and shares. Every
// mutation follows the same optimistic path: the working set is updated
// first so callers observe the change immediately, then the active
// persistence backend is invoked, and on failure the exact prior values of
// the touched records are restored. Which backend is active follows the
// session: the SurrealDB remote store while authenticated, the local SQLite
// store otherwise.
//
// Remote state is authoritative. While a remote subscription is attached,
// every server-side change triggers a refresh that replaces the working set
// with the server's snapshot, last write wins. Completions that arrive
// after a session switch carry a stale epoch and are discarded without
// touching state.
package textverse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

// Snapshot is the value-copied view handed to subscribers. Notes are in
// presentation order, trash is ordered by deletion time descending.
type Snapshot struct {
	Notes         []models.Note   `json:"notes"`
	Trash         []models.Note   `json:"trash"`
	Folders       []models.Folder `json:"folders"`
	CurrentFolder string          `json:"current_folder"`
}

// SnapshotFunc receives working-set snapshots after every state change.
type SnapshotFunc func(Snapshot)

// Coordinator serializes all note mutations and keeps the working set in
// sync with the active backend.
type Coordinator struct {
	mu           sync.Mutex
	local        store.Store
	remote       store.Store
	session      Session
	epoch        uint64
	notes        map[models.NoteID]*models.Note
	trash        map[models.NoteID]*models.Note
	folders      map[models.FolderID]*models.Folder
	sharesByNote map[models.NoteID]*models.ShareRecord
	current      string
	unsubscribe  store.UnsubscribeFunc
	subs         map[int]SnapshotFunc
	nextSub      int
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRemote attaches the multi-writer backend used while authenticated.
func WithRemote(remote store.Store) Option {
	return func(c *Coordinator) { c.remote = remote }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// NewCoordinator builds a coordinator over the given local backend. The
// initial session is the unauthenticated local one; call [Coordinator.LoadNotes]
// to populate the working set.
func NewCoordinator(local store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:        local,
		session:      LocalSession(),
		notes:        make(map[models.NoteID]*models.Note),
		trash:        make(map[models.NoteID]*models.Note),
		folders:      make(map[models.FolderID]*models.Folder),
		sharesByNote: make(map[models.NoteID]*models.ShareRecord),
		current:      models.FolderAllNotes,
		subs:         make(map[int]SnapshotFunc),
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// activeStore must be called with the lock held.
func (c *Coordinator) activeStore() store.Store {
	if c.session.Authenticated && c.remote != nil {
		return c.remote
	}
	return c.local
}

// shareStores lists backends that may hold the global share namespace,
// remote first. Shares persist in whichever backend was active when a note
// was shared, so resolution consults both.
func (c *Coordinator) shareStores() []store.Store {
	if c.remote != nil {
		return []store.Store{c.remote, c.local}
	}
	return []store.Store{c.local}
}

// clearLocked drops the working set. Caller holds the lock.
func (c *Coordinator) clearLocked() {
	c.notes = make(map[models.NoteID]*models.Note)
	c.trash = make(map[models.NoteID]*models.Note)
	c.folders = make(map[models.FolderID]*models.Folder)
	c.sharesByNote = make(map[models.NoteID]*models.ShareRecord)
	c.current = models.FolderAllNotes
}

// detachLocked tears down the store subscription. Caller holds the lock.
func (c *Coordinator) detachLocked() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Close detaches the subscription and drops subscribers. It does not close
// the underlying stores; their lifetime belongs to the caller.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
	c.subs = make(map[int]SnapshotFunc)
	return nil
}

// Subscribe registers fn for working-set snapshots. It is called once
// immediately with the current state and after every subsequent change.
func (c *Coordinator) Subscribe(fn SnapshotFunc) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	snap := c.snapshotLocked()
	c.mu.Unlock()

	fn(snap)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// snapshotLocked builds a value-copied snapshot. Caller holds the lock.
func (c *Coordinator) snapshotLocked() Snapshot {
	notes := make([]*models.Note, 0, len(c.notes))
	for _, n := range c.notes {
		notes = append(notes, n)
	}
	Reorder(notes)

	trash := make([]*models.Note, 0, len(c.trash))
	for _, n := range c.trash {
		trash = append(trash, n)
	}
	sortTrash(trash)

	snap := Snapshot{
		Notes:         make([]models.Note, 0, len(notes)),
		Trash:         make([]models.Note, 0, len(trash)),
		Folders:       sortedFolders(c.folders),
		CurrentFolder: c.current,
	}
	for _, n := range notes {
		snap.Notes = append(snap.Notes, *n.Clone())
	}
	for _, n := range trash {
		snap.Trash = append(snap.Trash, *n.Clone())
	}
	return snap
}

// notify delivers the current snapshot to every subscriber.
func (c *Coordinator) notify() {
	c.mu.Lock()
	fns := make([]SnapshotFunc, 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// mutate runs one intent through the optimistic write path.
//
// apply runs under the lock against the working set and returns the revert
// closure that restores exactly the records it touched, or an error if the
// intent is invalid (nothing applied, nothing persisted). call then runs
// without the lock against the backend that was active when the intent
// started. On backend failure the revert runs, unless the session epoch has
// advanced in the meantime, in which case the completion belongs to a dead
// session and is discarded without touching state.
func (c *Coordinator) mutate(ctx context.Context, op string, apply func() (func(), error), call func(context.Context, store.Store) error) error {
	c.mu.Lock()
	epoch := c.epoch
	st := c.activeStore()
	revert, err := apply()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.notify()

	err = call(ctx, st)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Debug().Str("op", op).Msg("discarding completion from stale session")
		return nil
	}
	if err != nil {
		revert()
		c.mu.Unlock()
		c.notify()
		c.log.Warn().Str("op", op).Err(err).Msg("backend write failed, rolled back")
		return fmt.Errorf("%s: %w", op, err)
	}
	c.mu.Unlock()
	return nil
}

// LoadNotes loads the session owner's record sets from the active backend,
// expires overdue trash entries, and attaches the change subscription. The
// local backend's subscription fires once; the remote one stays live until
// the session changes or UnloadNotes runs.
func (c *Coordinator) LoadNotes(ctx context.Context) error {
	c.mu.Lock()
	epoch := c.epoch
	st := c.activeStore()
	owner := c.session.OwnerID
	c.detachLocked()
	c.mu.Unlock()

	notes, err := st.ListNotes(ctx, owner)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	trash, err := st.ListTrash(ctx, owner)
	if err != nil {
		return fmt.Errorf("load trash: %w", err)
	}
	folders, err := st.ListFolders(ctx, owner)
	if err != nil {
		return fmt.Errorf("load folders: %w", err)
	}
	shares, err := st.ListShares(ctx, owner)
	if err != nil {
		return fmt.Errorf("load shares: %w", err)
	}

	trash = c.expireTrash(ctx, st, owner, trash)

	unsub, err := st.Subscribe(ctx, owner, func(store.Change) {
		go c.refresh(context.Background(), epoch)
	})
	if err != nil {
		return fmt.Errorf("attach subscription: %w", err)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		unsub()
		return nil
	}
	c.installLocked(notes, trash, folders, shares)
	c.unsubscribe = unsub
	c.mu.Unlock()
	c.notify()
	return nil
}

// UnloadNotes detaches the subscription and drops the working set. The
// epoch advances so writes still in flight cannot resurrect state.
func (c *Coordinator) UnloadNotes() {
	c.mu.Lock()
	c.detachLocked()
	c.epoch++
	c.clearLocked()
	c.mu.Unlock()
	c.notify()
}

// refresh re-reads the owner's record sets and replaces the working set
// with the backend's state. Triggered by subscription changes; the remote
// snapshot wins over whatever optimistic state is present.
func (c *Coordinator) refresh(ctx context.Context, epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	st := c.activeStore()
	owner := c.session.OwnerID
	c.mu.Unlock()

	notes, err := st.ListNotes(ctx, owner)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh: list notes failed")
		return
	}
	trash, err := st.ListTrash(ctx, owner)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh: list trash failed")
		return
	}
	folders, err := st.ListFolders(ctx, owner)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh: list folders failed")
		return
	}
	shares, err := st.ListShares(ctx, owner)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh: list shares failed")
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	current := c.current
	c.installLocked(notes, trash, folders, shares)
	// Keep the view selection if its folder survived the refresh.
	if c.folderByLabelLocked(current) != nil || current == models.FolderAllNotes || current == models.FolderUncategorized {
		c.current = current
	}
	c.mu.Unlock()
	c.notify()
}

// installLocked replaces the working set. Caller holds the lock.
func (c *Coordinator) installLocked(notes, trash []*models.Note, folders []*models.Folder, shares []*models.ShareRecord) {
	c.notes = make(map[models.NoteID]*models.Note, len(notes))
	for _, n := range notes {
		c.notes[n.ID] = n.Clone()
	}
	c.trash = make(map[models.NoteID]*models.Note, len(trash))
	for _, n := range trash {
		c.trash[n.ID] = n.Clone()
	}
	c.folders = make(map[models.FolderID]*models.Folder, len(folders))
	for _, f := range folders {
		cf := *f
		c.folders[f.ID] = &cf
	}
	c.sharesByNote = make(map[models.NoteID]*models.ShareRecord, len(shares))
	for _, s := range shares {
		cs := *s
		c.sharesByNote[s.NoteID] = &cs
	}
	c.current = models.FolderAllNotes
}

// Notes returns the active set in presentation order.
func (c *Coordinator) Notes() []models.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked().Notes
}

// GetNote returns a copy of one active note, or nil if absent.
func (c *Coordinator) GetNote(id models.NoteID) *models.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.notes[id]
	if !ok {
		return nil
	}
	return n.Clone()
}

// AddNote creates a note in the session owner's active set. An empty folder
// or the reserved labels place it in Uncategorized; any other label must
// name an existing folder.
func (c *Coordinator) AddNote(ctx context.Context, title, content, folder string) (*models.Note, error) {
	var created *models.Note
	err := c.mutate(ctx, "add note",
		func() (func(), error) {
			label, err := c.normalizeFolderLocked(folder)
			if err != nil {
				return nil, err
			}
			now := c.now()
			note := &models.Note{
				ID:        models.NewNoteID(),
				OwnerID:   c.session.OwnerID,
				Title:     title,
				Content:   content,
				Folder:    label,
				CreatedAt: now,
				EditedAt:  now,
			}
			c.notes[note.ID] = note
			created = note.Clone()
			id := note.ID
			return func() { delete(c.notes, id) }, nil
		},
		func(ctx context.Context, st store.Store) error {
			return st.CreateNote(ctx, created.Clone())
		},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateNote replaces a note's title and content and stamps the edit time.
func (c *Coordinator) UpdateNote(ctx context.Context, id models.NoteID, title, content string) error {
	owner := c.Session().OwnerID
	return c.mutate(ctx, "update note",
		func() (func(), error) {
			note, ok := c.notes[id]
			if !ok {
				return nil, notFoundErr("note", id.String())
			}
			priorTitle, priorContent, priorEdited := note.Title, note.Content, note.EditedAt
			note.Title = title
			note.Content = content
			note.EditedAt = c.now()
			// Revert only the fields this mutation touched; a concurrent
			// pin or move that lands while the patch is in flight must
			// survive the rollback.
			return func() {
				if n, ok := c.notes[id]; ok {
					n.Title = priorTitle
					n.Content = priorContent
					n.EditedAt = priorEdited
				}
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			n, ok := c.peekNote(id)
			if !ok {
				return nil
			}
			return st.PatchNote(ctx, owner, id, map[string]any{
				"title":     n.Title,
				"content":   n.Content,
				"edited_at": n.EditedAt,
			})
		},
	)
}

// PinNote marks a note pinned so it sorts ahead of the unpinned set.
// Pinning does not count as an edit.
func (c *Coordinator) PinNote(ctx context.Context, id models.NoteID) error {
	return c.setPinned(ctx, id, true)
}

// UnpinNote clears the pinned flag.
func (c *Coordinator) UnpinNote(ctx context.Context, id models.NoteID) error {
	return c.setPinned(ctx, id, false)
}

func (c *Coordinator) setPinned(ctx context.Context, id models.NoteID, pinned bool) error {
	owner := c.Session().OwnerID
	op := "pin note"
	if !pinned {
		op = "unpin note"
	}
	return c.mutate(ctx, op,
		func() (func(), error) {
			note, ok := c.notes[id]
			if !ok {
				return nil, notFoundErr("note", id.String())
			}
			prior := note.Pinned
			note.Pinned = pinned
			return func() {
				if n, ok := c.notes[id]; ok {
					n.Pinned = prior
				}
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			return st.PatchNote(ctx, owner, id, map[string]any{"pinned": pinned})
		},
	)
}

// MoveNote reassigns a note to another folder. The target must exist or be
// one of the reserved labels, which both map to Uncategorized.
func (c *Coordinator) MoveNote(ctx context.Context, id models.NoteID, folder string) error {
	owner := c.Session().OwnerID
	var label string
	return c.mutate(ctx, "move note",
		func() (func(), error) {
			var err error
			label, err = c.normalizeFolderLocked(folder)
			if err != nil {
				return nil, err
			}
			note, ok := c.notes[id]
			if !ok {
				return nil, notFoundErr("note", id.String())
			}
			prior := note.Folder
			note.Folder = label
			return func() {
				if n, ok := c.notes[id]; ok {
					n.Folder = prior
				}
			}, nil
		},
		func(ctx context.Context, st store.Store) error {
			return st.PatchNote(ctx, owner, id, map[string]any{"folder": label})
		},
	)
}

// MoveNotes reassigns a selection of notes. Missing notes are reported but
// do not stop the rest of the selection.
func (c *Coordinator) MoveNotes(ctx context.Context, ids []models.NoteID, folder string) error {
	var errs []error
	for _, id := range ids {
		if err := c.MoveNote(ctx, id, folder); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DuplicateNote creates a fresh copy of an existing note. The copy gets its
// own identity and current timestamps, so it sorts to the top.
func (c *Coordinator) DuplicateNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	var created *models.Note
	err := c.mutate(ctx, "duplicate note",
		func() (func(), error) {
			src, ok := c.notes[id]
			if !ok {
				return nil, notFoundErr("note", id.String())
			}
			now := c.now()
			copyNote := &models.Note{
				ID:        models.NewNoteID(),
				OwnerID:   src.OwnerID,
				Title:     src.Title + " (copy)",
				Content:   src.Content,
				Folder:    src.Folder,
				CreatedAt: now,
				EditedAt:  now,
			}
			c.notes[copyNote.ID] = copyNote
			created = copyNote.Clone()
			cid := copyNote.ID
			return func() { delete(c.notes, cid) }, nil
		},
		func(ctx context.Context, st store.Store) error {
			return st.CreateNote(ctx, created.Clone())
		},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SearchNotes returns active notes whose title or content contains query,
// case-insensitively, in presentation order.
func (c *Coordinator) SearchNotes(query string) []models.Note {
	return c.FilteredNotes(models.FolderAllNotes, query)
}

// FilteredNotes applies the folder view filter and an optional search query
// to the active set. The All Notes label selects everything; Uncategorized
// selects notes without a live folder assignment.
func (c *Coordinator) FilteredNotes(folder, query string) []models.Note {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var filtered []*models.Note
	for _, n := range c.notes {
		if !c.inFolderViewLocked(n, folder) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(n.Title), q) &&
			!strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		filtered = append(filtered, n)
	}
	Reorder(filtered)

	out := make([]models.Note, 0, len(filtered))
	for _, n := range filtered {
		out = append(out, *n.Clone())
	}
	return out
}

// peekNote returns a copy of an active note under the lock.
func (c *Coordinator) peekNote(id models.NoteID) (*models.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.notes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}
