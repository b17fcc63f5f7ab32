// Package storetest provides an in-memory implementation of the
// [github.com/textverse/textverse/pkg/store.Store] interface for tests.
//
// The fake keeps value copies of every record, records the order of store
// calls, and supports behaviors real backends make hard to arrange on
// demand: one-shot failure injection per operation, parking a call in
// flight, and pushing change notifications to subscribers as if another
// writer had mutated the store.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

type subscriber struct {
	owner models.OwnerID
	fn    store.ChangeFunc
}

type block struct {
	entered chan struct{}
	release chan struct{}
}

// Store is an in-memory store.Store for tests.
type Store struct {
	mu       sync.Mutex
	notes    map[models.OwnerID]map[models.NoteID]*models.Note
	trash    map[models.OwnerID]map[models.NoteID]*models.Note
	folders  map[models.OwnerID]map[models.FolderID]*models.Folder
	shares   map[models.ShareToken]*models.ShareRecord
	subs     map[int]subscriber
	nextSub  int
	failures map[string]error
	blocks   map[string]*block

	// Calls records operation names in invocation order.
	Calls []string

	// FireOnSubscribe makes Subscribe deliver one immediate change,
	// matching the local backend's attach behavior.
	FireOnSubscribe bool
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		notes:    make(map[models.OwnerID]map[models.NoteID]*models.Note),
		trash:    make(map[models.OwnerID]map[models.NoteID]*models.Note),
		folders:  make(map[models.OwnerID]map[models.FolderID]*models.Folder),
		shares:   make(map[models.ShareToken]*models.ShareRecord),
		subs:     make(map[int]subscriber),
		failures: make(map[string]error),
		blocks:   make(map[string]*block),
	}
}

// FailOnce arranges for the next call to the named operation to return err.
// The failure is consumed by that call; later calls succeed again.
func (s *Store) FailOnce(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// BlockNext parks the next call to the named operation until release is
// called. The entered channel closes when that call arrives. The store lock
// is dropped while the call is parked, so other operations can run in the
// gap; tests use this to interleave writes with a call still in flight.
func (s *Store) BlockNext(op string) (entered <-chan struct{}, release func()) {
	b := &block{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s.mu.Lock()
	s.blocks[op] = b
	s.mu.Unlock()
	return b.entered, func() { close(b.release) }
}

// Push delivers a change notification to every subscriber of owner, as if
// another writer had mutated the store.
func (s *Store) Push(owner models.OwnerID, change store.Change) {
	s.mu.Lock()
	var fns []store.ChangeFunc
	for _, sub := range s.subs {
		if sub.owner == owner {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

// begin records the call, pops an injected failure if one is armed, and
// parks the call if a block is armed. An armed failure is claimed before
// parking so calls that run in the gap do not steal it.
func (s *Store) begin(op string) error {
	s.Calls = append(s.Calls, op)
	var failure error
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		failure = err
	}
	if b, ok := s.blocks[op]; ok {
		delete(s.blocks, op)
		close(b.entered)
		s.mu.Unlock()
		<-b.release
		s.mu.Lock()
	}
	return failure
}

func (s *Store) Migrate(ctx context.Context) error { return nil }
func (s *Store) Close() error                      { return nil }

// Notes

func (s *Store) ListNotes(ctx context.Context, owner models.OwnerID) ([]*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListNotes"); err != nil {
		return nil, err
	}
	var notes []*models.Note
	for _, n := range s.notes[owner] {
		notes = append(notes, n.Clone())
	}
	return notes, nil
}

func (s *Store) GetNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("GetNote"); err != nil {
		return nil, err
	}
	n, ok := s.notes[owner][id]
	if !ok {
		return nil, nil
	}
	return n.Clone(), nil
}

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateNote"); err != nil {
		return err
	}
	if note.ID.IsZero() {
		note.ID = models.NewNoteID()
	}
	if s.notes[note.OwnerID] == nil {
		s.notes[note.OwnerID] = make(map[models.NoteID]*models.Note)
	}
	if _, ok := s.notes[note.OwnerID][note.ID]; ok {
		return store.ErrConflict
	}
	s.notes[note.OwnerID][note.ID] = note.Clone()
	return nil
}

func (s *Store) UpdateNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("UpdateNote"); err != nil {
		return err
	}
	if s.notes[note.OwnerID] == nil {
		s.notes[note.OwnerID] = make(map[models.NoteID]*models.Note)
	}
	s.notes[note.OwnerID][note.ID] = note.Clone()
	return nil
}

func (s *Store) PatchNote(ctx context.Context, owner models.OwnerID, id models.NoteID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("PatchNote"); err != nil {
		return err
	}
	n, ok := s.notes[owner][id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			n.Title = v.(string)
		case "content":
			n.Content = v.(string)
		case "folder":
			n.Folder = v.(string)
		case "pinned":
			n.Pinned = v.(bool)
		case "edited_at":
			if t, ok := v.(time.Time); ok {
				n.EditedAt = t
			}
		}
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.OwnerID, id models.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("DeleteNote"); err != nil {
		return err
	}
	if _, ok := s.notes[owner][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.notes[owner], id)
	return nil
}

// Trash

func (s *Store) ListTrash(ctx context.Context, owner models.OwnerID) ([]*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListTrash"); err != nil {
		return nil, err
	}
	var notes []*models.Note
	for _, n := range s.trash[owner] {
		notes = append(notes, n.Clone())
	}
	return notes, nil
}

func (s *Store) CreateTrashEntry(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateTrashEntry"); err != nil {
		return err
	}
	if s.trash[note.OwnerID] == nil {
		s.trash[note.OwnerID] = make(map[models.NoteID]*models.Note)
	}
	s.trash[note.OwnerID][note.ID] = note.Clone()
	return nil
}

func (s *Store) DeleteTrashEntry(ctx context.Context, owner models.OwnerID, id models.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("DeleteTrashEntry"); err != nil {
		return err
	}
	if _, ok := s.trash[owner][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.trash[owner], id)
	return nil
}

// Folders

func (s *Store) ListFolders(ctx context.Context, owner models.OwnerID) ([]*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListFolders"); err != nil {
		return nil, err
	}
	var folders []*models.Folder
	for _, f := range s.folders[owner] {
		c := *f
		folders = append(folders, &c)
	}
	return folders, nil
}

func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateFolder"); err != nil {
		return err
	}
	if folder.ID.IsZero() {
		folder.ID = models.NewFolderID()
	}
	if s.folders[folder.OwnerID] == nil {
		s.folders[folder.OwnerID] = make(map[models.FolderID]*models.Folder)
	}
	c := *folder
	s.folders[folder.OwnerID][folder.ID] = &c
	return nil
}

func (s *Store) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("UpdateFolder"); err != nil {
		return err
	}
	if _, ok := s.folders[folder.OwnerID][folder.ID]; !ok {
		return store.ErrNotFound
	}
	c := *folder
	s.folders[folder.OwnerID][folder.ID] = &c
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, owner models.OwnerID, id models.FolderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("DeleteFolder"); err != nil {
		return err
	}
	if _, ok := s.folders[owner][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.folders[owner], id)
	return nil
}

// Shares

func (s *Store) CreateShare(ctx context.Context, share *models.ShareRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateShare"); err != nil {
		return err
	}
	if share.Token.IsZero() {
		share.Token = models.NewShareToken()
	}
	c := *share
	s.shares[share.Token] = &c
	return nil
}

func (s *Store) GetShare(ctx context.Context, token models.ShareToken) (*models.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("GetShare"); err != nil {
		return nil, err
	}
	sh, ok := s.shares[token]
	if !ok {
		return nil, nil
	}
	c := *sh
	return &c, nil
}

func (s *Store) GetShareByNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("GetShareByNote"); err != nil {
		return nil, err
	}
	for _, sh := range s.shares {
		if sh.OwnerID == owner && sh.NoteID == id {
			c := *sh
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) ListShares(ctx context.Context, owner models.OwnerID) ([]*models.ShareRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("ListShares"); err != nil {
		return nil, err
	}
	var shares []*models.ShareRecord
	for _, sh := range s.shares {
		if sh.OwnerID == owner {
			c := *sh
			shares = append(shares, &c)
		}
	}
	return shares, nil
}

func (s *Store) DeleteShare(ctx context.Context, token models.ShareToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("DeleteShare"); err != nil {
		return err
	}
	if _, ok := s.shares[token]; !ok {
		return store.ErrNotFound
	}
	delete(s.shares, token)
	return nil
}

// Subscribe registers fn for owner until the returned unsubscribe runs.
func (s *Store) Subscribe(ctx context.Context, owner models.OwnerID, fn store.ChangeFunc) (store.UnsubscribeFunc, error) {
	s.mu.Lock()
	if err := s.begin("Subscribe"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscriber{owner: owner, fn: fn}
	fire := s.FireOnSubscribe
	s.mu.Unlock()

	if fire {
		fn(store.Change{Action: store.ActionUpdate, Set: "notes"})
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}, nil
}

// SubscriberCount reports how many subscriptions are currently attached.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

var _ store.Store = (*Store)(nil)
