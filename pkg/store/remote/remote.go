// Package remote provides the SurrealDB implementation of the
// [github.com/textverse/textverse/pkg/store.Store] interface using native
// SurrealQL over a WebSocket connection.
//
// The remote backend is the authoritative, multi-writer store used while an
// owner is signed in. Several devices may mutate the same owner space
// concurrently; conflicts resolve last-write-wins at the record level, and
// the live change feed lets every attached device converge on the server's
// state.
//
// # CBOR Marshaling
//
// The connection is configured with the surrealcbor codec so that time.Time
// values and typed IDs serialize in the format SurrealDB expects. Typed IDs
// ([models.NoteID], [models.OwnerID], [models.ShareToken]) marshal to
// SurrealDB RecordIDs automatically, which keeps queries parameterized and
// free of string interpolation.
//
// # Live change feed
//
// [Store.Subscribe] opens LIVE queries on the owner-scoped record sets and
// forwards each server notification as a [store.Change]. Notifications are
// filtered to the subscribed owner where the payload allows it; when a
// payload cannot be inspected the change is forwarded anyway, since
// subscribers treat changes as refresh hints rather than state. The
// returned unsubscribe kills every live query, which also closes the
// notification channels and ends the forwarding goroutines.
//
// # Query safety
//
// All queries use $param placeholders. Never build SurrealQL with
// fmt.Sprintf over caller-provided values.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

// Store implements store.Store against a SurrealDB instance.
type Store struct {
	db *surrealdb.DB
}

// Config holds the connection parameters for the remote backend.
type Config struct {
	URL       string // WebSocket endpoint, e.g. ws://localhost:8000/rpc
	Namespace string
	Database  string
	Username  string
	Password  string
}

// New connects to SurrealDB, authenticates, and selects the configured
// namespace and database. The connection uses the surrealcbor codec; without
// it time.Time values marshal in a format the server rejects.
func New(ctx context.Context, cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SurrealDB URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)
	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, store.Retryable(fmt.Errorf("failed to connect to SurrealDB: %w", err))
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate is a no-op. SurrealDB creates tables implicitly when the first
// record is inserted, so there is no schema to prepare.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound maps the driver's empty-result errors onto nil so that
// Get-style methods can return (nil, nil) for missing records.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// trashRecordID addresses a trash row by the note's own identity. Trash rows
// keep the note id in the note_id field because the record id of a
// deleted_notes row belongs to that table, not to notes.
func trashRecordID(id models.NoteID) surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: "deleted_notes", ID: id.String()}
}

// trashRow is the deleted_notes representation of a note.
type trashRow struct {
	ID        *surrealdb_models.RecordID `json:"id,omitempty"`
	NoteID    models.NoteID              `json:"note_id"`
	OwnerID   models.OwnerID             `json:"owner_id"`
	Title     string                     `json:"title"`
	Content   string                     `json:"content"`
	Folder    string                     `json:"folder"`
	Pinned    bool                       `json:"pinned"`
	CreatedAt time.Time                  `json:"created_at"`
	EditedAt  time.Time                  `json:"edited_at"`
	DeletedAt *time.Time                 `json:"deleted_at,omitempty"`
}

func toTrashRow(note *models.Note) *trashRow {
	rid := trashRecordID(note.ID)
	return &trashRow{
		ID:        &rid,
		NoteID:    note.ID,
		OwnerID:   note.OwnerID,
		Title:     note.Title,
		Content:   note.Content,
		Folder:    note.Folder,
		Pinned:    note.Pinned,
		CreatedAt: note.CreatedAt,
		EditedAt:  note.EditedAt,
		DeletedAt: note.DeletedAt,
	}
}

func (r *trashRow) toNote() *models.Note {
	return &models.Note{
		ID:        r.NoteID,
		OwnerID:   r.OwnerID,
		Title:     r.Title,
		Content:   r.Content,
		Folder:    r.Folder,
		Pinned:    r.Pinned,
		CreatedAt: r.CreatedAt,
		EditedAt:  r.EditedAt,
		DeletedAt: r.DeletedAt,
	}
}

// Notes

func (s *Store) ListNotes(ctx context.Context, owner models.OwnerID) ([]*models.Note, error) {
	query := "SELECT * FROM notes WHERE owner_id = $owner"
	params := map[string]any{
		"owner": owner,
	}
	result, err := surrealdb.Query[[]models.Note](ctx, s.db, query, params)
	if err != nil {
		return nil, store.Retryable(fmt.Errorf("failed to list notes: %w", err))
	}

	var notes []*models.Note
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			notes = append(notes, &(*result)[0].Result[i])
		}
	}
	return notes, nil
}

func (s *Store) GetNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.Note, error) {
	note, err := surrealdb.Select[models.Note](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, store.Retryable(fmt.Errorf("failed to get note: %w", err))
	}
	if note == nil || note.OwnerID != owner {
		return nil, nil
	}
	return note, nil
}

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	if note.ID.IsZero() {
		note.ID = models.NewNoteID()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	if note.EditedAt.IsZero() {
		note.EditedAt = note.CreatedAt
	}
	_, err := surrealdb.Create[models.Note](ctx, s.db, note.ID.RecordID(), note)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to create note: %w", err))
	}
	return nil
}

func (s *Store) UpdateNote(ctx context.Context, note *models.Note) error {
	_, err := surrealdb.Update[models.Note](ctx, s.db, note.ID.RecordID(), note)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to update note: %w", err))
	}
	return nil
}

func (s *Store) PatchNote(ctx context.Context, owner models.OwnerID, id models.NoteID, fields map[string]any) error {
	_, err := surrealdb.Merge[models.Note](ctx, s.db, id.RecordID(), fields)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to patch note: %w", err))
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.OwnerID, id models.NoteID) error {
	_, err := surrealdb.Delete[models.Note](ctx, s.db, id.RecordID())
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to delete note: %w", err))
	}
	return nil
}

// Trash

func (s *Store) ListTrash(ctx context.Context, owner models.OwnerID) ([]*models.Note, error) {
	query := "SELECT * FROM deleted_notes WHERE owner_id = $owner"
	params := map[string]any{
		"owner": owner,
	}
	result, err := surrealdb.Query[[]trashRow](ctx, s.db, query, params)
	if err != nil {
		return nil, store.Retryable(fmt.Errorf("failed to list trash: %w", err))
	}

	var notes []*models.Note
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			notes = append(notes, (*result)[0].Result[i].toNote())
		}
	}
	return notes, nil
}

func (s *Store) CreateTrashEntry(ctx context.Context, note *models.Note) error {
	row := toTrashRow(note)
	_, err := surrealdb.Create[trashRow](ctx, s.db, trashRecordID(note.ID), row)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to create trash entry: %w", err))
	}
	return nil
}

func (s *Store) DeleteTrashEntry(ctx context.Context, owner models.OwnerID, id models.NoteID) error {
	_, err := surrealdb.Delete[trashRow](ctx, s.db, trashRecordID(id))
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to delete trash entry: %w", err))
	}
	return nil
}

// Folders

func (s *Store) ListFolders(ctx context.Context, owner models.OwnerID) ([]*models.Folder, error) {
	query := "SELECT * FROM folders WHERE owner_id = $owner"
	params := map[string]any{
		"owner": owner,
	}
	result, err := surrealdb.Query[[]models.Folder](ctx, s.db, query, params)
	if err != nil {
		return nil, store.Retryable(fmt.Errorf("failed to list folders: %w", err))
	}

	var folders []*models.Folder
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			folders = append(folders, &(*result)[0].Result[i])
		}
	}
	return folders, nil
}

func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) error {
	if folder.ID.IsZero() {
		folder.ID = models.NewFolderID()
	}
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = time.Now()
	}
	_, err := surrealdb.Create[models.Folder](ctx, s.db, folder.ID.RecordID(), folder)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to create folder: %w", err))
	}
	return nil
}

func (s *Store) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	_, err := surrealdb.Update[models.Folder](ctx, s.db, folder.ID.RecordID(), folder)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to update folder: %w", err))
	}
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, owner models.OwnerID, id models.FolderID) error {
	_, err := surrealdb.Delete[models.Folder](ctx, s.db, id.RecordID())
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to delete folder: %w", err))
	}
	return nil
}

// Shares

func (s *Store) CreateShare(ctx context.Context, share *models.ShareRecord) error {
	if share.Token.IsZero() {
		share.Token = models.NewShareToken()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}
	_, err := surrealdb.Create[models.ShareRecord](ctx, s.db, share.Token.RecordID(), share)
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to create share: %w", err))
	}
	return nil
}

func (s *Store) GetShare(ctx context.Context, token models.ShareToken) (*models.ShareRecord, error) {
	share, err := surrealdb.Select[models.ShareRecord](ctx, s.db, token.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, store.Retryable(fmt.Errorf("failed to get share: %w", err))
	}
	return share, nil
}

func (s *Store) GetShareByNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.ShareRecord, error) {
	query := "SELECT * FROM public_notes WHERE owner_id = $owner AND note_id = $note"
	params := map[string]any{
		"owner": owner,
		"note":  id,
	}
	result, err := surrealdb.Query[[]models.ShareRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, store.Retryable(fmt.Errorf("failed to get share by note: %w", err))
	}

	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		return &(*result)[0].Result[0], nil
	}
	return nil, nil
}

func (s *Store) ListShares(ctx context.Context, owner models.OwnerID) ([]*models.ShareRecord, error) {
	query := "SELECT * FROM public_notes WHERE owner_id = $owner"
	params := map[string]any{
		"owner": owner,
	}
	result, err := surrealdb.Query[[]models.ShareRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, store.Retryable(fmt.Errorf("failed to list shares: %w", err))
	}

	var shares []*models.ShareRecord
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			shares = append(shares, &(*result)[0].Result[i])
		}
	}
	return shares, nil
}

func (s *Store) DeleteShare(ctx context.Context, token models.ShareToken) error {
	_, err := surrealdb.Delete[models.ShareRecord](ctx, s.db, token.RecordID())
	if err != nil {
		return store.Retryable(fmt.Errorf("failed to delete share: %w", err))
	}
	return nil
}

// liveSets are the record sets a subscription watches. Shares are global
// and resolved on demand, so they carry no live feed.
var liveSets = []string{"notes", "deleted_notes", "folders"}

// Subscribe opens a LIVE query per owner-scoped record set and forwards
// every notification for the subscribed owner to fn. The returned
// unsubscribe kills the live queries; killing closes the notification
// channels, which ends the forwarding goroutines.
func (s *Store) Subscribe(ctx context.Context, owner models.OwnerID, fn store.ChangeFunc) (store.UnsubscribeFunc, error) {
	var liveIDs []string

	kill := func() {
		for _, id := range liveIDs {
			// Best effort teardown; the connection may already be gone.
			_ = surrealdb.Kill(context.Background(), s.db, id)
		}
	}

	for _, set := range liveSets {
		live, err := surrealdb.Live(ctx, s.db, surrealdb_models.Table(set), false)
		if err != nil {
			kill()
			return nil, store.Retryable(fmt.Errorf("failed to open live query on %s: %w", set, err))
		}
		liveIDs = append(liveIDs, live.String())

		notifications, err := s.db.LiveNotifications(live.String())
		if err != nil {
			kill()
			return nil, store.Retryable(fmt.Errorf("failed to attach live notifications on %s: %w", set, err))
		}

		go forward(set, owner, notifications, fn)
	}

	return kill, nil
}

// forward relays live notifications for one record set until the channel
// closes. Notifications for other owners are dropped when the payload
// identifies its owner; otherwise the change passes through as a refresh
// hint.
func forward(set string, owner models.OwnerID, notifications chan connection.Notification, fn store.ChangeFunc) {
	for notification := range notifications {
		if !matchesOwner(notification.Result, owner) {
			continue
		}
		fn(store.Change{Action: mapAction(notification.Action), Set: set})
	}
}

func mapAction(a connection.Action) store.Action {
	switch a {
	case connection.CreateAction:
		return store.ActionCreate
	case connection.DeleteAction:
		return store.ActionDelete
	default:
		return store.ActionUpdate
	}
}

// matchesOwner inspects a live notification payload for an owner_id field.
// Payloads that cannot be inspected (deletes may carry a bare id) are
// treated as matching, since a spurious refresh is harmless and a missed
// one is not.
func matchesOwner(result any, owner models.OwnerID) bool {
	record, ok := result.(map[string]any)
	if !ok {
		return true
	}
	raw, ok := record["owner_id"]
	if !ok {
		return true
	}
	switch v := raw.(type) {
	case surrealdb_models.RecordID:
		return fmt.Sprint(v.ID) == owner.String()
	case string:
		return v == owner.String()
	default:
		return true
	}
}

var _ store.Store = (*Store)(nil)
