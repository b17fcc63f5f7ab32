// Package local provides the device-scoped implementation of the
// [github.com/textverse/textverse/pkg/store.Store] interface using GORM over
// a SQLite file.
//
// The local backend is the fallback persistence used whenever nobody is
// signed in. It is single-writer by construction: only this process mutates
// the file, so there is no live change feed. [Store.Subscribe] fires exactly
// once on attach to hand the coordinator its initial snapshot and then stays
// silent.
//
// # Schema
//
// Four tables mirror the record sets of the engine: notes, deleted_notes,
// folders, and public_notes. Active notes and trash entries share the
// [models.Note] struct; trash rows live in their own table rather than
// behind a soft-delete flag so that listing either set never needs to
// filter the other. [Store.Migrate] creates all four through GORM's
// AutoMigrate, which only adds schema elements and is safe to rerun.
package local

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

const trashTable = "deleted_notes"

// Store implements store.Store on a SQLite file.
type Store struct {
	db *gorm.DB
}

// New opens (or creates) the SQLite database at path.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates the notes, deleted_notes, folders, and public_notes
// tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.Note{},
		&models.Folder{},
		&models.ShareRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate local schema: %w", err)
	}
	// Trash rows reuse the Note struct but live in their own table.
	if err := db.Table(trashTable).AutoMigrate(&models.Note{}); err != nil {
		return fmt.Errorf("failed to migrate trash table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Notes

func (s *Store) ListNotes(ctx context.Context, owner models.OwnerID) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).Find(&notes).Error
	return notes, err
}

func (s *Store) GetNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.Note, error) {
	var note models.Note
	err := s.db.WithContext(ctx).First(&note, "owner_id = ? AND id = ?", owner, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	return s.db.WithContext(ctx).Create(note).Error
}

func (s *Store) UpdateNote(ctx context.Context, note *models.Note) error {
	return s.db.WithContext(ctx).Save(note).Error
}

func (s *Store) PatchNote(ctx context.Context, owner models.OwnerID, id models.NoteID, fields map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&models.Note{}).
		Where("owner_id = ? AND id = ?", owner, id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, owner models.OwnerID, id models.NoteID) error {
	res := s.db.WithContext(ctx).Delete(&models.Note{}, "owner_id = ? AND id = ?", owner, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Trash

func (s *Store) ListTrash(ctx context.Context, owner models.OwnerID) ([]*models.Note, error) {
	var notes []*models.Note
	err := s.db.WithContext(ctx).Table(trashTable).Where("owner_id = ?", owner).Find(&notes).Error
	return notes, err
}

func (s *Store) CreateTrashEntry(ctx context.Context, note *models.Note) error {
	return s.db.WithContext(ctx).Table(trashTable).Create(note).Error
}

func (s *Store) DeleteTrashEntry(ctx context.Context, owner models.OwnerID, id models.NoteID) error {
	res := s.db.WithContext(ctx).Table(trashTable).
		Where("owner_id = ? AND id = ?", owner, id).
		Delete(&models.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Folders

func (s *Store) ListFolders(ctx context.Context, owner models.OwnerID) ([]*models.Folder, error) {
	var folders []*models.Folder
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).Find(&folders).Error
	return folders, err
}

func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) error {
	return s.db.WithContext(ctx).Create(folder).Error
}

func (s *Store) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	return s.db.WithContext(ctx).Save(folder).Error
}

func (s *Store) DeleteFolder(ctx context.Context, owner models.OwnerID, id models.FolderID) error {
	res := s.db.WithContext(ctx).Delete(&models.Folder{}, "owner_id = ? AND id = ?", owner, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Shares. The public_notes table has no owner scoping on token lookups so
// resolution works for tokens minted by any owner.

func (s *Store) CreateShare(ctx context.Context, share *models.ShareRecord) error {
	return s.db.WithContext(ctx).Create(share).Error
}

func (s *Store) GetShare(ctx context.Context, token models.ShareToken) (*models.ShareRecord, error) {
	var share models.ShareRecord
	err := s.db.WithContext(ctx).First(&share, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

func (s *Store) GetShareByNote(ctx context.Context, owner models.OwnerID, id models.NoteID) (*models.ShareRecord, error) {
	var share models.ShareRecord
	err := s.db.WithContext(ctx).First(&share, "owner_id = ? AND note_id = ?", owner, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

func (s *Store) ListShares(ctx context.Context, owner models.OwnerID) ([]*models.ShareRecord, error) {
	var shares []*models.ShareRecord
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).Find(&shares).Error
	return shares, err
}

func (s *Store) DeleteShare(ctx context.Context, token models.ShareToken) error {
	res := s.db.WithContext(ctx).Delete(&models.ShareRecord{}, "token = ?", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Subscribe fires fn exactly once. Nothing else writes to the local file,
// so after the initial snapshot hint there is nothing to report.
func (s *Store) Subscribe(ctx context.Context, owner models.OwnerID, fn store.ChangeFunc) (store.UnsubscribeFunc, error) {
	fn(store.Change{Action: store.ActionUpdate, Set: "notes"})
	return func() {}, nil
}

var _ store.Store = (*Store)(nil)
