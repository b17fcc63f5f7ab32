package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NoteID is a typed ID for notes
type NoteID struct {
	uuid uuid.UUID
}

func NewNoteID() NoteID {
	return NoteID{uuid: uuid.New()}
}

func NewNoteIDFromUUID(id uuid.UUID) NoteID {
	return NoteID{uuid: id}
}

func ParseNoteID(s string) (NoteID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NoteID{}, fmt.Errorf("invalid note ID: %w", err)
	}
	return NoteID{uuid: id}, nil
}

func (n NoteID) UUID() uuid.UUID { return n.uuid }
func (n NoteID) String() string  { return n.uuid.String() }
func (n NoteID) IsZero() bool    { return n.uuid == uuid.Nil }

func (n NoteID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "notes",
		ID:    n.uuid.String(),
	}
}

func (n NoteID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.uuid.String())
}

func (n *NoteID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	n.uuid = id
	return nil
}

func (n NoteID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"notes", n.uuid.String()},
	})
}

func (n *NoteID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "notes", &n.uuid)
}

func (n NoteID) Value() (driver.Value, error) {
	if n.IsZero() {
		return nil, nil
	}
	return n.uuid.String(), nil
}

func (n *NoteID) Scan(value any) error {
	return scanUUID(value, &n.uuid)
}

func (NoteID) GormDataType() string { return "uuid" }

// FolderID is a typed ID for folders
type FolderID struct {
	uuid uuid.UUID
}

func NewFolderID() FolderID {
	return FolderID{uuid: uuid.New()}
}

func NewFolderIDFromUUID(id uuid.UUID) FolderID {
	return FolderID{uuid: id}
}

func ParseFolderID(s string) (FolderID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return FolderID{}, fmt.Errorf("invalid folder ID: %w", err)
	}
	return FolderID{uuid: id}, nil
}

func (f FolderID) UUID() uuid.UUID { return f.uuid }
func (f FolderID) String() string  { return f.uuid.String() }
func (f FolderID) IsZero() bool    { return f.uuid == uuid.Nil }

func (f FolderID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "folders",
		ID:    f.uuid.String(),
	}
}

func (f FolderID) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.uuid.String())
}

func (f *FolderID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	f.uuid = id
	return nil
}

func (f FolderID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"folders", f.uuid.String()},
	})
}

func (f *FolderID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "folders", &f.uuid)
}

func (f FolderID) Value() (driver.Value, error) {
	if f.IsZero() {
		return nil, nil
	}
	return f.uuid.String(), nil
}

func (f *FolderID) Scan(value any) error {
	return scanUUID(value, &f.uuid)
}

func (FolderID) GormDataType() string { return "uuid" }

// OwnerID is a typed ID for note owners. Every record set except shares is
// scoped by owner, and the same owner ID addresses the same space on both
// the local and the remote backend.
type OwnerID struct {
	uuid uuid.UUID
}

func NewOwnerID() OwnerID {
	return OwnerID{uuid: uuid.New()}
}

func NewOwnerIDFromUUID(id uuid.UUID) OwnerID {
	return OwnerID{uuid: id}
}

// LocalOwnerID is the fixed owner space used when nobody is signed in.
// Derived deterministically so unauthenticated data survives restarts.
func LocalOwnerID() OwnerID {
	return OwnerID{uuid: uuid.NewSHA1(uuid.NameSpaceOID, []byte("textverse.local"))}
}

func ParseOwnerID(s string) (OwnerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return OwnerID{}, fmt.Errorf("invalid owner ID: %w", err)
	}
	return OwnerID{uuid: id}, nil
}

func (o OwnerID) UUID() uuid.UUID { return o.uuid }
func (o OwnerID) String() string  { return o.uuid.String() }
func (o OwnerID) IsZero() bool    { return o.uuid == uuid.Nil }

func (o OwnerID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "owners",
		ID:    o.uuid.String(),
	}
}

func (o OwnerID) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.uuid.String())
}

func (o *OwnerID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	o.uuid = id
	return nil
}

func (o OwnerID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"owners", o.uuid.String()},
	})
}

func (o *OwnerID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "owners", &o.uuid)
}

func (o OwnerID) Value() (driver.Value, error) {
	if o.IsZero() {
		return nil, nil
	}
	return o.uuid.String(), nil
}

func (o *OwnerID) Scan(value any) error {
	return scanUUID(value, &o.uuid)
}

func (OwnerID) GormDataType() string { return "uuid" }

// ShareToken is the public identifier of a shared note. Tokens live in a
// global namespace and are minted fresh for every share, never reused.
type ShareToken struct {
	uuid uuid.UUID
}

func NewShareToken() ShareToken {
	return ShareToken{uuid: uuid.New()}
}

func ParseShareToken(s string) (ShareToken, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ShareToken{}, fmt.Errorf("invalid share token: %w", err)
	}
	return ShareToken{uuid: id}, nil
}

func (t ShareToken) UUID() uuid.UUID { return t.uuid }
func (t ShareToken) String() string  { return t.uuid.String() }
func (t ShareToken) IsZero() bool    { return t.uuid == uuid.Nil }

func (t ShareToken) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "public_notes",
		ID:    t.uuid.String(),
	}
}

func (t ShareToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.uuid.String())
}

func (t *ShareToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	t.uuid = id
	return nil
}

func (t ShareToken) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{"public_notes", t.uuid.String()},
	})
}

func (t *ShareToken) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "public_notes", &t.uuid)
}

func (t ShareToken) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.uuid.String(), nil
}

func (t *ShareToken) Scan(value any) error {
	return scanUUID(value, &t.uuid)
}

func (ShareToken) GormDataType() string { return "uuid" }

// Helper functions

// scanUUID is a helper for implementing sql.Scanner interface for SQLite/GORM
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// unmarshalCBORID is a helper for unmarshaling SurrealDB RecordID from CBOR.
// SurrealDB uses CBOR tag 8 to identify RecordID types in its binary protocol.
// The RecordID is encoded as [table_name, id_string] within the tag.
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// Check if this is a CBOR tag (major type 6)
	majorType := data[0] >> 5
	if majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	// SurrealDB uses tag 8 for RecordID
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}

	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsedUUID, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsedUUID
	return nil
}
