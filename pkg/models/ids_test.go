package models

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestNoteIDJSONRoundTrip(t *testing.T) {
	id := NewNoteID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	require.Equal(t, `"`+id.String()+`"`, string(data))

	var back NoteID
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, id, back)
}

func TestNoteIDCBORRoundTrip(t *testing.T) {
	id := NewNoteID()

	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var back NoteID
	require.NoError(t, cbor.Unmarshal(data, &back))
	require.Equal(t, id, back)
}

func TestNoteIDCBORRejectsWrongTable(t *testing.T) {
	id := NewFolderID()
	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var back NoteID
	require.Error(t, back.UnmarshalCBOR(data), "a folder record id must not scan into a note id")
}

func TestParseNoteID(t *testing.T) {
	id := NewNoteID()
	parsed, err := ParseNoteID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseNoteID("not-a-uuid")
	require.Error(t, err)
}

func TestNoteIDRecordID(t *testing.T) {
	id := NewNoteID()
	rid := id.RecordID()
	require.Equal(t, "notes", rid.Table)
	require.Equal(t, id.String(), rid.ID)
}

func TestIDValueAndScan(t *testing.T) {
	id := NewNoteID()

	v, err := id.Value()
	require.NoError(t, err)
	require.Equal(t, id.String(), v)

	var zero NoteID
	v, err = zero.Value()
	require.NoError(t, err)
	require.Nil(t, v, "zero ids store as NULL")

	var scanned NoteID
	require.NoError(t, scanned.Scan(id.String()))
	require.Equal(t, id, scanned)

	require.NoError(t, scanned.Scan([]byte(id.String())))
	require.Equal(t, id, scanned)
}

func TestLocalOwnerIDStable(t *testing.T) {
	a := LocalOwnerID()
	b := LocalOwnerID()
	require.Equal(t, a, b, "the local owner id is deterministic")
	require.False(t, a.IsZero())
	require.NotEqual(t, a, NewOwnerID())
}

func TestShareTokenUniqueness(t *testing.T) {
	seen := map[ShareToken]bool{}
	for i := 0; i < 100; i++ {
		tok := NewShareToken()
		require.False(t, seen[tok])
		seen[tok] = true
	}
}
