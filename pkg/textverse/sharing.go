package textverse

import (
	"context"
	"errors"
	"fmt"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

// ShareState reports the sharing status of one note after a toggle.
type ShareState struct {
	Shared bool               `json:"shared"`
	Token  *models.ShareToken `json:"token,omitempty"`
}

// Shares returns the live share records for the session owner's notes.
func (c *Coordinator) Shares() []models.ShareRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ShareRecord, 0, len(c.sharesByNote))
	for _, s := range c.sharesByNote {
		out = append(out, *s)
	}
	return out
}

// ShareForNote returns the live share record for a note, or nil.
func (c *Coordinator) ShareForNote(id models.NoteID) *models.ShareRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sharesByNote[id]
	if !ok {
		return nil
	}
	cs := *s
	return &cs
}

// ToggleShare flips a note's sharing state. An unshared note gets a fresh
// token in the global namespace; an already shared note is unshared and its
// token retired. Tokens are never reused: re-sharing mints a new one.
func (c *Coordinator) ToggleShare(ctx context.Context, id models.NoteID) (ShareState, error) {
	var state ShareState
	var created *models.ShareRecord
	var retired *models.ShareToken
	err := c.mutate(ctx, "toggle share",
		func() (func(), error) {
			if _, ok := c.notes[id]; !ok {
				return nil, notFoundErr("note", id.String())
			}
			if existing, ok := c.sharesByNote[id]; ok {
				prior := *existing
				delete(c.sharesByNote, id)
				t := prior.Token
				retired = &t
				state = ShareState{Shared: false}
				return func() {
					ps := prior
					c.sharesByNote[id] = &ps
				}, nil
			}
			share := &models.ShareRecord{
				Token:     models.NewShareToken(),
				OwnerID:   c.session.OwnerID,
				NoteID:    id,
				CreatedAt: c.now(),
			}
			c.sharesByNote[id] = share
			cs := *share
			created = &cs
			t := share.Token
			state = ShareState{Shared: true, Token: &t}
			return func() { delete(c.sharesByNote, id) }, nil
		},
		func(ctx context.Context, st store.Store) error {
			if retired != nil {
				err := st.DeleteShare(ctx, *retired)
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				return err
			}
			cs := *created
			return st.CreateShare(ctx, &cs)
		},
	)
	if err != nil {
		return ShareState{}, err
	}
	return state, nil
}

// Unshare retires a note's share if one exists. Unsharing a note that is
// not shared is a reported no-op, not an error.
func (c *Coordinator) Unshare(ctx context.Context, id models.NoteID) (bool, error) {
	c.mu.Lock()
	_, shared := c.sharesByNote[id]
	c.mu.Unlock()
	if !shared {
		return false, nil
	}
	state, err := c.ToggleShare(ctx, id)
	if err != nil {
		return false, err
	}
	return !state.Shared, nil
}

// ResolveShare resolves a public token to the shared note. Resolution works
// for any owner's token without authentication; an unknown token or a note
// that has since left the owner's active set reports not found and nothing
// else about the owner's data. The remote namespace is consulted first,
// then the local one, since shares persist in whichever backend was active
// when the note was shared.
func (c *Coordinator) ResolveShare(ctx context.Context, token models.ShareToken) (*models.Note, error) {
	for _, st := range c.shareStores() {
		share, err := st.GetShare(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("resolve share: %w", err)
		}
		if share == nil {
			continue
		}
		note, err := st.GetNote(ctx, share.OwnerID, share.NoteID)
		if err != nil {
			return nil, fmt.Errorf("resolve share: %w", err)
		}
		if note == nil || note.IsTrashed() {
			return nil, notFoundErr("share", token.String())
		}
		return note, nil
	}
	return nil, notFoundErr("share", token.String())
}
