package textverse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
	"github.com/textverse/textverse/pkg/store/storetest"
	"github.com/textverse/textverse/pkg/textverse"
)

func TestToggleShareMintsAndRetires(t *testing.T) {
	c, local, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "shared", "body", "")
	require.NoError(t, err)

	state, err := c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, state.Shared)
	require.NotNil(t, state.Token)
	first := *state.Token

	share, err := local.GetShare(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, share)
	require.Equal(t, n.ID, share.NoteID)

	state, err = c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	require.False(t, state.Shared)
	require.Nil(t, state.Token)

	share, err = local.GetShare(ctx, first)
	require.NoError(t, err)
	require.Nil(t, share, "retired token must be gone from the backend")
}

func TestReshareMintsFreshToken(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "shared", "body", "")
	require.NoError(t, err)

	state, err := c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	first := *state.Token

	_, err = c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	state, err = c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, state.Shared)
	require.NotEqual(t, first, *state.Token, "tokens are never reused")

	// The retired token no longer resolves.
	_, err = c.ResolveShare(ctx, first)
	require.Error(t, err)
	require.True(t, textverse.IsNotFound(err))
}

func TestToggleShareUnknownNote(t *testing.T) {
	c, _, _ := newEngine(t)
	_, err := c.ToggleShare(context.Background(), models.NewNoteID())
	require.Error(t, err)
	require.True(t, textverse.IsNotFound(err))
}

func TestToggleShareRollback(t *testing.T) {
	c, local, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "shared", "body", "")
	require.NoError(t, err)

	local.FailOnce("CreateShare", store.Retryable(errors.New("boom")))
	_, err = c.ToggleShare(ctx, n.ID)
	require.Error(t, err)
	require.Nil(t, c.ShareForNote(n.ID))
}

func TestUnshareIdempotent(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "shared", "body", "")
	require.NoError(t, err)

	removed, err := c.Unshare(ctx, n.ID)
	require.NoError(t, err)
	require.False(t, removed, "unsharing an unshared note is a no-op")

	_, err = c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)

	removed, err = c.Unshare(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = c.Unshare(ctx, n.ID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestResolveShare(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "public", "hello world", "")
	require.NoError(t, err)
	state, err := c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)

	got, err := c.ResolveShare(ctx, *state.Token)
	require.NoError(t, err)
	require.Equal(t, n.ID, got.ID)
	require.Equal(t, "hello world", got.Content)
}

func TestResolveShareUnknownToken(t *testing.T) {
	c, _, _ := newEngine(t)
	_, err := c.ResolveShare(context.Background(), models.NewShareToken())
	require.Error(t, err)
	require.True(t, textverse.IsNotFound(err))
}

func TestResolveShareStopsAtTrashedNote(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "public", "body", "")
	require.NoError(t, err)
	state, err := c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	require.NoError(t, c.DeleteNote(ctx, n.ID))

	_, err = c.ResolveShare(ctx, *state.Token)
	require.Error(t, err)
	require.True(t, textverse.IsNotFound(err), "a trashed note's token must not resolve")
}

func TestResolveShareCrossOwner(t *testing.T) {
	// The share was created by an authenticated owner; a fresh local
	// session can still resolve the token against the shared backend.
	local := storetest.New()
	remote := storetest.New()
	clock := newTestClock()

	owner := models.NewOwnerID()
	publisher := textverse.NewCoordinator(local,
		textverse.WithRemote(remote),
		textverse.WithClock(clock.Now),
	)
	ctx := context.Background()
	require.NoError(t, publisher.SwitchSession(ctx, textverse.Session{Authenticated: true, OwnerID: owner}))
	n, err := publisher.AddNote(ctx, "from owner", "body", "")
	require.NoError(t, err)
	state, err := publisher.ToggleShare(ctx, n.ID)
	require.NoError(t, err)
	require.NoError(t, publisher.Close())

	reader := textverse.NewCoordinator(storetest.New(), textverse.WithRemote(remote))
	t.Cleanup(func() { _ = reader.Close() })
	require.NoError(t, reader.LoadNotes(ctx))

	got, err := reader.ResolveShare(ctx, *state.Token)
	require.NoError(t, err)
	require.Equal(t, "from owner", got.Title)
	require.Equal(t, owner, got.OwnerID)
}

func TestSharesSurviveReload(t *testing.T) {
	c, _, _ := newEngine(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "shared", "body", "")
	require.NoError(t, err)
	state, err := c.ToggleShare(ctx, n.ID)
	require.NoError(t, err)

	require.NoError(t, c.LoadNotes(ctx))

	share := c.ShareForNote(n.ID)
	require.NotNil(t, share)
	require.Equal(t, *state.Token, share.Token)
	require.WithinDuration(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), share.CreatedAt, time.Minute)
}
