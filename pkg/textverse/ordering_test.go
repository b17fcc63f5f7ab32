package textverse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/textverse"
)

func note(title string, pinned bool, created, edited time.Time) *models.Note {
	return &models.Note{
		ID:        models.NewNoteID(),
		Title:     title,
		Pinned:    pinned,
		CreatedAt: created,
		EditedAt:  edited,
	}
}

func titles(notes []*models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func TestReorderPinnedFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := []*models.Note{
		note("old unpinned", false, base, base),
		note("new unpinned", false, base.Add(3*time.Hour), base.Add(3*time.Hour)),
		note("old pinned", true, base.Add(time.Hour), base.Add(time.Hour)),
		note("new pinned", true, base.Add(2*time.Hour), base.Add(2*time.Hour)),
	}

	textverse.Reorder(notes)

	require.Equal(t, []string{"new pinned", "old pinned", "new unpinned", "old unpinned"}, titles(notes))
}

func TestReorderUsesLaterOfEditAndCreation(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Created later than the other was edited, never edited since.
	created := note("created late", false, base.Add(2*time.Hour), base.Add(2*time.Hour))
	edited := note("edited early", false, base, base.Add(time.Hour))
	notes := []*models.Note{edited, created}

	textverse.Reorder(notes)

	require.Equal(t, []string{"created late", "edited early"}, titles(notes))
}

func TestReorderIdempotent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := []*models.Note{
		note("a", true, base, base),
		note("b", false, base.Add(time.Minute), base.Add(time.Minute)),
		note("c", false, base, base),
		// Equal timestamps, relative order must survive repeated sorts.
		note("d", false, base, base),
	}

	textverse.Reorder(notes)
	first := titles(notes)
	textverse.Reorder(notes)

	require.Equal(t, first, titles(notes))
}
