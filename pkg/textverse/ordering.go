package textverse

import (
	"sort"

	"github.com/textverse/textverse/pkg/models"
)

// Reorder sorts notes into presentation order, in place: pinned notes first,
// then by last activity (the later of edit and creation time) descending.
// The sort is stable, so notes that compare equal keep their relative order
// and reordering an already ordered slice changes nothing.
func Reorder(notes []*models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		return a.LastActivity().After(b.LastActivity())
	})
}
