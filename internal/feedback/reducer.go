package feedback

import (
	"sort"

	"github.com/joeyportfolio/portfolio/types"
)

// Upsert merges row into entries, which are ordered newest first. A row
// whose id is already present replaces that entry; otherwise it is inserted
// ahead of every entry that is not newer than it. Insert results and
// realtime events both go through here, so an entry appears once.
func Upsert(entries []types.Feedback, row types.Feedback) []types.Feedback {
	for i := range entries {
		if entries[i].ID == row.ID {
			entries[i] = row
			return entries
		}
	}

	i := sort.Search(len(entries), func(i int) bool {
		return !entries[i].CreatedAt.After(row.CreatedAt)
	})
	entries = append(entries, types.Feedback{})
	copy(entries[i+1:], entries[i:])
	entries[i] = row
	return entries
}

// Merge upserts every row of rows into entries.
func Merge(entries []types.Feedback, rows ...types.Feedback) []types.Feedback {
	for _, row := range rows {
		entries = Upsert(entries, row)
	}
	return entries
}
