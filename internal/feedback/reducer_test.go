package feedback

import (
	"testing"
	"time"

	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/assert"
)

func entry(id string, minute int) types.Feedback {
	return types.Feedback{
		ID:        id,
		Name:      "n-" + id,
		Message:   "m-" + id,
		Rating:    3,
		CreatedAt: time.Date(2024, 1, 1, 12, minute, 0, 0, time.UTC),
	}
}

func ids(entries []types.Feedback) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestUpsert(t *testing.T) {
	tests := []struct {
		name    string
		entries []types.Feedback
		row     types.Feedback
		want    []string
	}{
		{"into empty", nil, entry("a", 1), []string{"a"}},
		{"newest goes first", []types.Feedback{entry("b", 2), entry("a", 1)}, entry("c", 3), []string{"c", "b", "a"}},
		{"older goes in order", []types.Feedback{entry("c", 3), entry("a", 1)}, entry("b", 2), []string{"c", "b", "a"}},
		{"oldest goes last", []types.Feedback{entry("c", 3), entry("b", 2)}, entry("a", 1), []string{"c", "b", "a"}},
		{"same timestamp goes first", []types.Feedback{entry("a", 1)}, entry("b", 1), []string{"b", "a"}},
		{"duplicate id is replaced", []types.Feedback{entry("b", 2), entry("a", 1)}, entry("b", 2), []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Upsert(tt.entries, tt.row)))
		})
	}
}

func TestUpsert_ReplacesContent(t *testing.T) {
	entries := []types.Feedback{entry("a", 1)}
	updated := entry("a", 1)
	updated.Message = "edited"

	got := Upsert(entries, updated)
	assert.Len(t, got, 1)
	assert.Equal(t, "edited", got[0].Message)
}

func TestMerge_OptimisticAndRealtimeSameRow(t *testing.T) {
	baseline := []types.Feedback{entry("b", 2), entry("a", 1)}
	mine := entry("c", 3)

	// The insert result and the realtime echo of the same row.
	got := Merge(baseline, mine, mine)
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}
