package playback

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func entries(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("entry %d", i+1)
	}
	return out
}

func TestNewListing_BoundaryConvention(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		limit         int
		wantEntries   int
		wantTruncated bool
	}{
		{name: "empty", size: 0, limit: 10, wantEntries: 0},
		{name: "single entry lists nothing", size: 1, limit: 10, wantEntries: 0},
		{name: "below limit", size: 5, limit: 10, wantEntries: 4},
		{name: "exactly limit lists nine", size: 10, limit: 10, wantEntries: 9},
		{name: "one over limit", size: 11, limit: 10, wantEntries: 9, wantTruncated: true},
		{name: "25 entries lists nine plus marker", size: 25, limit: 10, wantEntries: 9, wantTruncated: true},
		{name: "zero limit falls back to default", size: 25, limit: 0, wantEntries: 9, wantTruncated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newListing(entries(tt.size), tt.limit)
			assert.Len(t, l.Entries, tt.wantEntries)
			assert.Equal(t, tt.size, l.Total)
			assert.Equal(t, tt.wantTruncated, l.Truncated)
			if tt.wantEntries > 0 {
				assert.Equal(t, "entry 1", l.Entries[0])
			}
		})
	}
}

func TestListing_String(t *testing.T) {
	l := newListing(entries(25), 10)
	expected := "1: entry 1\n2: entry 2\n3: entry 3\n4: entry 4\n5: entry 5\n" +
		"6: entry 6\n7: entry 7\n8: entry 8\n9: entry 9\n..."
	assert.Equal(t, expected, l.String())

	assert.Equal(t, "1: entry 1\n2: entry 2", newListing(entries(3), 10).String())
	assert.Equal(t, "", newListing(nil, 10).String())
}

func TestListing_DoesNotAlias(t *testing.T) {
	src := entries(5)
	l := newListing(src, 10)
	src[0] = "changed"
	assert.Equal(t, "entry 1", l.Entries[0])
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	for i := 1; i <= 12; i++ {
		h.Append(fmt.Sprintf("Song %d - https://example.com/%d", i, i))
	}

	assert.Equal(t, 12, h.Len())

	l := h.ListTop(10)
	assert.Len(t, l.Entries, 9)
	assert.True(t, l.Truncated)
	assert.Equal(t, "Song 1 - https://example.com/1", l.Entries[0])

	h.Reset()
	assert.Equal(t, 0, h.Len())
}
