package playback

import (
	"fmt"
	"strings"
)

// DefaultListLimit is the listing bound used when the caller asks for none.
const DefaultListLimit = 10

// TruncationMarker is appended to a formatted listing when entries were cut.
const TruncationMarker = "..."

// Listing is a bounded, numbered view over display entries.
//
// With limit L the listing holds min(len, L)-1 entries: the boundary element
// is excluded, so a 10-entry collection lists 9 and a 25-entry collection
// lists 9 followed by the marker. Callers rely on this exact shape.
type Listing struct {
	Entries   []string `json:"entries"`
	Total     int      `json:"total"`
	Truncated bool     `json:"truncated"`
}

func newListing(entries []string, limit int) Listing {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	count := min(len(entries), limit) - 1
	if count < 0 {
		count = 0
	}

	out := make([]string, count)
	copy(out, entries[:count])
	return Listing{
		Entries:   out,
		Total:     len(entries),
		Truncated: len(entries) > limit,
	}
}

// String renders the listing as numbered lines.
func (l Listing) String() string {
	var sb strings.Builder
	for i, e := range l.Entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d: %s", i+1, e)
	}
	if l.Truncated {
		sb.WriteString("\n" + TruncationMarker)
	}
	return sb.String()
}
