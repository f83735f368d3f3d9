// Package track provides the track request and resolved track entities.
package track

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrUnknownRequest is returned when a request variant is not handled.
var ErrUnknownRequest = errors.New("unknown track request kind")

// Requester represents the person who requested the track.
type Requester struct {
	ID   string // Platform user ID
	Name string // Display name
}

// Request is an unresolved or partially resolved ask to play something.
// The variants are closed: Search, Direct and Prepared.
type Request interface {
	// Display returns the summary used in queue listings.
	Display() string
	// RequestedBy returns the requester identity.
	RequestedBy() Requester

	isRequest()
}

// Search asks for the best match of a free-text query.
type Search struct {
	Query     string
	Requester Requester
}

// Direct asks for a specific media page, optionally starting at an offset.
type Direct struct {
	URL         string
	StartOffset time.Duration // Zero means from the beginning
	Requester   Requester
}

// Prepared is a descriptor that already carries metadata, typically produced
// by expanding a playlist or album.
type Prepared struct {
	Title       string
	Artists     []string
	Locator     string        // Playable page URL (empty when only a search hint is known)
	Origin      string        // Where the descriptor came from (e.g. a Spotify URL)
	Duration    time.Duration // Duration reported by the origin
	StartOffset time.Duration
	Requester   Requester
}

func (Search) isRequest()   {}
func (Direct) isRequest()   {}
func (Prepared) isRequest() {}

// Display returns the search query.
func (s Search) Display() string { return s.Query }

// RequestedBy returns the requester.
func (s Search) RequestedBy() Requester { return s.Requester }

// Display returns the requested URL.
func (d Direct) Display() string { return d.URL }

// RequestedBy returns the requester.
func (d Direct) RequestedBy() Requester { return d.Requester }

// Display returns "title - [link]" or the bare title when no link is known.
func (p Prepared) Display() string {
	link := p.Locator
	if link == "" {
		link = p.Origin
	}
	if link == "" {
		return p.SearchHint()
	}
	return fmt.Sprintf("%s - [%s]", p.Title, link)
}

// RequestedBy returns the requester.
func (p Prepared) RequestedBy() Requester { return p.Requester }

// SearchHint returns the query used when no playable locator is known.
func (p Prepared) SearchHint() string {
	parts := append([]string{p.Title}, p.Artists...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Resolved is concrete playable metadata. Values are never modified after
// creation; pass them by value.
type Resolved struct {
	Title       string
	PageURL     string // Canonical page URL
	StreamURL   string // Locator handed to the audio sink
	Duration    time.Duration
	Uploader    string
	Thumbnail   string
	IsLive      bool
	Requester   Requester
	StartOffset time.Duration
}

// Summary returns the history line for the track.
func (r Resolved) Summary() string {
	return r.Title + " - " + r.PageURL
}

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
