// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Kind is the kind of collection a playlist was expanded from.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
)

// Playlist is an expanded collection of prepared track descriptors.
type Playlist struct {
	ID     string           // Source ID
	Name   string           // Collection name
	URL    string           // Source URL
	Kind   Kind             // Collection kind
	Tracks []track.Prepared // Tracks in source order
}

// Requests returns the tracks as queue requests, each attributed to requester.
func (p *Playlist) Requests(requester track.Requester) []track.Request {
	reqs := make([]track.Request, len(p.Tracks))
	for i, t := range p.Tracks {
		t.Requester = requester
		reqs[i] = t
	}
	return reqs
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}
