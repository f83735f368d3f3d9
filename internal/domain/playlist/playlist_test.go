package playlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/guildbox/internal/domain/track"
)

func TestPlaylist_Requests(t *testing.T) {
	alice := track.Requester{ID: "1", Name: "alice"}

	tests := []struct {
		name     string
		tracks   []track.Prepared
		expected []string
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Prepared{},
			expected: []string{},
		},
		{
			name:     "single track",
			tracks:   []track.Prepared{{Title: "One", Artists: []string{"A"}}},
			expected: []string{"One A"},
		},
		{
			name: "keeps source order",
			tracks: []track.Prepared{
				{Title: "One", Origin: "https://open.spotify.com/track/1"},
				{Title: "Two", Origin: "https://open.spotify.com/track/2"},
				{Title: "Three", Origin: "https://open.spotify.com/track/3"},
			},
			expected: []string{
				"One - [https://open.spotify.com/track/1]",
				"Two - [https://open.spotify.com/track/2]",
				"Three - [https://open.spotify.com/track/3]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: "playlist-1", Kind: KindPlaylist, Tracks: tt.tracks}

			reqs := p.Requests(alice)
			displays := make([]string, len(reqs))
			for i, r := range reqs {
				displays[i] = r.Display()
				assert.Equal(t, alice, r.RequestedBy())
			}
			assert.Equal(t, tt.expected, displays)
		})
	}
}

func TestPlaylist_RequestsDoesNotMutateTracks(t *testing.T) {
	p := &Playlist{Tracks: []track.Prepared{{Title: "One"}}}
	p.Requests(track.Requester{Name: "bob"})
	assert.Empty(t, p.Tracks[0].Requester.Name)
}

func TestPlaylist_TotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Prepared
		expected time.Duration
	}{
		{name: "empty playlist", tracks: nil, expected: 0},
		{
			name: "multiple tracks",
			tracks: []track.Prepared{
				{Duration: 3 * time.Minute},
				{Duration: 4 * time.Minute},
				{Duration: 30 * time.Second},
			},
			expected: 7*time.Minute + 30*time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{Tracks: tt.tracks}
			assert.Equal(t, tt.expected, p.TotalDuration())
		})
	}
}
