package intake

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildbox/internal/domain/playlist"
	"github.com/osa030/guildbox/internal/domain/track"
)

type fakeExpander struct {
	pl  *playlist.Playlist
	err error
	got string
}

func (f *fakeExpander) Expand(ctx context.Context, locator string) (*playlist.Playlist, error) {
	f.got = locator
	return f.pl, f.err
}

var alice = track.Requester{ID: "1", Name: "alice"}

func TestIntake_Parse(t *testing.T) {
	in := New(nil)

	tests := []struct {
		name     string
		locator  string
		source   Source
		expected track.Request
	}{
		{
			name:     "free text is a search",
			locator:  "daft punk around the world",
			source:   SourceSearch,
			expected: track.Search{Query: "daft punk around the world", Requester: alice},
		},
		{
			name:     "single word is a search",
			locator:  "  lofi  ",
			source:   SourceSearch,
			expected: track.Search{Query: "lofi", Requester: alice},
		},
		{
			name:     "youtube watch url",
			locator:  "https://www.youtube.com/watch?v=abc",
			source:   SourceYouTube,
			expected: track.Direct{URL: "https://www.youtube.com/watch?v=abc", Requester: alice},
		},
		{
			name:     "youtu.be with seconds offset",
			locator:  "https://youtu.be/abc?t=90",
			source:   SourceYouTube,
			expected: track.Direct{URL: "https://youtu.be/abc?t=90", StartOffset: 90 * time.Second, Requester: alice},
		},
		{
			name:     "youtube with ts unit offset",
			locator:  "https://youtube.com/watch?v=abc&ts=1m30s",
			source:   SourceYouTube,
			expected: track.Direct{URL: "https://youtube.com/watch?v=abc&ts=1m30s", StartOffset: 90 * time.Second, Requester: alice},
		},
		{
			name:     "youtube with bad offset starts at zero",
			locator:  "https://youtu.be/abc?t=soon",
			source:   SourceYouTube,
			expected: track.Direct{URL: "https://youtu.be/abc?t=soon", Requester: alice},
		},
		{
			name:     "scheme-less youtube",
			locator:  "youtu.be/abc",
			source:   SourceYouTube,
			expected: track.Direct{URL: "https://youtu.be/abc", Requester: alice},
		},
		{
			name:     "soundcloud",
			locator:  "https://soundcloud.com/artist/song",
			source:   SourceSoundCloud,
			expected: track.Direct{URL: "https://soundcloud.com/artist/song", Requester: alice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := in.Parse(context.Background(), tt.locator, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.source, res.Source)
			require.Len(t, res.Requests, 1)
			assert.Equal(t, tt.expected, res.Requests[0])
			assert.Nil(t, res.Collection)
		})
	}
}

func TestIntake_ParseErrors(t *testing.T) {
	in := New(nil)

	_, err := in.Parse(context.Background(), "   ", alice)
	assert.ErrorIs(t, err, ErrEmptyLocator)

	_, err = in.Parse(context.Background(), "https://vimeo.com/123", alice)
	assert.True(t, errors.Is(err, ErrUnsupportedHost))

	_, err = in.Parse(context.Background(), "https://open.spotify.com/track/abc", alice)
	assert.ErrorIs(t, err, ErrExpansionUnavailable)
}

func TestIntake_ParseSpotify(t *testing.T) {
	exp := &fakeExpander{pl: &playlist.Playlist{
		ID:   "pl1",
		Name: "Mix",
		Kind: playlist.KindPlaylist,
		Tracks: []track.Prepared{
			{Title: "One", Artists: []string{"A"}},
			{Title: "Two", Artists: []string{"B"}},
		},
	}}
	in := New(exp)

	res, err := in.Parse(context.Background(), "https://open.spotify.com/playlist/pl1?si=x", alice)
	require.NoError(t, err)
	assert.Equal(t, "https://open.spotify.com/playlist/pl1?si=x", exp.got)
	assert.Equal(t, SourceSpotify, res.Source)
	require.Len(t, res.Requests, 2)
	assert.Equal(t, "One A", res.Requests[0].Display())
	assert.Equal(t, alice, res.Requests[1].RequestedBy())
	assert.Equal(t, "Mix", res.Collection.Name)

	exp.pl = &playlist.Playlist{Name: "Empty", Kind: playlist.KindPlaylist}
	_, err = in.Parse(context.Background(), "https://open.spotify.com/playlist/empty", alice)
	assert.ErrorIs(t, err, ErrEmptyCollection)

	exp.err = errors.New("not found")
	_, err = in.Parse(context.Background(), "https://open.spotify.com/album/x", alice)
	assert.Error(t, err)
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"90", 90 * time.Second, true},
		{"90s", 90 * time.Second, true},
		{"1h2m3s", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"-5", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseOffset(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
