package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequest_Display(t *testing.T) {
	alice := Requester{ID: "1", Name: "alice"}

	tests := []struct {
		name     string
		req      Request
		expected string
	}{
		{
			name:     "search shows query",
			req:      Search{Query: "daft punk around the world", Requester: alice},
			expected: "daft punk around the world",
		},
		{
			name:     "direct shows url",
			req:      Direct{URL: "https://youtu.be/abc", StartOffset: 30 * time.Second, Requester: alice},
			expected: "https://youtu.be/abc",
		},
		{
			name: "prepared with locator",
			req: Prepared{
				Title:     "Song",
				Locator:   "https://www.youtube.com/watch?v=abc",
				Requester: alice,
			},
			expected: "Song - [https://www.youtube.com/watch?v=abc]",
		},
		{
			name: "prepared falls back to origin",
			req: Prepared{
				Title:  "Song",
				Origin: "https://open.spotify.com/track/1",
			},
			expected: "Song - [https://open.spotify.com/track/1]",
		},
		{
			name:     "prepared without links shows search hint",
			req:      Prepared{Title: "Song", Artists: []string{"A", "B"}},
			expected: "Song A B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.Display())
		})
	}
}

func TestRequest_RequestedBy(t *testing.T) {
	bob := Requester{ID: "2", Name: "bob"}

	for _, req := range []Request{
		Search{Query: "q", Requester: bob},
		Direct{URL: "u", Requester: bob},
		Prepared{Title: "t", Requester: bob},
	} {
		assert.Equal(t, bob, req.RequestedBy())
	}
}

func TestPrepared_SearchHint(t *testing.T) {
	p := Prepared{Title: "Harder Better", Artists: []string{"Daft Punk"}}
	assert.Equal(t, "Harder Better Daft Punk", p.SearchHint())

	assert.Equal(t, "Solo", Prepared{Title: "Solo"}.SearchHint())
}

func TestResolved_Summary(t *testing.T) {
	r := Resolved{Title: "Song", PageURL: "https://www.youtube.com/watch?v=abc"}
	assert.Equal(t, "Song - https://www.youtube.com/watch?v=abc", r.Summary())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, "0:00:00"},
		{210 * time.Second, "0:03:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{-time.Second, "0:00:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.in))
	}
}
