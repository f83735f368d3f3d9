package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildbox/internal/domain/track"
)

func TestLimited_DelegatesWithinBurst(t *testing.T) {
	next := &fakeResolver{name: "yt", result: track.Resolved{Title: "Song"}}
	l := NewLimited(next, 1, 2)

	for i := 0; i < 2; i++ {
		got, err := l.Resolve(context.Background(), track.Search{Query: "q"})
		require.NoError(t, err)
		assert.Equal(t, "Song", got.Title)
	}
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, "yt", l.Name())
}

func TestLimited_WaitHonorsContext(t *testing.T) {
	next := &fakeResolver{name: "yt", result: track.Resolved{Title: "Song"}}
	l := NewLimited(next, 0.001, 1)

	_, err := l.Resolve(context.Background(), track.Search{Query: "q"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Resolve(ctx, track.Search{Query: "q"})
	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)
}
