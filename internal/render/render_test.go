package render

import (
	"testing"
	"unicode/utf8"

	"github.com/mousybusiness/nowplaying/internal/lyrics"
	"github.com/mousybusiness/nowplaying/internal/nowplaying"
	"github.com/mousybusiness/nowplaying/pkg/poll"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestBar(t *testing.T) {
	tests := []struct {
		fraction float64
		want     string
	}{
		{fraction: 0, want: "░░░░"},
		{fraction: 0.5, want: "██░░"},
		{fraction: 1, want: "████"},
		{fraction: 3, want: "████"},
		{fraction: -1, want: "░░░░"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Bar(tt.fraction, 4))
	}
	assert.Empty(t, Bar(0.5, 0))
	assert.Equal(t, 10, utf8.RuneCountInString(Bar(0.33, 10)))
}

func TestRenderTrack(t *testing.T) {
	out := Render(View{
		Snapshot: poll.Snapshot[*nowplaying.CurrentlyPlaying]{
			HasData: true,
			Data: &nowplaying.CurrentlyPlaying{
				ProgressMs: 45000,
				Item: &nowplaying.Track{
					ID:         "4uLU6hMCjMI75M1A2tKUQC",
					Name:       "Never Gonna Give You Up",
					DurationMs: 213000,
					Popularity: 77,
					Album:      nowplaying.Album{Name: "Whenever You Need Somebody", Images: []nowplaying.Image{{URL: "https://i.scdn.co/image/640"}, {URL: "https://i.scdn.co/image/64"}}},
					Artists:    []nowplaying.Artist{{Name: "Rick Astley"}},
				},
			},
		},
		Lyrics:       &lyrics.Song{EmbedURL: "https://genius.com/songs/84851/embed"},
		LyricsOffset: 528.17,
	})

	assert.Contains(t, out, "Never Gonna Give You Up")
	assert.Contains(t, out, "Rick Astley")
	assert.Contains(t, out, "Whenever You Need Somebody")
	assert.Contains(t, out, "45s / 213s")
	assert.Contains(t, out, "Popularity: 77")
	assert.Contains(t, out, "Cover: https://i.scdn.co/image/640")
	assert.Contains(t, out, "https://genius.com/songs/84851/embed (scroll 528px)")
}

func TestRenderKeepsDataNextToError(t *testing.T) {
	out := Render(View{
		Snapshot: poll.Snapshot[*nowplaying.CurrentlyPlaying]{
			HasData: true,
			Err:     errors.New("net error"),
			Data: &nowplaying.CurrentlyPlaying{
				Item: &nowplaying.Track{Name: "Still Here", DurationMs: 1000},
			},
		},
	})

	assert.Contains(t, out, "net error")
	assert.Contains(t, out, "Still Here")
	assert.NotContains(t, out, "Cover:")
}

func TestRenderNothingPlaying(t *testing.T) {
	out := Render(View{Snapshot: poll.Snapshot[*nowplaying.CurrentlyPlaying]{HasData: true}})
	assert.Contains(t, out, "Nothing playing")

	out = Render(View{})
	assert.NotContains(t, out, "Nothing playing")
}
