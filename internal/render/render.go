// Package render draws the poll state as a terminal card.
package render

import (
	"fmt"
	"github.com/charmbracelet/lipgloss"
	"github.com/mousybusiness/nowplaying/internal/lyrics"
	"github.com/mousybusiness/nowplaying/internal/nowplaying"
	"github.com/mousybusiness/nowplaying/pkg/poll"
	"math"
	"strings"
)

const barWidth = 30

var (
	green = lipgloss.Color("#1DB954")
	red   = lipgloss.Color("#E22134")

	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(green).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(red)
	barStyle    = lipgloss.NewStyle().Foreground(green)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(green)
)

// View is everything shown for one published snapshot.
type View struct {
	Snapshot poll.Snapshot[*nowplaying.CurrentlyPlaying]
	Lyrics   *lyrics.Song

	// LyricsOffset is how far the lyrics page should be scrolled, in pixels.
	LyricsOffset float64
}

func Render(v View) string {
	lines := []string{headerStyle.Render("Spotify Now Playing")}

	if v.Snapshot.Err != nil {
		lines = append(lines, errorStyle.Render(v.Snapshot.Err.Error()))
	}

	cp := v.Snapshot.Data
	if cp == nil || cp.Item == nil {
		if v.Snapshot.HasData {
			lines = append(lines, dimStyle.Render("Nothing playing right now."))
		}
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	item := cp.Item
	lines = append(lines,
		titleStyle.Render(item.Name),
		item.ArtistNames(),
		dimStyle.Render(item.Album.Name),
		"",
		barStyle.Render(Bar(cp.ProgressFraction(), barWidth)),
		dimStyle.Render(fmt.Sprintf("%ds / %ds", cp.ProgressMs/1000, cp.Duration().Milliseconds()/1000)),
		"",
		dimStyle.Render(fmt.Sprintf("Explicit: %v  Popularity: %d  Track ID: %v", yesNo(item.Explicit), item.Popularity, item.ID)),
	)

	if cover := item.CoverURL(); cover != "" {
		lines = append(lines, dimStyle.Render("Cover: "+cover))
	}

	if v.Lyrics != nil {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("Lyrics: %v (scroll %.0fpx)", v.Lyrics.EmbedURL, v.LyricsOffset)))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Bar draws fraction (clamped to [0, 1]) of width cells as filled.
func Bar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = math.Max(0, math.Min(1, fraction))
	filled := int(math.Round(fraction * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
