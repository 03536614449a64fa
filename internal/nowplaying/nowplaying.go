// Package nowplaying reads the user's current playback from the Spotify Web API.
package nowplaying

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/mousybusiness/nowplaying/internal/errs"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIURL = "https://api.spotify.com"

	currentlyPlayingPath = "/v1/me/player/currently-playing"
)

type (
	Image struct {
		URL    string `json:"url"`
		Height int    `json:"height"`
		Width  int    `json:"width"`
	}

	Album struct {
		Name   string  `json:"name"`
		Images []Image `json:"images"`
	}

	Artist struct {
		Name string `json:"name"`
	}

	Track struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		DurationMs int64    `json:"duration_ms"`
		Explicit   bool     `json:"explicit"`
		Popularity int      `json:"popularity"`
		Album      Album    `json:"album"`
		Artists    []Artist `json:"artists"`
	}

	// CurrentlyPlaying is the subset of the playback state the client renders.
	CurrentlyPlaying struct {
		IsPlaying  bool   `json:"is_playing"`
		ProgressMs int64  `json:"progress_ms"`
		Item       *Track `json:"item"`
	}

	// FetchError is a non-2xx response from the currently playing endpoint.
	FetchError struct {
		errs.HttpError
	}

	Client struct {
		baseURL string
		http    *http.Client
	}
)

func (e *FetchError) Error() string {
	return fmt.Sprintf("currently playing failed: %d %s", e.Code(), e.Body())
}

// NewClient talks to baseURL, DefaultAPIURL when empty. A nil httpClient
// means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// CurrentlyPlaying returns nil without error when nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*CurrentlyPlaying, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+currentlyPlayingPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "currently playing request failed")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read currently playing response")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &FetchError{errs.NewHttpError(res.StatusCode, body, "error response from currently playing")}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var cp CurrentlyPlaying
	if err := json.Unmarshal(body, &cp); err != nil {
		return nil, errors.Wrap(err, "failed to decode currently playing response")
	}

	return &cp, nil
}

// ArtistNames joins all artist names with ", ".
func (t *Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// PrimaryArtist is the first credited artist, empty if there is none.
func (t *Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// CoverURL is the largest album image, which Spotify lists first.
func (t *Track) CoverURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

// Duration of the item, treating a missing duration as 1ms so fractions stay finite.
func (c *CurrentlyPlaying) Duration() time.Duration {
	if c.Item == nil || c.Item.DurationMs <= 0 {
		return time.Millisecond
	}
	return time.Duration(c.Item.DurationMs) * time.Millisecond
}

func (c *CurrentlyPlaying) Progress() time.Duration {
	return time.Duration(c.ProgressMs) * time.Millisecond
}

// ProgressFraction is progress over duration, clamped to [0, 1].
func (c *CurrentlyPlaying) ProgressFraction() float64 {
	f := float64(c.Progress()) / float64(c.Duration())
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
