// Package lyrics finds a Genius lyrics page for the playing track and maps
// playback progress to a scroll offset. Nothing here may affect the
// credential or polling core: failures are logged and otherwise dropped.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/mousybusiness/nowplaying/internal/errs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	DefaultAPIURL = "https://api.genius.com"

	embedURLFormat = "https://genius.com/songs/%d/embed"
)

var ErrNotFound = errors.New("lyrics not found")

type (
	searchResponse struct {
		Response struct {
			Hits []struct {
				Result struct {
					ID    int64  `json:"id"`
					Title string `json:"title"`
					URL   string `json:"url"`
				} `json:"result"`
			} `json:"hits"`
		} `json:"response"`
	}

	// Song is the first search hit for a track.
	Song struct {
		ID       int64
		Title    string
		URL      string
		EmbedURL string
	}

	Client struct {
		token   string
		baseURL string
		http    *http.Client
	}
)

func NewClient(token, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Search looks up "<track> <artist>" and returns the best hit.
func (c *Client) Search(ctx context.Context, track, artist string) (Song, error) {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(track+" "+artist))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Song{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return Song{}, errors.Wrap(err, "lyrics search failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Song{}, err
	}

	if res.StatusCode != http.StatusOK {
		return Song{}, errs.NewHttpError(res.StatusCode, body, "error response from lyrics search")
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Song{}, errors.Wrap(err, "failed to decode lyrics search")
	}

	if len(sr.Response.Hits) == 0 {
		return Song{}, ErrNotFound
	}

	hit := sr.Response.Hits[0].Result
	return Song{
		ID:       hit.ID,
		Title:    hit.Title,
		URL:      hit.URL,
		EmbedURL: fmt.Sprintf(embedURLFormat, hit.ID),
	}, nil
}

// ScrollOffset maps playback progress onto a scrollable extent.
func ScrollOffset(progressMs, durationMs int64, scrollable float64) float64 {
	if durationMs <= 0 || scrollable <= 0 {
		return 0
	}

	f := float64(progressMs) / float64(durationMs)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f * scrollable
}

// Overlay tracks the lyrics page for whatever is playing.
type Overlay struct {
	client *Client

	mu     sync.Mutex
	key    string
	song   *Song
	offset float64
	wg     sync.WaitGroup
}

func NewOverlay(client *Client) *Overlay {
	return &Overlay{client: client}
}

// Update records the playback position and starts a lookup in the
// background when the track changed. It never blocks on the network.
func (o *Overlay) Update(ctx context.Context, track, artist string, progressMs, durationMs int64, scrollable float64) {
	if track == "" || artist == "" {
		return
	}

	key := track + "\x00" + artist

	o.mu.Lock()
	o.offset = ScrollOffset(progressMs, durationMs, scrollable)
	changed := key != o.key
	if changed {
		o.key = key
		o.song = nil
	}
	o.mu.Unlock()

	if !changed {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		song, err := o.client.Search(ctx, track, artist)
		if err != nil {
			log.WithError(err).WithField("track", track).Warn("lyrics lookup failed")
			return
		}

		o.mu.Lock()
		defer o.mu.Unlock()
		// a newer track may have started while we were searching
		if o.key == key {
			o.song = &song
		}
	}()
}

// Current returns the song found for the current track, if any, and the scroll offset.
func (o *Overlay) Current() (*Song, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.song, o.offset
}

// Wait blocks until background lookups have finished.
func (o *Overlay) Wait() {
	o.wg.Wait()
}
