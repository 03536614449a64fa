package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genius(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer G1", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

const hit = `{"response":{"hits":[{"result":{"id":84851,"title":"Never Gonna Give You Up","url":"https://genius.com/Rick-astley-never-gonna-give-you-up-lyrics"}}]}}`

func TestSearch(t *testing.T) {
	queries := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query().Get("q")
		_, _ = w.Write([]byte(hit))
	}))
	defer ts.Close()

	song, err := NewClient("G1", ts.URL, nil).Search(context.Background(), "Never Gonna Give You Up", "Rick Astley")
	require.NoError(t, err)

	assert.Equal(t, "Never Gonna Give You Up Rick Astley", <-queries)
	assert.Equal(t, int64(84851), song.ID)
	assert.Equal(t, "https://genius.com/songs/84851/embed", song.EmbedURL)
}

func TestSearchNoHits(t *testing.T) {
	ts, _ := genius(t, http.StatusOK, `{"response":{"hits":[]}}`)

	_, err := NewClient("G1", ts.URL, nil).Search(context.Background(), "x", "y")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSearchHttpError(t *testing.T) {
	ts, _ := genius(t, http.StatusUnauthorized, `{"error":"invalid_token"}`)

	_, err := NewClient("G1", ts.URL, nil).Search(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_token")
}

func TestScrollOffset(t *testing.T) {
	tests := []struct {
		name       string
		progress   int64
		duration   int64
		scrollable float64
		want       float64
	}{
		{name: "start", progress: 0, duration: 1000, scrollable: 2500, want: 0},
		{name: "middle", progress: 500, duration: 1000, scrollable: 2500, want: 1250},
		{name: "end", progress: 1000, duration: 1000, scrollable: 2500, want: 2500},
		{name: "past end", progress: 2000, duration: 1000, scrollable: 2500, want: 2500},
		{name: "no duration", progress: 10, duration: 0, scrollable: 2500, want: 0},
		{name: "nothing to scroll", progress: 10, duration: 100, scrollable: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScrollOffset(tt.progress, tt.duration, tt.scrollable), 1e-9)
		})
	}
}

func TestOverlayLooksUpOncePerTrack(t *testing.T) {
	ts, calls := genius(t, http.StatusOK, hit)
	o := NewOverlay(NewClient("G1", ts.URL, nil))
	ctx := context.Background()

	o.Update(ctx, "Never Gonna Give You Up", "Rick Astley", 1000, 4000, 100)
	o.Wait()
	o.Update(ctx, "Never Gonna Give You Up", "Rick Astley", 2000, 4000, 100)
	o.Wait()

	song, offset := o.Current()
	require.NotNil(t, song)
	assert.Equal(t, int64(84851), song.ID)
	assert.InDelta(t, 50.0, offset, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOverlaySwallowsFailures(t *testing.T) {
	ts, _ := genius(t, http.StatusInternalServerError, "boom")
	o := NewOverlay(NewClient("G1", ts.URL, nil))

	o.Update(context.Background(), "Song", "Artist", 0, 1000, 100)
	o.Wait()

	song, _ := o.Current()
	assert.Nil(t, song)
}

func TestOverlayIgnoresIncompleteTrack(t *testing.T) {
	ts, calls := genius(t, http.StatusOK, hit)
	o := NewOverlay(NewClient("G1", ts.URL, nil))

	o.Update(context.Background(), "Song", "", 0, 1000, 100)
	o.Wait()

	assert.Zero(t, atomic.LoadInt32(calls))
}
