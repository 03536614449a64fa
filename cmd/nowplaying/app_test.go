package main

import (
	"bytes"
	"context"
	"github.com/alicebob/miniredis/v2"
	"github.com/mousybusiness/nowplaying/internal/config"
	"github.com/mousybusiness/nowplaying/internal/errs"
	"github.com/mousybusiness/nowplaying/internal/nowplaying"
	"github.com/mousybusiness/nowplaying/pkg/authn"
	"github.com/mousybusiness/nowplaying/pkg/creds"
	"github.com/mousybusiness/nowplaying/pkg/poll"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"path/filepath"
	"testing"
)

func TestNewKV(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		store config.StoreConfig
		check func(t *testing.T, kv creds.KV)
	}{
		{
			name:  "memory",
			store: config.StoreConfig{Backend: config.StoreMemory},
			check: func(t *testing.T, kv creds.KV) {
				assert.IsType(t, &creds.MemoryKV{}, kv)
			},
		},
		{
			name:  "file",
			store: config.StoreConfig{Backend: config.StoreFile, Path: filepath.Join(t.TempDir(), "creds.json")},
			check: func(t *testing.T, kv creds.KV) {
				assert.IsType(t, &creds.FileKV{}, kv)
			},
		},
		{
			name: "redis",
			store: config.StoreConfig{
				Backend: config.StoreRedis,
				Redis:   config.RedisConfig{Addr: mr.Addr(), Prefix: "np"},
			},
			check: func(t *testing.T, kv creds.KV) {
				assert.IsType(t, &creds.RedisKV{}, kv)
				assert.True(t, mr.Exists("np:sp_access_token"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, closeKV, err := newKV(tt.store)
			require.NoError(t, err)
			defer closeKV()

			require.NoError(t, kv.Set(ctx, "sp_access_token", "AT"))
			v, ok, err := kv.Get(ctx, "sp_access_token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "AT", v)

			tt.check(t, kv)
		})
	}
}

func TestNewApp(t *testing.T) {
	a, err := newApp(&config.Config{
		Spotify: config.SpotifyConfig{
			ClientID:       "client",
			DevRedirectURI: authn.DefaultDevRedirectURL,
			AppURL:         "http://localhost:5173/",
			Scopes:         "user-read-currently-playing",
		},
		Store: config.StoreConfig{Backend: config.StoreMemory},
	})
	require.NoError(t, err)
	defer a.close()

	assert.Equal(t, authn.DefaultDevRedirectURL, a.flow.RedirectURL())

	state, err := a.flow.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, authn.StateLoggedOut, state)
}

func TestNewAppRequiresAppURL(t *testing.T) {
	_, err := newApp(&config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}})
	assert.Error(t, err)
}

func TestPrinterWithoutLyrics(t *testing.T) {
	var buf bytes.Buffer
	show := printer(context.Background(), &buf, nil)

	show(poll.Snapshot[*nowplaying.CurrentlyPlaying]{
		HasData: true,
		Data: &nowplaying.CurrentlyPlaying{
			Item: &nowplaying.Track{Name: "Roygbiv", DurationMs: 151000, Artists: []nowplaying.Artist{{Name: "Boards of Canada"}}},
		},
	})
	assert.Contains(t, buf.String(), "Roygbiv")

	buf.Reset()
	show(poll.Snapshot[*nowplaying.CurrentlyPlaying]{Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "boom")
}

func TestPrinterLogsProviderStatus(t *testing.T) {
	hook := test.NewGlobal()
	t.Cleanup(hook.Reset)

	show := printer(context.Background(), io.Discard, nil)
	show(poll.Snapshot[*nowplaying.CurrentlyPlaying]{
		Err: &nowplaying.FetchError{HttpError: errs.NewHttpError(http.StatusUnauthorized, []byte(`{"error":"invalid_token"}`), "fetch failed")},
	})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "poll failed", entry.Message)
	assert.Equal(t, http.StatusUnauthorized, entry.Data["status"])

	hook.Reset()
	show(poll.Snapshot[*nowplaying.CurrentlyPlaying]{Err: errors.New("dial tcp: refused")})
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.NotContains(t, entry.Data, "status")
}
