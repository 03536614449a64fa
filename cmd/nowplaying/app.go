package main

import (
	"context"
	"github.com/mousybusiness/nowplaying/internal/callback"
	"github.com/mousybusiness/nowplaying/internal/config"
	"github.com/mousybusiness/nowplaying/pkg/authn"
	"github.com/mousybusiness/nowplaying/pkg/creds"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"time"
)

type app struct {
	config *config.Config
	store  *creds.Store
	nav    *callback.Server
	flow   *authn.Flow
	close  func() error
}

func newApp(c *config.Config) (*app, error) {
	kv, closeKV, err := newKV(c.Store)
	if err != nil {
		return nil, err
	}

	nav, err := callback.New(callback.Config{
		AppURL:      c.Spotify.AppURL,
		OpenBrowser: c.Spotify.OpenBrowser,
	})
	if err != nil {
		_ = closeKV()
		return nil, err
	}

	store := creds.NewStore(kv)
	flow, err := authn.New(authn.Config{
		ClientID:       c.Spotify.ClientID,
		RedirectURL:    c.Spotify.RedirectURI,
		DevRedirectURL: c.Spotify.DevRedirectURI,
		Scopes:         c.Spotify.ScopeList(),
		AuthorizeURL:   c.Spotify.AuthorizeURL,
		TokenURL:       c.Spotify.TokenURL,
	}, store, nav)
	if err != nil {
		_ = closeKV()
		return nil, err
	}

	return &app{
		config: c,
		store:  store,
		nav:    nav,
		flow:   flow,
		close:  closeKV,
	}, nil
}

func newKV(c config.StoreConfig) (creds.KV, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case config.StoreMemory:
		log.Warn("using in-memory credential store, login will not survive a restart")
		return creds.NewMemoryKV(), noop, nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		return creds.NewRedisKV(rdb, c.Redis.Prefix), rdb.Close, nil
	default:
		kv, err := creds.NewFileKV(c.Path)
		return kv, noop, err
	}
}

// login sends the user to the provider and waits for the callback to be exchanged.
func (a *app) login(ctx context.Context) error {
	if err := a.nav.Listen(a.flow.RedirectURL(), a.flow); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := a.nav.Shutdown(shutdownCtx); err != nil {
			log.Error(errors.Wrap(err, "error while shutting down callback server"))
		}
	}()

	if err := a.flow.Login(ctx); err != nil {
		return err
	}

	log.Info("waiting for the login to complete in the browser...")
	return a.nav.Wait(ctx)
}
