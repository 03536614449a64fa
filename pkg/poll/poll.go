// Package poll repeatedly fetches provider state with a credential that is
// kept fresh between ticks.
package poll

import (
	"context"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

// DefaultInterval is the pause between the end of one tick and the start of the next.
const DefaultInterval = time.Second * 3

type (
	// Credentials is what a tick needs from the auth flow.
	Credentials interface {
		IsLoggedIn(ctx context.Context) (bool, error)
		IsAccessTokenExpiringSoon(ctx context.Context) (bool, error)
		Refresh(ctx context.Context) (string, error)
		AccessToken(ctx context.Context) (string, error)
	}

	// FetchFunc performs one resource request with the given access token.
	FetchFunc[T any] func(ctx context.Context, accessToken string) (T, error)

	// Snapshot is what the loop has published so far. Data survives failed
	// ticks so a display can keep showing the last good result next to Err.
	Snapshot[T any] struct {
		Data      T
		HasData   bool
		Err       error
		Ticks     uint64
		UpdatedAt time.Time
	}

	Config[T any] struct {
		Credentials Credentials
		Fetch       FetchFunc[T]

		// Interval between ticks
		// default 3s
		Interval time.Duration

		// OnUpdate receives every published snapshot. It runs on the loop
		// goroutine with the loop locked and must not call Stop or Snapshot.
		OnUpdate func(Snapshot[T])
	}

	// Loop is a cancellable repeating task. Ticks never overlap.
	Loop[T any] struct {
		config Config[T]

		// mu guards alive and snap, and is held while OnUpdate runs
		mu    sync.Mutex
		alive bool
		snap  Snapshot[T]

		cancel context.CancelFunc
		done   chan struct{}
		start  sync.Once
	}
)

func New[T any](config Config[T]) (*Loop[T], error) {
	if config.Credentials == nil {
		return nil, errors.New("require Credentials")
	}

	if config.Fetch == nil {
		return nil, errors.New("require Fetch")
	}

	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	return &Loop[T]{
		config: config,
		done:   make(chan struct{}),
	}, nil
}

// Start runs the first tick immediately and keeps ticking until Stop is
// called, ctx is done, or the credentials report a logged out session.
// Only the first call has any effect, and none after Stop.
func (l *Loop[T]) Start(ctx context.Context) {
	l.start.Do(func() {
		ctx, cancel := context.WithCancel(ctx)

		l.mu.Lock()
		l.alive = true
		l.cancel = cancel
		l.mu.Unlock()

		go l.run(ctx)
	})
}

// Stop guarantees that no tick publishes after it returns. A request already
// in flight is cancelled through its context, its result is discarded.
// Stopping a loop that was never started makes a later Start a no-op.
func (l *Loop[T]) Stop() {
	// never started
	l.start.Do(func() { close(l.done) })

	l.mu.Lock()
	l.alive = false
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done is closed once the loop goroutine has exited.
func (l *Loop[T]) Done() <-chan struct{} {
	return l.done
}

// Snapshot returns the most recently published state.
func (l *Loop[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

func (l *Loop[T]) run(ctx context.Context) {
	defer close(l.done)
	defer l.Stop()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !l.isAlive() {
			return
		}

		ready, err := l.config.Credentials.IsLoggedIn(ctx)
		if err == nil && !ready {
			log.Debugf("poll loop stopping, not logged in")
			return
		}

		if err == nil {
			var data T
			data, err = l.tick(ctx)
			l.publish(ctx, data, err)
		} else {
			var zero T
			l.publish(ctx, zero, err)
		}

		if !l.isAlive() {
			return
		}
		timer.Reset(l.config.Interval)
	}
}

// tick refreshes an expiring credential, then fetches. A failed refresh
// fails the tick without fetching.
func (l *Loop[T]) tick(ctx context.Context) (T, error) {
	var zero T
	c := l.config.Credentials

	soon, err := c.IsAccessTokenExpiringSoon(ctx)
	if err != nil {
		return zero, err
	}

	if soon {
		if _, err := c.Refresh(ctx); err != nil {
			return zero, err
		}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return zero, err
	}

	return l.config.Fetch(ctx, token)
}

func (l *Loop[T]) publish(ctx context.Context, data T, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.alive || ctx.Err() != nil {
		return
	}

	if err != nil {
		l.snap.Err = err
		log.WithError(err).Debug("poll tick failed")
	} else {
		l.snap.Data = data
		l.snap.HasData = true
		l.snap.Err = nil
	}
	l.snap.Ticks++
	l.snap.UpdatedAt = time.Now()

	if l.config.OnUpdate != nil {
		l.config.OnUpdate(l.snap)
	}
}

func (l *Loop[T]) isAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive
}
