package main

import (
	"context"
	"fmt"
	"github.com/mousybusiness/nowplaying/internal/errs"
	"github.com/mousybusiness/nowplaying/internal/lyrics"
	"github.com/mousybusiness/nowplaying/internal/nowplaying"
	"github.com/mousybusiness/nowplaying/internal/render"
	"github.com/mousybusiness/nowplaying/pkg/poll"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// height of the lyrics page that can be scrolled, in pixels
const lyricsScrollable = 2500

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll and show the currently playing track (default)",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ok, err := a.flow.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Info("not logged in yet")
		if err := a.login(ctx); err != nil {
			return err
		}
	}

	var overlay *lyrics.Overlay
	if cfg.Genius.AccessToken != "" {
		overlay = lyrics.NewOverlay(lyrics.NewClient(cfg.Genius.AccessToken, cfg.Genius.APIURL, nil))
	}

	client := nowplaying.NewClient(cfg.Spotify.APIURL, nil)
	loop, err := poll.New(poll.Config[*nowplaying.CurrentlyPlaying]{
		Credentials: a.flow,
		Fetch:       client.CurrentlyPlaying,
		Interval:    poll.DefaultInterval,
		OnUpdate:    printer(ctx, cmd.OutOrStdout(), overlay),
	})
	if err != nil {
		return err
	}

	loop.Start(ctx)
	defer loop.Stop()

	select {
	case <-ctx.Done():
		log.Info("stopping")
	case <-loop.Done():
		log.Warn("logged out, stopped polling")
	}
	loop.Stop()
	<-loop.Done()

	if overlay != nil {
		overlay.Wait()
	}
	return nil
}

func printer(ctx context.Context, w io.Writer, overlay *lyrics.Overlay) func(poll.Snapshot[*nowplaying.CurrentlyPlaying]) {
	return func(snap poll.Snapshot[*nowplaying.CurrentlyPlaying]) {
		if snap.Err != nil {
			entry := log.WithError(snap.Err)
			if code, ok := errs.ExtractHttpError(snap.Err); ok {
				entry = entry.WithField("status", code)
			}
			entry.Warn("poll failed")
		}

		view := render.View{Snapshot: snap}
		if overlay != nil && snap.Data != nil && snap.Data.Item != nil {
			item := snap.Data.Item
			overlay.Update(ctx, item.Name, item.PrimaryArtist(), snap.Data.ProgressMs, item.DurationMs, lyricsScrollable)
			view.Lyrics, view.LyricsOffset = overlay.Current()
		}

		fmt.Fprintln(w, render.Render(view))
	}
}
