package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tlagarde/chorus/internal/backend"
	"github.com/tlagarde/chorus/internal/backend/mpv"
	"github.com/tlagarde/chorus/internal/backend/spotify"
	"github.com/tlagarde/chorus/internal/backend/youtube"
	"github.com/tlagarde/chorus/internal/config"
	"github.com/tlagarde/chorus/internal/errmsg"
	"github.com/tlagarde/chorus/internal/logging"
	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/mpris"
	"github.com/tlagarde/chorus/internal/notify"
	"github.com/tlagarde/chorus/internal/playback"
	"github.com/tlagarde/chorus/internal/queue"
	"github.com/tlagarde/chorus/internal/scrobble"
	"github.com/tlagarde/chorus/internal/sources"
	"github.com/tlagarde/chorus/internal/state"
	"github.com/tlagarde/chorus/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpInitialize, err))
	}

	if closer, err := logging.Setup(cfg.Log.Level); err == nil {
		defer closer.Close()
	} else {
		fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
	}

	stateMgr, err := state.Open()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpInitialize, err))
	}
	defer stateMgr.Close()

	saved, err := stateMgr.Get()
	if err != nil {
		slog.Warn(errmsg.Format(errmsg.OpStateLoad, err))
		saved = &state.PlayerState{CurrentIndex: -1, Volume: 100}
	}

	q := queue.New(shuffleRng(cfg.ShuffleSeed))
	q.Append(saved.Tracks...)
	q.JumpTo(saved.CurrentIndex)
	q.SetRepeat(saved.Repeat)
	q.SetShuffle(saved.Shuffle)

	session := playback.New(newRegistry(cfg), q, saved.Volume)
	defer session.Close()

	if mprisAdapter, err := mpris.New(session); err == nil {
		defer mprisAdapter.Close()
	} else {
		slog.Warn("mpris disabled", "error", err)
	}

	if notifier, err := notify.New(); err == nil {
		watcher := notify.Watch(notifier, session)
		defer watcher.Close()
	}

	if cfg.HasLastfm() {
		client := scrobble.NewClient(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		if cfg.Lastfm.SessionKey != "" {
			client.SetSessionKey(cfg.Lastfm.SessionKey)
		}
		if client.IsAuthenticated() {
			svc := scrobble.New(client, session)
			defer svc.Close()
		} else {
			slog.Warn("lastfm configured without session_key, scrobbling disabled")
		}
	}

	go persistLoop(session, stateMgr)

	if q.IsEmpty() {
		go discoverTracks(cfg, session)
	}

	p := tea.NewProgram(ui.New(session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}

	// Final save; Close flushes the debounce.
	stateMgr.Save(playerState(session.Snapshot()))
	return nil
}

func shuffleRng(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // shuffle order, not crypto
}

func newRegistry(cfg *config.Config) *backend.Registry {
	mpvOpts := mpv.Options{Path: cfg.Mpv.Path, ExtraArgs: cfg.Mpv.ExtraArgs}

	reg := backend.NewRegistry()
	reg.Register(media.SourceLocal, func() (backend.Adapter, error) {
		return mpv.NewWithOptions(media.SourceLocal, mpvOpts)
	})
	reg.Register(media.SourceYouTube, func() (backend.Adapter, error) {
		return youtube.NewWithOptions(mpvOpts)
	})
	if cfg.HasSpotify() {
		reg.Register(media.SourceSpotify, func() (backend.Adapter, error) {
			tokens := spotify.StaticToken(cfg.Spotify.AccessToken)
			return spotify.New(tokens, cfg.Spotify.DeviceID, cfg.Spotify.Market), nil
		})
	}
	return reg
}

// persistLoop saves queue, modes and volume whenever they change. The
// manager debounces writes, so bursts cost one transaction.
func persistLoop(session *playback.Session, mgr *state.Manager) {
	sub := session.Subscribe()
	for {
		save := false
		select {
		case <-sub.Done:
			return
		case <-sub.QueueChanged:
			save = true
		case <-sub.ModeChanged:
			save = true
		case <-sub.VolumeChanged:
			save = true
		case <-sub.TrackChanged:
			save = true
		case <-sub.StateChanged:
		case <-sub.PositionChanged:
		case <-sub.Error:
		}
		if save {
			mgr.Save(playerState(session.Snapshot()))
		}
	}
}

func playerState(snap playback.Snapshot) state.PlayerState {
	return state.PlayerState{
		CurrentIndex: snap.Index,
		Repeat:       snap.Repeat,
		Shuffle:      snap.Shuffle,
		Volume:       snap.Volume,
		Tracks:       snap.Tracks,
	}
}

// discoverTracks fills an empty queue from the configured music folder
// and YouTube playlists. Runs off the UI thread; failures are logged,
// never fatal.
func discoverTracks(cfg *config.Config, session *playback.Session) {
	ctx := context.Background()
	var tracks []media.Track

	if cfg.MusicFolder != "" {
		scanned, err := sources.ScanFolder(ctx, cfg.MusicFolder)
		if err != nil {
			slog.Warn(errmsg.FormatWith(errmsg.OpFolderScan, cfg.MusicFolder, err))
		}
		tracks = append(tracks, scanned...)
	}

	for _, playlist := range cfg.YouTube.Playlists {
		items, err := sources.YouTubePlaylist(ctx, playlist)
		if err != nil {
			slog.Warn(errmsg.FormatWith(errmsg.OpPlaylistLoad, playlist, err))
			continue
		}
		tracks = append(tracks, items...)
	}

	if len(tracks) > 0 {
		slog.Info("queue filled from configured sources", "tracks", len(tracks))
		session.Enqueue(tracks...)
	}
}
