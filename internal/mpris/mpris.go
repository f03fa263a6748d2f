//go:build linux

// Package mpris exposes the playback session on the desktop's media
// controls over D-Bus. Failure to claim the bus degrades to a no-op:
// playback works fine without media keys.
package mpris

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/playback"
	"github.com/tlagarde/chorus/internal/queue"
)

// Adapter bridges a playback session to MPRIS.
type Adapter struct {
	session *playback.Session
	server  *server.Server
	events  *events.EventHandler
	sub     *playback.Subscription
	done    chan struct{}
}

// New starts the MPRIS server for the session. The returned adapter
// keeps the desktop's view current until Close.
func New(session *playback.Session) (*Adapter, error) {
	a := &Adapter{
		session: session,
		done:    make(chan struct{}),
	}
	a.server = server.NewServer("chorus", &rootAdapter{}, &playerAdapter{session: session})
	a.events = events.NewEventHandler(a.server)
	a.sub = session.Subscribe()

	go func() {
		if err := a.server.Listen(); err != nil {
			slog.Warn("mpris unavailable", "error", err)
		}
	}()
	go a.relay()

	return a, nil
}

// Close stops the adapter and releases the bus name.
func (a *Adapter) Close() error {
	close(a.done)
	return a.server.Stop()
}

// relay turns session events into MPRIS property-change signals, so
// desktop widgets update without polling.
func (a *Adapter) relay() {
	for {
		select {
		case <-a.done:
			return
		case <-a.sub.Done:
			return
		case <-a.sub.StateChanged:
			a.signal(a.events.Player.OnPlayPause)
		case <-a.sub.TrackChanged:
			a.signal(a.events.Player.OnTitle)
		case <-a.sub.VolumeChanged:
			a.signal(a.events.Player.OnVolume)
		case <-a.sub.ModeChanged:
			a.signal(a.events.Player.OnOptions)
		case <-a.sub.QueueChanged:
			a.signal(a.events.Player.OnOptions)
		case <-a.sub.PositionChanged:
			// Steady progress is not signalled; clients read Position.
		case <-a.sub.Error:
		}
	}
}

func (a *Adapter) signal(fn func() error) {
	if err := fn(); err != nil {
		slog.Debug("mpris signal", "error", err)
	}
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }
func (r *rootAdapter) Quit() error  { return nil }

func (r *rootAdapter) CanQuit() (bool, error)      { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }
func (r *rootAdapter) Identity() (string, error)   { return "Chorus", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "spotify", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/mp4"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// loop-status and shuffle extensions.
type playerAdapter struct {
	session *playback.Session
}

func (p *playerAdapter) Next() error {
	p.session.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.session.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	p.session.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.session.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.session.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	snap := p.session.Snapshot()
	switch {
	case snap.State == playback.StatePaused:
		p.session.Resume()
	case snap.State == playback.StateStopped && len(snap.Tracks) > 0:
		idx := snap.Index
		if idx < 0 {
			idx = 0
		}
		p.session.PlayIndex(idx)
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	p.session.SeekBy(time.Duration(offset) * time.Microsecond)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.session.Seek(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.session.State() {
	case playback.StatePlaying, playback.StateLoading:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error)        { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error       { return nil }
func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.session.CurrentTrack()
	if track == nil {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track)),
		Length:  types.Microseconds(track.Duration.Microseconds()),
		Title:   track.Title,
		Artist:  []string{track.Artist},
	}
	if track.Source == media.SourceLocal {
		if artPath := FindAlbumArt(track.Locator); artPath != "" {
			meta.ArtUrl = "file://" + artPath
		}
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return float64(p.session.Volume()) / 100.0, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	p.session.SetVolume(int(v * 100))
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.session.PositionNow().Microseconds(), nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.session.Snapshot().HasNext, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.session.Snapshot().Index > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return len(p.session.Snapshot().Tracks) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error)   { return true, nil }
func (p *playerAdapter) CanSeek() (bool, error)    { return true, nil }
func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.session.Snapshot().Repeat {
	case queue.RepeatOne:
		return types.LoopStatusTrack, nil
	case queue.RepeatAll:
		return types.LoopStatusPlaylist, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.session.SetRepeat(queue.RepeatOff)
	case types.LoopStatusTrack:
		p.session.SetRepeat(queue.RepeatOne)
	case types.LoopStatusPlaylist:
		p.session.SetRepeat(queue.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.session.Snapshot().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.session.SetShuffle(shuffle)
	return nil
}

func formatTrackID(t *media.Track) string {
	h := fnv.New64a()
	h.Write([]byte(t.Source.String() + ":" + t.ID))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
