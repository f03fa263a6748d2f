package scrobble

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/playback"
)

const (
	// Last.fm rules: a play counts once half the track or four
	// minutes have been heard, and never under thirty seconds.
	minScrobbleLength = 30 * time.Second
	scrobbleCap       = 4 * time.Minute
)

// Submitter is the slice of the Last.fm client the service needs.
type Submitter interface {
	UpdateNowPlaying(artist, title string, duration time.Duration) error
	Scrobble(artist, title string, duration time.Duration, started time.Time) error
}

// Service watches a playback session and reports plays. Submissions
// happen off the event loop; a slow or failing Last.fm never touches
// playback.
type Service struct {
	client Submitter
	sub    *playback.Subscription

	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run goroutine.
	current  *media.Track
	started  time.Time
	progress time.Duration
}

// New starts a scrobble service on the session's event stream.
func New(client Submitter, session *playback.Session) *Service {
	s := &Service{
		client: client,
		sub:    session.Subscribe(),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Close stops watching. A track in progress is still submitted if it
// qualifies.
func (s *Service) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *Service) run() {
	for {
		select {
		case <-s.done:
			s.endTrack()
			return
		case <-s.sub.Done:
			s.endTrack()
			return
		case tc := <-s.sub.TrackChanged:
			s.endTrack()
			s.beginTrack(tc.Current)
		case pc := <-s.sub.PositionChanged:
			s.progress = pc.Position
		case sc := <-s.sub.StateChanged:
			if sc.Current == playback.StateStopped || sc.Current == playback.StateError {
				s.endTrack()
			}
		case <-s.sub.VolumeChanged:
		case <-s.sub.QueueChanged:
		case <-s.sub.ModeChanged:
		case <-s.sub.Error:
		}
	}
}

func (s *Service) beginTrack(t *media.Track) {
	if t == nil {
		return
	}
	track := *t
	s.current = &track
	s.started = time.Now()
	s.progress = 0

	go func() {
		if err := s.client.UpdateNowPlaying(track.Artist, track.Title, track.Duration); err != nil {
			slog.Debug("now playing update failed", "track", track.Display(), "error", err)
		}
	}()
}

func (s *Service) endTrack() {
	t := s.current
	if t == nil {
		return
	}
	s.current = nil
	if !qualifies(s.progress, t.Duration) {
		return
	}
	track := *t
	started := s.started
	go func() {
		if err := s.client.Scrobble(track.Artist, track.Title, track.Duration, started); err != nil {
			slog.Warn("scrobble failed", "track", track.Display(), "error", err)
		}
	}()
}

// qualifies applies the half-or-four-minutes rule. With an unknown
// duration only the four-minute cap can qualify a play.
func qualifies(heard, duration time.Duration) bool {
	if heard < minScrobbleLength {
		return false
	}
	if heard >= scrobbleCap {
		return true
	}
	return duration > 0 && heard >= duration/2
}
