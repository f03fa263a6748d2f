package notify

import (
	"log/slog"
	"sync"

	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/mpris"
	"github.com/tlagarde/chorus/internal/playback"
)

const notificationTimeout = 4000 // ms

// Watcher sends a desktop notification on every track change,
// replacing the previous one so skipping does not stack popups.
type Watcher struct {
	notifier Notifier
	sub      *playback.Subscription

	done      chan struct{}
	closeOnce sync.Once

	lastID uint32 // loop-owned
}

// Watch subscribes to the session and notifies on track changes.
func Watch(notifier Notifier, session *playback.Session) *Watcher {
	w := &Watcher{
		notifier: notifier,
		sub:      session.Subscribe(),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.sub.Done:
			return
		case tc := <-w.sub.TrackChanged:
			if tc.Current != nil {
				w.announce(*tc.Current)
			}
		// Drain the channels this watcher does not care about.
		case <-w.sub.StateChanged:
		case <-w.sub.PositionChanged:
		case <-w.sub.VolumeChanged:
		case <-w.sub.QueueChanged:
		case <-w.sub.ModeChanged:
		case <-w.sub.Error:
		}
	}
}

func (w *Watcher) announce(t media.Track) {
	n := Notification{
		Title:      t.Title,
		Body:       t.Artist,
		Timeout:    notificationTimeout,
		ReplacesID: w.lastID,
		Urgency:    UrgencyLow,
	}
	if n.Title == "" {
		n.Title = t.Locator
	}
	if t.Source == media.SourceLocal {
		n.Icon = mpris.FindAlbumArt(t.Locator)
	}

	id, err := w.notifier.Notify(n)
	if err != nil {
		slog.Debug("desktop notification failed", "error", err)
		return
	}
	if id > 0 {
		w.lastID = id
	}
}
