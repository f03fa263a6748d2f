package playback

import (
	"time"

	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/queue"
)

// StateChange is emitted when the session state changes. Two identical
// consecutive states never produce an event, so idempotent commands
// (Pause while Paused) are silent.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when playback moves to a different track:
// on Play, on Next/Previous, and when a track finishes and the queue
// advances automatically. Consumers handle track side effects
// (now-playing notifications, scrobbling, metadata refresh) here.
type TrackChange struct {
	Previous      *media.Track
	Current       *media.Track
	PreviousIndex int
	Index         int
}

// PositionChange carries a position sample. High-frequency; slow
// subscribers see coalesced samples, never reordered ones.
type PositionChange struct {
	Position time.Duration
}

// VolumeChange is emitted when the session volume changes.
type VolumeChange struct {
	Volume int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	Repeat  queue.RepeatMode
	Shuffle bool
}

// QueueChange is emitted when the queue contents or current index change.
type QueueChange struct {
	Tracks []media.Track
	Index  int
}

// ErrorEvent is emitted when a backend failure is surfaced. Err is a
// classified *backend.Error; facts only, the session has already
// decided what to do about it.
type ErrorEvent struct {
	Op    string // e.g. "play", "seek"
	Track *media.Track
	Err   error
}
