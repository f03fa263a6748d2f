// Package backend defines the contract every playback source implements
// and the normalized event stream adapters feed back to the session.
// Concrete adapters live in subpackages; none of them knows about any
// other, and the session drives exactly one at a time.
package backend

import (
	"context"
	"time"

	"github.com/tlagarde/chorus/internal/media"
)

// Adapter translates generic playback commands into source-specific
// calls. Load is the only call with backend-dependent latency (remote
// lookup, process spawn) and must honor context cancellation; every
// other method returns promptly. Methods fail with a *Error, never by
// panicking.
//
// The event channel is live for the lifetime of the adapter and closed
// by Close; an adapter is never restartable, a fresh instance is
// required after teardown.
type Adapter interface {
	// Source identifies the playback source this adapter serves.
	Source() media.Source

	// Load prepares the given track and starts playback. The adapter
	// emits EventStarted once the backend confirms playback began.
	Load(ctx context.Context, t media.Track) error

	Pause() error
	Resume() error
	Stop() error

	// Seek moves to an absolute position in the current track.
	Seek(ctx context.Context, pos time.Duration) error

	// SetVolume applies a volume in percent (0-100).
	SetVolume(percent int) error

	// Position returns the backend's playback position.
	Position() time.Duration

	// Events returns the adapter's normalized event stream.
	Events() <-chan Event

	// Close tears the adapter down and closes the event channel.
	Close() error
}

// EventKind discriminates adapter events.
type EventKind int

const (
	// EventStarted means the backend confirmed playback of the loaded
	// track has begun.
	EventStarted EventKind = iota
	// EventPaused and EventResumed reflect transport changes that
	// originated inside the backend (e.g. another Spotify client).
	EventPaused
	EventResumed
	// EventFinished means the current track played to its end.
	EventFinished
	// EventPosition carries a position sample.
	EventPosition
	// EventError carries a classified *Error.
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventFinished:
		return "finished"
	case EventPosition:
		return "position"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a fact reported by an adapter. Events describe what already
// happened in the backend; they are never commands.
type Event struct {
	Kind     EventKind
	Position time.Duration // set for EventPosition
	Err      error         // set for EventError, always a *Error
}
