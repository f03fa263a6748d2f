// Package media holds the track data model shared by the queue, the
// backends and the playback session.
package media

import "time"

// Source identifies the playback backend a track belongs to.
type Source int

const (
	SourceLocal Source = iota
	SourceSpotify
	SourceYouTube
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceSpotify:
		return "spotify"
	case SourceYouTube:
		return "youtube"
	default:
		return "unknown"
	}
}

// Track identifies a playable item. It is a value type and never mutated
// after construction; a Duration of 0 means the backend has not resolved
// it yet.
type Track struct {
	ID       string // opaque, scoped to Source
	Source   Source
	Title    string
	Artist   string
	Duration time.Duration
	Locator  string // file path, spotify URI or youtube video id
}

// HasDuration reports whether the track duration is known.
func (t Track) HasDuration() bool {
	return t.Duration > 0
}

// Display returns "Artist - Title", falling back to the locator when
// no title is known.
func (t Track) Display() string {
	if t.Title == "" {
		return t.Locator
	}
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
