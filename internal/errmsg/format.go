// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Queue operations
	OpQueueLoad Op = "load queue"
	OpQueueSave Op = "save queue"
	OpQueueAdd  Op = "add to queue"

	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackPause  Op = "pause playback"
	OpPlaybackResume Op = "resume playback"
	OpPlaybackSeek   Op = "seek"
	OpPlaybackVolume Op = "set volume"
	OpPlaybackNext   Op = "skip to next track"
	OpPlaybackPrev   Op = "skip to previous track"

	// Backend operations
	OpBackendStart   Op = "start playback backend"
	OpBackendConnect Op = "connect to playback backend"

	// Source operations
	OpFolderScan   Op = "scan music folder"
	OpPlaylistLoad Op = "load playlist"

	// Last.fm operations
	OpLastfmAuth       Op = "authenticate with last.fm"
	OpLastfmScrobble   Op = "scrobble track"
	OpLastfmNowPlaying Op = "update now playing"

	// Persistence
	OpStateLoad Op = "load saved state"
	OpStateSave Op = "save state"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
