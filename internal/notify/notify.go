// Package notify shows desktop popups for playback events.
package notify

// Urgency is the freedesktop notification urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification describes one popup. ReplacesID lets a new popup take
// the place of an earlier one instead of stacking. Timeout follows the
// freedesktop convention: milliseconds, -1 for the server default,
// 0 to never expire.
type Notification struct {
	Title      string
	Body       string
	Icon       string // file path or themed icon name
	Timeout    int32
	ReplacesID uint32
	Urgency    Urgency
}

// Notifier delivers popups. Implementations return the server-assigned
// notification ID; an ID of 0 with a nil error means delivery was
// silently skipped because no notification service is around.
type Notifier interface {
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}
