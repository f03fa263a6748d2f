// Package keymap defines key bindings and action dispatch for the application.
package keymap

// Binding describes a single key binding.
type Binding struct {
	Keys        []string
	Action      Action
	Description string
	Context     string // "global", "queue", "playback"
}

// All contains every key binding, used both for dispatch and for help
// generation.
var All = []Binding{
	// Global
	{[]string{"q", "ctrl+c"}, ActionQuit, "Quit application", "global"},
	{[]string{"?"}, ActionHelp, "Show help", "global"},

	// Playback
	{[]string{" "}, ActionPlayPause, "Play/pause", "playback"},
	{[]string{"s"}, ActionStop, "Stop", "playback"},
	{[]string{"pgdown", "n"}, ActionNextTrack, "Next track", "playback"},
	{[]string{"pgup", "b"}, ActionPrevTrack, "Previous track", "playback"},
	{[]string{"shift+left"}, ActionSeekBack, "Seek -5s", "playback"},
	{[]string{"shift+right"}, ActionSeekForward, "Seek +5s", "playback"},
	{[]string{"-"}, ActionVolumeDown, "Volume -5", "playback"},
	{[]string{"+", "="}, ActionVolumeUp, "Volume +5", "playback"},
	{[]string{"R"}, ActionCycleRepeat, "Cycle repeat mode", "playback"},
	{[]string{"S"}, ActionToggleShuffle, "Toggle shuffle", "playback"},

	// Queue
	{[]string{"j", "down"}, ActionMoveDown, "Move down", "queue"},
	{[]string{"k", "up"}, ActionMoveUp, "Move up", "queue"},
	{[]string{"g", "home"}, ActionJumpStart, "First track", "queue"},
	{[]string{"G", "end"}, ActionJumpEnd, "Last track", "queue"},
	{[]string{"enter"}, ActionSelect, "Play track", "queue"},
	{[]string{"d", "delete"}, ActionDelete, "Remove track", "queue"},
	{[]string{"c"}, ActionClear, "Clear queue", "queue"},
	{[]string{"shift+j"}, ActionMoveItemDown, "Move track down", "queue"},
	{[]string{"shift+k"}, ActionMoveItemUp, "Move track up", "queue"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, b := range All {
		if b.Context == context {
			result = append(result, b)
		}
	}
	return result
}
