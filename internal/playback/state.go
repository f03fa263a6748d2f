package playback

// State represents the session playback state.
//
// Valid transitions:
//   - Stopped -> Loading            (via Play/Next/Previous)
//   - Loading -> Playing            (backend confirmed start)
//   - Loading -> Error              (load failed)
//   - Playing -> Paused             (via Pause)
//   - Paused  -> Playing            (via Resume)
//   - Playing/Paused -> Loading     (track change)
//   - any     -> Stopped            (via Stop, or queue exhausted)
//   - Loading/Playing -> Error      (backend error event)
//   - Error   -> Loading/Stopped    (any subsequent successful command)
//
// Pause when already Paused and Resume when already Playing are no-ops,
// not errors.
type State int

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is underway (loading, playing or
// paused).
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}
