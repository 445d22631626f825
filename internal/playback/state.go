package playback

// State is the playback phase.
//
// Stopped is the idle state (startup, empty queue, or stopped by the user).
// Loading covers the window while the engine opens a track. Playing and
// Paused mirror the engine. An unrecoverable open/decode failure is not a
// resting state: the service logs it, emits an ErrorEvent and auto-advances,
// so the phase only passes through failure on its way to the next track.
type State int

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
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
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is active (loading, playing or paused).
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}
