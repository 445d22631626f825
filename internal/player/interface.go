package player

import "time"

// Interface defines the audio engine contract for dependency injection and
// testing. It is the playback service's time source: position, duration and
// the play/pause/seek surface.
type Interface interface {
	Play(path string) error
	Stop()
	Pause()
	Resume()
	Toggle()
	State() State
	Position() time.Duration
	Duration() time.Duration
	SeekTo(pos time.Duration)
	// FinishedChan signals once per natural end-of-track. Stop and track
	// replacement never signal it.
	FinishedChan() <-chan struct{}
}

// Verify implementations at compile time.
var (
	_ Interface = (*Player)(nil)
	_ Interface = (*Mock)(nil)
)
