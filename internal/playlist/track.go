package playlist

import "time"

// Track is an immutable queue entry. Path doubles as the handle the audio
// engine uses to open the underlying stream.
type Track struct {
	ID          int64
	Path        string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
}
