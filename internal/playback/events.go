package playback

import (
	"time"

	"github.com/merkezekre2020/musix/internal/lyrics"
	"github.com/merkezekre2020/musix/internal/playlist"
)

// StateChange is emitted when the playback phase changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when playback starts on a different track.
//
// Emitted by Play/PlayTrack/Next/Previous/JumpTo and by automatic advance on
// track completion or open failure. Queue edits and pause/stop never emit
// it. Track-related side effects (lyrics fetch, media-session metadata)
// should be driven from this event.
type TrackChange struct {
	Previous      *playlist.Track
	Current       *playlist.Track
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Tracks []playlist.Track
	Index  int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	RepeatMode playlist.RepeatMode
	Shuffle    bool
}

// PositionChange is emitted on every ticker sample while playing, and on
// seeks. Progress is position/duration, 0 when duration is unknown.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
	Progress float64
}

// LyricsChange is emitted when the lyrics timeline is replaced: cleared to
// loading on a song change, or populated by a fetch completion.
type LyricsChange struct {
	TrackID  int64
	Timeline *lyrics.Timeline
	Loading  bool
	Err      string
}

// LyricIndexChange is emitted only when the active lyric entry computed from
// the playback position differs from the previously published one.
type LyricIndexChange struct {
	Index int
}

// ErrorEvent is emitted when an operation fails in the background.
type ErrorEvent struct {
	Operation string
	Path      string
	Err       error
}

// Snapshot is an immutable view of the full playback state, exposed to the
// presentation layer.
type Snapshot struct {
	Track            *playlist.Track
	State            State
	Position         time.Duration
	Duration         time.Duration
	Progress         float64
	Shuffle          bool
	RepeatMode       playlist.RepeatMode
	Queue            []playlist.Track
	QueueIndex       int
	Lyrics           *lyrics.Timeline
	ActiveLyricIndex int
	LyricsLoading    bool
	LyricsError      string
}
