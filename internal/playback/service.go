// Package playback owns the playback state machine: the queue, the phase,
// the position ticker, and the lyrics timeline kept aligned to the current
// track. All public commands are serialized through a single service.
package playback

import (
	"time"

	"github.com/merkezekre2020/musix/internal/playlist"
)

// Service defines the playback service contract.
type Service interface {
	// Playback control
	Play() error
	PlayTrack(t playlist.Track) error
	Pause()
	Toggle() error
	Stop()
	Next() error
	Previous() error
	Seek(delta time.Duration)
	SeekTo(pos time.Duration)
	SeekToFraction(f float64)
	JumpTo(index int) error

	// Queue manipulation
	Replace(tracks []playlist.Track, startIndex int)
	Add(tracks ...playlist.Track)
	ClearQueue()

	// Mode control
	RepeatMode() playlist.RepeatMode
	SetRepeatMode(m playlist.RepeatMode)
	CycleRepeatMode() playlist.RepeatMode
	Shuffle() bool
	SetShuffle(enabled bool)
	ToggleShuffle() bool

	// State queries
	State() State
	IsPlaying() bool
	IsPaused() bool
	IsStopped() bool
	Position() time.Duration
	Duration() time.Duration
	CurrentTrack() *playlist.Track
	QueueTracks() []playlist.Track
	QueueIndex() int
	QueueLen() int
	Snapshot() Snapshot

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
