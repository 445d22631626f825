// Package playlist holds the play queue: an ordered track list, the current
// index, the shuffle traversal order and the repeat policy.
package playlist

import "math/rand"

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Cycle returns the next mode in the Off -> All -> One -> Off cycle.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// PlayingQueue is an ordered track list with a current position.
//
// When shuffle is enabled, next/previous traversal follows a permutation of
// the queue's indices instead of storage order. The permutation is
// regenerated whenever the queue contents or the shuffle flag change, and is
// biased so the current track is never placed first (no immediate repeat
// right after enabling shuffle). The queue's storage order is never touched
// by shuffle.
type PlayingQueue struct {
	tracks       []Track
	currentIndex int // -1 when empty
	repeat       RepeatMode
	shuffle      bool
	order        []int // permutation of indices, valid only while shuffle is on
}

// NewQueue creates a new empty playing queue.
func NewQueue() *PlayingQueue {
	return &PlayingQueue{currentIndex: -1}
}

// Current returns the current track, or nil if the queue is empty.
func (q *PlayingQueue) Current() *Track {
	if q.currentIndex < 0 || q.currentIndex >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.currentIndex]
	return &t
}

// CurrentIndex returns the index of the current track (-1 if none).
func (q *PlayingQueue) CurrentIndex() int {
	return q.currentIndex
}

// Tracks returns a copy of all tracks in the queue.
func (q *PlayingQueue) Tracks() []Track {
	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Len returns the number of tracks in the queue.
func (q *PlayingQueue) Len() int { return len(q.tracks) }

// IsEmpty returns true if the queue has no tracks.
func (q *PlayingQueue) IsEmpty() bool { return len(q.tracks) == 0 }

// Replace swaps the queue contents and moves the current position to
// startIndex, clamped into range. Returns the new current track.
func (q *PlayingQueue) Replace(tracks []Track, startIndex int) *Track {
	q.tracks = make([]Track, len(tracks))
	copy(q.tracks, tracks)
	if len(q.tracks) == 0 {
		q.currentIndex = -1
		q.order = nil
		return nil
	}
	q.currentIndex = clamp(startIndex, 0, len(q.tracks)-1)
	q.regenerateOrder()
	return q.Current()
}

// Add appends tracks without changing the current position.
func (q *PlayingQueue) Add(tracks ...Track) {
	if len(tracks) == 0 {
		return
	}
	q.tracks = append(q.tracks, tracks...)
	if q.currentIndex < 0 {
		q.currentIndex = 0
	}
	q.regenerateOrder()
}

// Clear removes all tracks and resets the position.
func (q *PlayingQueue) Clear() {
	q.tracks = nil
	q.currentIndex = -1
	q.order = nil
}

// JumpTo sets the current position. Returns the track there, or nil if the
// index is out of range.
func (q *PlayingQueue) JumpTo(index int) *Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// IndexOf returns the index of the track with the given id, or -1.
func (q *PlayingQueue) IndexOf(id int64) int {
	for i, t := range q.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// InsertAtCurrent places the track at the current position, shifting the
// rest of the queue right, and makes it current. Used for "play this now"
// without destroying queue continuity.
func (q *PlayingQueue) InsertAtCurrent(t Track) *Track {
	if len(q.tracks) == 0 {
		q.tracks = []Track{t}
		q.currentIndex = 0
	} else {
		i := q.currentIndex
		q.tracks = append(q.tracks[:i], append([]Track{t}, q.tracks[i:]...)...)
	}
	q.regenerateOrder()
	return q.Current()
}

// Next advances to the next track in traversal order, wrapping around.
// Returns nil only when the queue is empty.
func (q *PlayingQueue) Next() *Track {
	return q.step(1)
}

// Previous moves to the previous track in traversal order, wrapping around.
// Returns nil only when the queue is empty.
func (q *PlayingQueue) Previous() *Track {
	return q.step(-1)
}

func (q *PlayingQueue) step(delta int) *Track {
	n := len(q.tracks)
	if n == 0 {
		return nil
	}
	if q.shuffle && len(q.order) == n {
		pos := q.orderPosition(q.currentIndex)
		pos = ((pos+delta)%n + n) % n
		q.currentIndex = q.order[pos]
	} else {
		q.currentIndex = ((q.currentIndex+delta)%n + n) % n
	}
	return q.Current()
}

// AtTraversalEnd reports whether the current track is the last one in
// traversal order (storage order, or the shuffle permutation when enabled).
func (q *PlayingQueue) AtTraversalEnd() bool {
	n := len(q.tracks)
	if n == 0 {
		return true
	}
	if q.shuffle && len(q.order) == n {
		return q.orderPosition(q.currentIndex) == n-1
	}
	return q.currentIndex == n-1
}

// orderPosition returns the position of the given index inside the shuffle
// permutation.
func (q *PlayingQueue) orderPosition(index int) int {
	for pos, idx := range q.order {
		if idx == index {
			return pos
		}
	}
	return 0
}

// Order returns a copy of the shuffle permutation (nil when shuffle is off).
func (q *PlayingQueue) Order() []int {
	if !q.shuffle || q.order == nil {
		return nil
	}
	out := make([]int, len(q.order))
	copy(out, q.order)
	return out
}

// RepeatMode returns the current repeat mode.
func (q *PlayingQueue) RepeatMode() RepeatMode { return q.repeat }

// SetRepeatMode sets the repeat mode.
func (q *PlayingQueue) SetRepeatMode(m RepeatMode) { q.repeat = m }

// CycleRepeatMode advances Off -> All -> One -> Off and returns the new mode.
func (q *PlayingQueue) CycleRepeatMode() RepeatMode {
	q.repeat = q.repeat.Cycle()
	return q.repeat
}

// Shuffle returns whether shuffle is enabled.
func (q *PlayingQueue) Shuffle() bool { return q.shuffle }

// SetShuffle enables or disables shuffle, regenerating the traversal order
// when enabling.
func (q *PlayingQueue) SetShuffle(enabled bool) {
	if q.shuffle == enabled {
		return
	}
	q.shuffle = enabled
	if enabled {
		q.regenerateOrder()
	} else {
		q.order = nil
	}
}

// ToggleShuffle flips the shuffle flag and returns the new value.
func (q *PlayingQueue) ToggleShuffle() bool {
	q.SetShuffle(!q.shuffle)
	return q.shuffle
}

// regenerateOrder rebuilds the shuffle permutation for the current queue.
// The current index is never placed first when the queue has more than one
// track.
func (q *PlayingQueue) regenerateOrder() {
	if !q.shuffle {
		q.order = nil
		return
	}
	n := len(q.tracks)
	q.order = rand.Perm(n)
	if n > 1 && q.currentIndex >= 0 && q.order[0] == q.currentIndex {
		swap := 1 + rand.Intn(n-1)
		q.order[0], q.order[swap] = q.order[swap], q.order[0]
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
