package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/merkezekre2020/musix/internal/lyrics"
	"github.com/merkezekre2020/musix/internal/player"
	"github.com/merkezekre2020/musix/internal/playlist"
)

const (
	// tickInterval is the position sampler cadence.
	tickInterval = 100 * time.Millisecond

	// previousRestartThreshold: Previous() restarts the current track when
	// more than this much has elapsed, instead of moving back.
	previousRestartThreshold = 3 * time.Second
)

// Fetcher is the slice of the lyrics coordinator the service drives.
type Fetcher interface {
	Request(track lyrics.TrackInfo)
	Close()
}

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// serviceImpl funnels every command through mu, so commands are applied one
// at a time and ticker samples cannot race a seek or skip. Lyrics state has
// its own lock because fetch completions arrive re-entrantly while a command
// holds mu (lock order: mu, then the fetcher's own lock, then lyricsMu;
// never the reverse).
type serviceImpl struct {
	mu sync.Mutex

	player  player.Interface
	queue   *playlist.PlayingQueue
	fetcher Fetcher
	log     zerolog.Logger

	phase             State
	completionHandled bool
	parkedAtEnd       bool
	tickerStop        chan struct{}

	lyricsMu      sync.Mutex
	timeline      *lyrics.Timeline
	lyricsLoading bool
	lyricsErr     string
	lyricIndex    int

	subsMu sync.RWMutex
	subs   []*Subscription
	closed bool
}

// New creates a playback service. client may be nil when lyrics are
// disabled.
func New(p player.Interface, q *playlist.PlayingQueue, client lyrics.Client, log zerolog.Logger) Service {
	s := &serviceImpl{
		player:     p,
		queue:      q,
		log:        log,
		phase:      StateStopped,
		lyricIndex: -1,
	}
	if client != nil {
		s.fetcher = lyrics.NewFetcher(client, s.applyLyrics, log)
	}
	return s
}

// --- Playback control ---

// Play resumes paused playback or starts the current queue track. No-op on
// an empty queue.
func (s *serviceImpl) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return nil
	}

	switch s.phase {
	case StatePlaying, StateLoading:
		return nil
	case StatePaused:
		if s.parkedAtEnd {
			// The engine dropped the exhausted stream at end-of-track; the
			// parked track must be reopened, not unpaused.
			return s.loadAndPlayLocked()
		}
		s.resumeLocked()
		return nil
	default:
		return s.loadAndPlayLocked()
	}
}

// resumeLocked restarts a paused mid-track stream.
func (s *serviceImpl) resumeLocked() {
	s.player.Resume()
	s.completionHandled = false
	s.setPhaseLocked(StatePlaying)
	s.startTickerLocked()
}

// PlayTrack plays the given track now. If it is already in the queue the
// current position moves to it; otherwise it is inserted at the current
// position, preserving the rest of the queue.
func (s *serviceImpl) PlayTrack(t playlist.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.queue.IndexOf(t.ID); idx >= 0 {
		s.queue.JumpTo(idx)
	} else {
		s.queue.InsertAtCurrent(t)
		s.emitQueueLocked()
	}
	return s.loadAndPlayLocked()
}

// Pause suspends playback. No-op unless playing.
func (s *serviceImpl) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != StatePlaying {
		return
	}
	s.player.Pause()
	s.stopTickerLocked()
	s.setPhaseLocked(StatePaused)
}

// Toggle switches between playing and paused, or starts playback when
// stopped.
func (s *serviceImpl) Toggle() error {
	s.mu.Lock()

	switch s.phase {
	case StatePlaying:
		s.player.Pause()
		s.stopTickerLocked()
		s.setPhaseLocked(StatePaused)
		s.mu.Unlock()
		return nil
	case StatePaused:
		if s.parkedAtEnd {
			err := s.loadAndPlayLocked()
			s.mu.Unlock()
			return err
		}
		s.resumeLocked()
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		return s.Play()
	}
}

// Stop halts playback and releases the engine.
func (s *serviceImpl) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTickerLocked()
	s.player.Stop()
	s.setPhaseLocked(StateStopped)
}

// Next advances in traversal order (wrapping) and plays. No-op on an empty
// queue.
func (s *serviceImpl) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return nil
	}
	s.queue.Next()
	return s.loadAndPlayLocked()
}

// Previous restarts the current track when more than 3s have elapsed,
// otherwise moves back in traversal order and plays.
func (s *serviceImpl) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() {
		return nil
	}
	if s.player.Position() > previousRestartThreshold {
		s.player.SeekTo(0)
		s.emitPositionLocked()
		return nil
	}
	s.queue.Previous()
	return s.loadAndPlayLocked()
}

// Seek moves the position by delta, clamped to the track.
func (s *serviceImpl) Seek(delta time.Duration) {
	s.SeekTo(s.player.Position() + delta)
}

// SeekTo moves the position to pos, clamped to [0, duration]. Never errors;
// a seek on an empty queue is a no-op.
func (s *serviceImpl) SeekTo(pos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.IsEmpty() || s.phase == StateStopped {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if dur := s.player.Duration(); dur > 0 && pos > dur {
		pos = dur
	}
	s.player.SeekTo(pos)
	s.emitPositionLocked()
	s.refreshLyricIndex()
}

// SeekToFraction seeks to f of the track duration, clamped to [0, 1].
func (s *serviceImpl) SeekToFraction(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	dur := s.player.Duration()
	s.SeekTo(time.Duration(f * float64(dur)))
}

// JumpTo moves to the given queue index and plays it.
func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.JumpTo(index) == nil {
		return nil
	}
	return s.loadAndPlayLocked()
}

// --- Queue manipulation ---

// Replace swaps the queue contents; startIndex is clamped into range. The
// playback phase is left unchanged (callers typically follow with Play).
func (s *serviceImpl) Replace(tracks []playlist.Track, startIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Replace(tracks, startIndex)
	s.emitQueueLocked()
}

// Add appends tracks to the queue.
func (s *serviceImpl) Add(tracks ...playlist.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Add(tracks...)
	s.emitQueueLocked()
}

// ClearQueue stops playback and empties the queue.
func (s *serviceImpl) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTickerLocked()
	s.player.Stop()
	s.setPhaseLocked(StateStopped)
	s.queue.Clear()
	s.emitQueueLocked()
}

// --- Mode control ---

func (s *serviceImpl) RepeatMode() playlist.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.RepeatMode()
}

func (s *serviceImpl) SetRepeatMode(m playlist.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.SetRepeatMode(m)
	s.emitModeLocked()
}

// CycleRepeatMode advances Off -> All -> One -> Off.
func (s *serviceImpl) CycleRepeatMode() playlist.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.queue.CycleRepeatMode()
	s.emitModeLocked()
	return m
}

func (s *serviceImpl) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Shuffle()
}

func (s *serviceImpl) SetShuffle(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.SetShuffle(enabled)
	s.emitModeLocked()
}

func (s *serviceImpl) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.queue.ToggleShuffle()
	s.emitModeLocked()
	return v
}

// --- State queries ---

func (s *serviceImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *serviceImpl) IsPlaying() bool { return s.State() == StatePlaying }
func (s *serviceImpl) IsPaused() bool  { return s.State() == StatePaused }
func (s *serviceImpl) IsStopped() bool { return s.State() == StateStopped }

func (s *serviceImpl) Position() time.Duration { return s.player.Position() }
func (s *serviceImpl) Duration() time.Duration { return s.player.Duration() }

func (s *serviceImpl) CurrentTrack() *playlist.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Current()
}

func (s *serviceImpl) QueueTracks() []playlist.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Tracks()
}

func (s *serviceImpl) QueueIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CurrentIndex()
}

func (s *serviceImpl) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Snapshot returns an immutable view of the full playback state.
func (s *serviceImpl) Snapshot() Snapshot {
	s.mu.Lock()
	pos := s.player.Position()
	dur := s.player.Duration()
	snap := Snapshot{
		Track:      s.queue.Current(),
		State:      s.phase,
		Position:   pos,
		Duration:   dur,
		Progress:   progress(pos, dur),
		Shuffle:    s.queue.Shuffle(),
		RepeatMode: s.queue.RepeatMode(),
		Queue:      s.queue.Tracks(),
		QueueIndex: s.queue.CurrentIndex(),
	}
	s.mu.Unlock()

	s.lyricsMu.Lock()
	snap.Lyrics = s.timeline
	snap.ActiveLyricIndex = s.lyricIndex
	snap.LyricsLoading = s.lyricsLoading
	snap.LyricsError = s.lyricsErr
	s.lyricsMu.Unlock()

	return snap
}

// --- Subscription / lifecycle ---

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Close shuts down the service.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	s.stopTickerLocked()
	s.player.Stop()
	s.phase = StateStopped
	s.mu.Unlock()

	if s.fetcher != nil {
		s.fetcher.Close()
	}

	s.subsMu.Lock()
	if s.closed {
		s.subsMu.Unlock()
		return nil
	}
	s.closed = true
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()
	return nil
}

// --- Track loading ---

// loadAndPlayLocked opens and starts the current queue track. An unplayable
// track is logged, reported and skipped; the queue never stalls on it. At
// most one full pass over the queue is attempted before giving up.
func (s *serviceImpl) loadAndPlayLocked() error {
	prevTrack := s.queue.Current()
	prevIndex := s.queue.CurrentIndex()

	for attempts := 0; attempts < s.queue.Len(); attempts++ {
		track := s.queue.Current()
		if track == nil {
			break
		}

		s.setPhaseLocked(StateLoading)
		err := s.player.Play(track.Path)
		if err == nil {
			s.startTrackLocked(prevTrack, prevIndex)
			return nil
		}

		s.log.Error().Err(err).Str("path", track.Path).Msg("cannot play track, skipping")
		s.forEachSub(func(sub *Subscription) {
			sub.sendError(ErrorEvent{Operation: "play", Path: track.Path, Err: err})
		})

		if s.queue.RepeatMode() == playlist.RepeatOff && s.queue.AtTraversalEnd() {
			break
		}
		s.queue.Next()
	}

	s.player.Stop()
	s.setPhaseLocked(StateStopped)
	return nil
}

// startTrackLocked finalizes a successful open: phase, ticker, events and
// the lyrics fetch for the new track.
func (s *serviceImpl) startTrackLocked(prevTrack *playlist.Track, prevIndex int) {
	s.drainFinished()
	s.completionHandled = false
	s.parkedAtEnd = false
	s.setPhaseLocked(StatePlaying)
	s.startTickerLocked()

	track := s.queue.Current()
	index := s.queue.CurrentIndex()
	changed := prevTrack == nil || prevIndex != index || prevTrack.ID != track.ID
	if changed {
		s.forEachSub(func(sub *Subscription) {
			sub.sendTrack(TrackChange{
				Previous:      prevTrack,
				Current:       track,
				PreviousIndex: prevIndex,
				Index:         index,
			})
		})
	}

	if s.fetcher != nil {
		dur := track.Duration
		if d := s.player.Duration(); d > 0 {
			dur = d
		}
		s.fetcher.Request(lyrics.TrackInfo{
			ID:       track.ID,
			Artist:   track.Artist,
			Title:    track.Title,
			Album:    track.Album,
			Duration: dur,
		})
	}
}

// drainFinished discards a pending finished signal left over from a
// previous track, so it cannot complete the new one.
func (s *serviceImpl) drainFinished() {
	select {
	case <-s.player.FinishedChan():
	default:
	}
}

// --- Completion ---

// handleTrackFinished applies the natural end-of-track transition exactly
// once per track.
func (s *serviceImpl) handleTrackFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completionHandled || s.phase != StatePlaying {
		return
	}
	s.completionHandled = true

	switch s.queue.RepeatMode() {
	case playlist.RepeatOne:
		_ = s.loadAndPlayLocked()
	case playlist.RepeatAll:
		s.queue.Next()
		_ = s.loadAndPlayLocked()
	default: // RepeatOff
		if s.queue.AtTraversalEnd() {
			// End of queue: stay on the last track, parked at the start.
			// The exhausted stream is gone from the engine, so a resume
			// must go through a reload.
			s.parkedAtEnd = true
			s.stopTickerLocked()
			s.player.SeekTo(0)
			s.player.Pause()
			s.setPhaseLocked(StatePaused)
			s.emitPositionLocked()
			return
		}
		s.queue.Next()
		_ = s.loadAndPlayLocked()
	}
}

// --- Position ticker ---

// startTickerLocked restarts the sampler. Stopping first guarantees a play
// command never double-schedules.
func (s *serviceImpl) startTickerLocked() {
	s.stopTickerLocked()
	stop := make(chan struct{})
	s.tickerStop = stop
	go s.tickLoop(stop)
}

func (s *serviceImpl) stopTickerLocked() {
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
}

// tickLoop samples the time source at a fixed cadence while playing, and
// reacts to the engine's end-of-track signal.
func (s *serviceImpl) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.player.FinishedChan():
			s.handleTrackFinished()
		case <-ticker.C:
			s.onTick()
		}
	}
}

// onTick samples position/duration, republishes progress, updates the
// active lyric index, and detects natural completion when the engine's
// signal has not arrived yet.
func (s *serviceImpl) onTick() {
	s.mu.Lock()
	if s.phase != StatePlaying {
		s.mu.Unlock()
		return
	}

	pos := s.player.Position()
	dur := s.player.Duration()
	s.emitPositionLocked()

	finished := dur > 0 && pos >= dur-tickInterval && !s.completionHandled
	s.mu.Unlock()

	s.updateLyricIndex(pos)

	if finished {
		s.handleTrackFinished()
	}
}

// --- Lyrics ---

// applyLyrics publishes a fetch-coordinator update. It is the fetcher's
// publish callback and may be invoked re-entrantly while a command holds the
// service lock, so it only touches lyrics state.
func (s *serviceImpl) applyLyrics(u lyrics.Update) {
	s.lyricsMu.Lock()
	s.timeline = u.Timeline
	s.lyricsLoading = u.Loading
	s.lyricsErr = u.Err
	idx := -1
	if u.Timeline != nil {
		idx = u.Timeline.LineAt(s.player.Position())
	}
	s.lyricIndex = idx
	s.lyricsMu.Unlock()

	s.forEachSub(func(sub *Subscription) {
		sub.sendLyrics(LyricsChange{
			TrackID:  u.TrackID,
			Timeline: u.Timeline,
			Loading:  u.Loading,
			Err:      u.Err,
		})
		sub.sendLyricIndex(LyricIndexChange{Index: idx})
	})
}

// updateLyricIndex recomputes the active entry for the given position and
// notifies observers only when it changed.
func (s *serviceImpl) updateLyricIndex(pos time.Duration) {
	s.lyricsMu.Lock()
	if s.timeline == nil {
		s.lyricsMu.Unlock()
		return
	}
	idx := s.timeline.LineAt(pos)
	if idx == s.lyricIndex {
		s.lyricsMu.Unlock()
		return
	}
	s.lyricIndex = idx
	s.lyricsMu.Unlock()

	s.forEachSub(func(sub *Subscription) {
		sub.sendLyricIndex(LyricIndexChange{Index: idx})
	})
}

// refreshLyricIndex recomputes the active entry after a seek.
func (s *serviceImpl) refreshLyricIndex() {
	s.updateLyricIndex(s.player.Position())
}

// --- Event helpers ---

func (s *serviceImpl) setPhaseLocked(next State) {
	if s.phase == next {
		return
	}
	prev := s.phase
	s.phase = next
	s.forEachSub(func(sub *Subscription) {
		sub.sendState(StateChange{Previous: prev, Current: next})
	})
}

func (s *serviceImpl) emitQueueLocked() {
	tracks := s.queue.Tracks()
	index := s.queue.CurrentIndex()
	s.forEachSub(func(sub *Subscription) {
		sub.sendQueue(QueueChange{Tracks: tracks, Index: index})
	})
}

func (s *serviceImpl) emitModeLocked() {
	e := ModeChange{RepeatMode: s.queue.RepeatMode(), Shuffle: s.queue.Shuffle()}
	s.forEachSub(func(sub *Subscription) {
		sub.sendMode(e)
	})
}

func (s *serviceImpl) emitPositionLocked() {
	pos := s.player.Position()
	dur := s.player.Duration()
	e := PositionChange{Position: pos, Duration: dur, Progress: progress(pos, dur)}
	s.forEachSub(func(sub *Subscription) {
		sub.sendPosition(e)
	})
}

func (s *serviceImpl) forEachSub(fn func(*Subscription)) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		fn(sub)
	}
}

// progress is position/duration, 0 when duration is unknown.
func progress(pos, dur time.Duration) float64 {
	if dur <= 0 {
		return 0
	}
	p := float64(pos) / float64(dur)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
