package playback

const eventBufferSize = 16

// Subscription provides event channels for a subscriber. Events are sent
// non-blocking: a subscriber that stops draining loses events rather than
// stalling the owner.
type Subscription struct {
	StateChanged      <-chan StateChange
	TrackChanged      <-chan TrackChange
	QueueChanged      <-chan QueueChange
	ModeChanged       <-chan ModeChange
	PositionChanged   <-chan PositionChange
	LyricsChanged     <-chan LyricsChange
	LyricIndexChanged <-chan LyricIndexChange
	Error             <-chan ErrorEvent
	Done              <-chan struct{}

	stateCh      chan StateChange
	trackCh      chan TrackChange
	queueCh      chan QueueChange
	modeCh       chan ModeChange
	positionCh   chan PositionChange
	lyricsCh     chan LyricsChange
	lyricIndexCh chan LyricIndexChange
	errorCh      chan ErrorEvent
	doneCh       chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:      make(chan StateChange, eventBufferSize),
		trackCh:      make(chan TrackChange, eventBufferSize),
		queueCh:      make(chan QueueChange, eventBufferSize),
		modeCh:       make(chan ModeChange, eventBufferSize),
		positionCh:   make(chan PositionChange, eventBufferSize),
		lyricsCh:     make(chan LyricsChange, eventBufferSize),
		lyricIndexCh: make(chan LyricIndexChange, eventBufferSize),
		errorCh:      make(chan ErrorEvent, eventBufferSize),
		doneCh:       make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.PositionChanged = s.positionCh
	s.LyricsChanged = s.lyricsCh
	s.LyricIndexChanged = s.lyricIndexCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
	}
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

func (s *Subscription) sendQueue(e QueueChange) {
	select {
	case s.queueCh <- e:
	default:
	}
}

func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

func (s *Subscription) sendPosition(e PositionChange) {
	select {
	case s.positionCh <- e:
	default:
	}
}

func (s *Subscription) sendLyrics(e LyricsChange) {
	select {
	case s.lyricsCh <- e:
	default:
	}
}

func (s *Subscription) sendLyricIndex(e LyricIndexChange) {
	select {
	case s.lyricIndexCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
