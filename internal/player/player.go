// Package player wraps the beep audio engine: decoding, output, position
// and duration reporting, and the end-of-track signal.
package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// musicExtensions maps supported file extensions to their decoders.
var musicExtensions = map[string]func(*os.File) (beep.StreamSeekCloser, beep.Format, error){
	".mp3": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) },
	".flac": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		s, fm, err := flac.Decode(f)
		return s, fm, err
	},
	".ogg": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) },
	".oga": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) },
	".wav": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) },
}

// Player plays audio files through the beep speaker.
type Player struct {
	mu         sync.Mutex
	state      State
	ctrl       *beep.Ctrl
	streamer   beep.StreamSeekCloser
	format     beep.Format
	file       *os.File
	duration   time.Duration
	gen        uint64 // invalidates finish callbacks of replaced tracks
	finishedCh chan struct{}
}

var speakerInitialized bool

// New creates a stopped player. The speaker is initialized lazily on the
// first Play.
func New() *Player {
	return &Player{
		state:      Stopped,
		finishedCh: make(chan struct{}, 1),
	}
}

// Play stops any current track, opens the file and starts playback.
func (p *Player) Play(path string) error {
	p.Stop()

	decode, ok := musicExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	streamer, format, err := decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	if !speakerInitialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			f.Close()
			return err
		}
		speakerInitialized = true
	}

	p.mu.Lock()
	p.file = f
	p.streamer = streamer
	p.format = format
	p.duration = format.SampleRate.D(streamer.Len())
	p.ctrl = &beep.Ctrl{Streamer: streamer}
	p.state = Playing
	p.gen++
	gen := p.gen
	ctrl := p.ctrl
	p.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		p.trackFinished(gen)
	})))

	return nil
}

// trackFinished signals natural end-of-track, unless the track was replaced
// in the meantime.
func (p *Player) trackFinished(gen uint64) {
	p.mu.Lock()
	stale := gen != p.gen
	p.mu.Unlock()
	if stale {
		return
	}
	select {
	case p.finishedCh <- struct{}{}:
	default:
	}
}

// Stop stops playback and releases resources.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	p.gen++ // any pending finish callback is now stale
	streamer := p.streamer
	file := p.file
	p.streamer = nil
	p.file = nil
	p.ctrl = nil
	p.duration = 0
	p.state = Stopped
	p.mu.Unlock()

	speaker.Clear()
	if streamer != nil {
		streamer.Close()
	}
	if file != nil {
		file.Close()
	}
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = Paused
}

// Resume resumes paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Paused || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.state = Playing
}

// Toggle toggles between playing and paused.
func (p *Player) Toggle() {
	switch p.State() {
	case Playing:
		p.Pause()
	case Paused:
		p.Resume()
	case Stopped:
		// Nothing to toggle.
	}
}

// State returns the current engine state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.format.SampleRate.D(p.streamer.Position())
	speaker.Unlock()
	return pos
}

// Duration returns the current track's total duration.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// SeekTo moves playback to an absolute position, clamped to the track.
func (p *Player) SeekTo(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || p.state == Stopped {
		return
	}

	sample := p.format.SampleRate.N(pos)
	sample = max(sample, 0)
	if maxSample := p.streamer.Len() - 1; sample > maxSample {
		sample = maxSample
	}

	speaker.Lock()
	_ = p.streamer.Seek(sample)
	speaker.Unlock()
}

// FinishedChan signals once per natural end-of-track.
func (p *Player) FinishedChan() <-chan struct{} {
	return p.finishedCh
}
