package lyrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/merkezekre2020/musix/internal/lrclib"
)

// TrackInfo identifies the track a fetch is keyed to.
type TrackInfo struct {
	ID       int64
	Artist   string
	Title    string
	Album    string
	Duration time.Duration
}

// Client is the slice of the lrclib client the fetcher needs.
type Client interface {
	Get(ctx context.Context, artist, title, album string, duration time.Duration) (*lrclib.Result, error)
}

// Update is an immutable fetch-state snapshot handed to the owner. While
// Loading is true the previous timeline must be considered cleared.
type Update struct {
	TrackID  int64
	Timeline *Timeline
	Loading  bool
	Err      string // diagnostic message for failed fetches
}

// Fetcher coordinates lyric fetches: at most one request is in flight, a new
// request supersedes (cancels) the previous one, and completions are only
// published when their generation and track id still match the live request.
// Successful results are cached for the fetcher's lifetime, keyed by
// lowercased (artist, title). The cache is unbounded; acceptable for a
// per-session cache.
type Fetcher struct {
	mu      sync.Mutex
	client  Client
	publish func(Update)
	log     zerolog.Logger

	cache  map[string]*Timeline
	gen    uint64
	cancel context.CancelFunc
	wantID int64
}

// NewFetcher creates a fetch coordinator. publish is invoked in request
// order, under the fetcher's lock.
func NewFetcher(client Client, publish func(Update), log zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		publish: publish,
		log:     log,
		cache:   make(map[string]*Timeline),
	}
}

// Request cancels any in-flight fetch and starts one for the given track.
// The owner immediately receives a loading update (or the final result, on a
// cache hit or a track with no usable metadata).
func (f *Fetcher) Request(track TrackInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.supersedeLocked()
	f.wantID = track.ID

	if track.Artist == "" || track.Title == "" {
		f.publish(Update{TrackID: track.ID, Timeline: NotFound()})
		return
	}

	key := cacheKey(track.Artist, track.Title)
	if cached, ok := f.cache[key]; ok {
		f.publish(Update{TrackID: track.ID, Timeline: cached})
		return
	}

	f.publish(Update{TrackID: track.ID, Loading: true})

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.fetch(ctx, f.gen, track, key)
}

// Close cancels any in-flight fetch.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supersedeLocked()
}

// supersedeLocked invalidates the current in-flight request.
func (f *Fetcher) supersedeLocked() {
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, gen uint64, track TrackInfo, key string) {
	timeline, errMsg := f.resolve(ctx, track)

	f.mu.Lock()
	defer f.mu.Unlock()

	// A request issued after ours owns the timeline now; our answer must not
	// overwrite it.
	if gen != f.gen || track.ID != f.wantID || ctx.Err() != nil {
		f.log.Debug().
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("dropping superseded lyrics result")
		return
	}

	if timeline.Status == StatusSynced || timeline.Status == StatusPlain || timeline.Status == StatusInstrumental {
		f.cache[key] = timeline
	}

	f.publish(Update{TrackID: track.ID, Timeline: timeline, Err: errMsg})
}

// resolve runs the fetch and maps the outcome to a timeline. The error
// message is non-empty only for failed fetches.
func (f *Fetcher) resolve(ctx context.Context, track TrackInfo) (*Timeline, string) {
	result, err := f.client.Get(ctx, track.Artist, track.Title, track.Album, track.Duration)
	switch {
	case errors.Is(err, lrclib.ErrNotFound):
		return NotFound(), ""
	case err != nil:
		f.log.Warn().
			Err(err).
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("lyrics fetch failed")
		return Failed(), err.Error()
	}

	switch {
	case result.HasSyncedLyrics():
		timeline, parseErr := ParseLRC(strings.NewReader(result.SyncedLyrics))
		if parseErr != nil {
			return Failed(), parseErr.Error()
		}
		if len(timeline.Lines) == 0 {
			return NotFound(), ""
		}
		fillMetadata(timeline, result)
		return timeline, ""
	case result.HasPlainLyrics():
		timeline := Plain(result.PlainLyrics)
		fillMetadata(timeline, result)
		return timeline, ""
	case result.Instrumental:
		return Instrumental(), ""
	default:
		return NotFound(), ""
	}
}

func fillMetadata(t *Timeline, r *lrclib.Result) {
	if t.Artist == "" {
		t.Artist = r.ArtistName
	}
	if t.Title == "" {
		t.Title = r.TrackName
	}
	if t.Album == "" {
		t.Album = r.AlbumName
	}
}

func cacheKey(artist, title string) string {
	return strings.ToLower(artist) + "\x00" + strings.ToLower(title)
}
