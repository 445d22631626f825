// Package lyrics provides LRC parsing, the synchronized timeline, and the
// fetch coordinator that keeps the timeline aligned with the current track.
package lyrics

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status describes how a Timeline was produced.
type Status int

const (
	// StatusSynced means the timeline was parsed from timestamped lyrics.
	StatusSynced Status = iota
	// StatusPlain means only unsynchronized text was available; the timeline
	// holds a single always-active entry at timestamp 0.
	StatusPlain
	// StatusInstrumental means the track has no lyrics at all.
	StatusInstrumental
	// StatusNotFound means no lyrics exist for the track; the timeline holds
	// the NotFoundText sentinel entry.
	StatusNotFound
	// StatusFailed means the fetch failed; the timeline holds the
	// LoadFailedText sentinel entry.
	StatusFailed
)

// Sentinel entry texts. Sentinels share the shape of a real lyric line (a
// timestamp-0 entry); the Status field is the only in-process
// disambiguation, and display layers that look at entries alone cannot tell
// a sentinel from a genuine one-line lyric at t=0.
const (
	NotFoundText   = "No lyrics found"
	LoadFailedText = "Failed to load lyrics"
)

// Line is a single timestamped lyric entry.
type Line struct {
	Time time.Duration
	Text string
}

// Timeline is an ordered, deduplicated sequence of lyric entries. An empty
// Lines slice is a valid state meaning "no lyrics"; "not yet fetched" is
// tracked separately by the fetcher's loading flag.
type Timeline struct {
	Lines  []Line
	Status Status

	Title  string
	Artist string
	Album  string
}

// NotFound returns the sentinel timeline for tracks without lyrics.
func NotFound() *Timeline {
	return &Timeline{
		Lines:  []Line{{Time: 0, Text: NotFoundText}},
		Status: StatusNotFound,
	}
}

// Failed returns the sentinel timeline for failed fetches.
func Failed() *Timeline {
	return &Timeline{
		Lines:  []Line{{Time: 0, Text: LoadFailedText}},
		Status: StatusFailed,
	}
}

// Instrumental returns the empty timeline for instrumental tracks.
func Instrumental() *Timeline {
	return &Timeline{Status: StatusInstrumental}
}

// Plain returns a single-entry timeline holding the full unsynchronized
// text, active from timestamp 0.
func Plain(text string) *Timeline {
	return &Timeline{
		Lines:  []Line{{Time: 0, Text: strings.TrimSpace(text)}},
		Status: StatusPlain,
	}
}

// LineAt returns the index of the entry active at the given playback
// position: the last entry whose timestamp does not exceed pos, or 0 when
// pos is before the first entry. Returns -1 only when the timeline is empty.
func (t *Timeline) LineAt(pos time.Duration) int {
	if len(t.Lines) == 0 {
		return -1
	}
	idx := 0
	for i, line := range t.Lines {
		if line.Time <= pos {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// Regular expressions for the LRC format.
var (
	// Timestamp tags like [00:12.34], [00:12:34] or [00:12.345]. The
	// fraction is hundredths when 2 digits, milliseconds when 3.
	timestampRe = regexp.MustCompile(`\[(\d{2}):(\d{2})[.:](\d{2,3})\]`)

	// Metadata tags like [ar:Artist Name].
	metadataRe = regexp.MustCompile(`^\[([a-z]+):(.+)\]$`)
)

// ParseLRC parses LRC text into a synced timeline.
//
// Each input line may carry several timestamp tags; the text after the last
// tag becomes the entry text for every tag on that line (the same lyric sung
// at multiple times). Lines without tags are discarded. Entries are sorted
// by timestamp; entries sharing a timestamp keep only the first one in sort
// order.
func ParseLRC(r io.Reader) (*Timeline, error) {
	timeline := &Timeline{Status: StatusSynced}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if meta := metadataRe.FindStringSubmatch(line); meta != nil {
			value := strings.TrimSpace(meta[2])
			switch meta[1] {
			case "ar":
				timeline.Artist = value
			case "ti":
				timeline.Title = value
			case "al":
				timeline.Album = value
			}
			continue
		}

		matches := timestampRe.FindAllStringSubmatchIndex(line, -1)
		if len(matches) == 0 {
			continue
		}

		lastMatch := matches[len(matches)-1]
		text := strings.TrimSpace(line[lastMatch[1]:])

		for _, match := range matches {
			ts, err := ParseTimestamp(line[match[0]:match[1]])
			if err != nil {
				continue
			}
			timeline.Lines = append(timeline.Lines, Line{Time: ts, Text: text})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(timeline.Lines, func(i, j int) bool {
		return timeline.Lines[i].Time < timeline.Lines[j].Time
	})
	timeline.Lines = dedupeLines(timeline.Lines)

	return timeline, nil
}

// dedupeLines drops entries sharing a timestamp with an earlier entry,
// keeping the first occurrence in sort order.
func dedupeLines(lines []Line) []Line {
	if len(lines) < 2 {
		return lines
	}
	out := lines[:1]
	for _, l := range lines[1:] {
		if l.Time != out[len(out)-1].Time {
			out = append(out, l)
		}
	}
	return out
}

// ParseTimestamp parses a single tag like [00:12.34] into a duration.
// A 2-digit fraction is hundredths of a second, a 3-digit one milliseconds.
func ParseTimestamp(s string) (time.Duration, error) {
	matches := timestampRe.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("malformed timestamp tag %q", s)
	}

	minutes, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(matches[3])
	if err != nil {
		return 0, err
	}
	if len(matches[3]) == 2 {
		millis *= 10
	}

	return time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// FormatTimestamp renders a duration as an LRC tag with a hundredths
// fraction, e.g. [00:12.34].
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int(d/time.Second) % 60
	centis := int(d/(10*time.Millisecond)) % 100
	return fmt.Sprintf("[%02d:%02d.%02d]", minutes, seconds, centis)
}
