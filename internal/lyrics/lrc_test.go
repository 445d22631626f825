package lyrics

import (
	"strings"
	"testing"
	"time"
)

func TestParseLRC_SortsByTimestamp(t *testing.T) {
	input := "[00:12.34]Hello\n[00:09.00]World"

	timeline, err := ParseLRC(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLRC() error = %v", err)
	}

	if len(timeline.Lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(timeline.Lines))
	}
	if timeline.Lines[0].Text != "World" || timeline.Lines[0].Time != 9*time.Second {
		t.Errorf("Lines[0] = %+v, want (9s, World)", timeline.Lines[0])
	}
	if timeline.Lines[1].Text != "Hello" || timeline.Lines[1].Time != 12340*time.Millisecond {
		t.Errorf("Lines[1] = %+v, want (12.34s, Hello)", timeline.Lines[1])
	}
}

func TestParseLRC_DedupesIdenticalTimestamps(t *testing.T) {
	input := "[00:05.00]first\n[00:05.00]second"

	timeline, err := ParseLRC(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLRC() error = %v", err)
	}

	if len(timeline.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(timeline.Lines))
	}
	if timeline.Lines[0].Text != "first" {
		t.Errorf("Lines[0].Text = %q, want first (first occurrence wins)", timeline.Lines[0].Text)
	}
}

func TestParseLRC_MultipleTagsShareText(t *testing.T) {
	input := "[00:10.00][01:10.00]Chorus"

	timeline, err := ParseLRC(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLRC() error = %v", err)
	}

	if len(timeline.Lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(timeline.Lines))
	}
	for i, want := range []time.Duration{10 * time.Second, 70 * time.Second} {
		if timeline.Lines[i].Time != want || timeline.Lines[i].Text != "Chorus" {
			t.Errorf("Lines[%d] = %+v, want (%v, Chorus)", i, timeline.Lines[i], want)
		}
	}
}

func TestParseLRC_DiscardsUntaggedLines(t *testing.T) {
	input := "just a comment\n[00:01.00]real line\n\nanother stray"

	timeline, err := ParseLRC(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLRC() error = %v", err)
	}

	if len(timeline.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(timeline.Lines))
	}
}

func TestParseLRC_Metadata(t *testing.T) {
	input := "[ar:Artist]\n[ti:Title]\n[al:Album]\n[00:01.00]line"

	timeline, err := ParseLRC(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseLRC() error = %v", err)
	}

	if timeline.Artist != "Artist" || timeline.Title != "Title" || timeline.Album != "Album" {
		t.Errorf("metadata = (%q, %q, %q), want (Artist, Title, Album)",
			timeline.Artist, timeline.Title, timeline.Album)
	}
}

func TestParseTimestamp_FractionScaling(t *testing.T) {
	tests := []struct {
		tag  string
		want time.Duration
	}{
		{"[00:12.34]", 12*time.Second + 340*time.Millisecond},
		{"[00:12.345]", 12*time.Second + 345*time.Millisecond},
		{"[00:12:34]", 12*time.Second + 340*time.Millisecond},
		{"[02:00.00]", 2 * time.Minute},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.tag)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error = %v", tt.tag, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestParseTimestamp_Malformed(t *testing.T) {
	for _, tag := range []string{"[0:12.34]", "[00:12]", "[00:12.3]", "0:12.34", "[aa:bb.cc]"} {
		if _, err := ParseTimestamp(tag); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", tag)
		}
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want string // normalized: 3-digit fractions reduce to hundredths
	}{
		{"[00:12.34]", "[00:12.34]"},
		{"[00:12:34]", "[00:12.34]"},
		{"[00:12.340]", "[00:12.34]"},
		{"[03:05.99]", "[03:05.99]"},
		{"[00:00.00]", "[00:00.00]"},
	}

	for _, tt := range tests {
		d, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error = %v", tt.in, err)
		}
		if got := FormatTimestamp(d); got != tt.want {
			t.Errorf("FormatTimestamp(ParseTimestamp(%q)) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeline_LineAt(t *testing.T) {
	timeline := &Timeline{Lines: []Line{
		{Time: 0, Text: "A"},
		{Time: 10 * time.Second, Text: "B"},
		{Time: 20 * time.Second, Text: "C"},
	}}

	tests := []struct {
		pos  time.Duration
		want int
	}{
		{5 * time.Second, 0},
		{10 * time.Second, 1},
		{19990 * time.Millisecond, 1},
		{25 * time.Second, 2},
	}

	for _, tt := range tests {
		if got := timeline.LineAt(tt.pos); got != tt.want {
			t.Errorf("LineAt(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestTimeline_LineAt_BeforeFirstEntry(t *testing.T) {
	timeline := &Timeline{Lines: []Line{
		{Time: 8 * time.Second, Text: "late start"},
	}}

	if got := timeline.LineAt(2 * time.Second); got != 0 {
		t.Errorf("LineAt(2s) = %d, want 0 (first entry active before its timestamp)", got)
	}
}

func TestTimeline_LineAt_Empty(t *testing.T) {
	timeline := &Timeline{}

	if got := timeline.LineAt(5 * time.Second); got != -1 {
		t.Errorf("LineAt() on empty timeline = %d, want -1", got)
	}
}

func TestSentinels(t *testing.T) {
	nf := NotFound()
	if nf.Status != StatusNotFound || len(nf.Lines) != 1 || nf.Lines[0].Text != NotFoundText {
		t.Errorf("NotFound() = %+v", nf)
	}

	failed := Failed()
	if failed.Status != StatusFailed || len(failed.Lines) != 1 || failed.Lines[0].Text != LoadFailedText {
		t.Errorf("Failed() = %+v", failed)
	}

	inst := Instrumental()
	if inst.Status != StatusInstrumental || len(inst.Lines) != 0 {
		t.Errorf("Instrumental() = %+v", inst)
	}
	if inst.LineAt(0) != -1 {
		t.Error("instrumental timeline should have no active entry")
	}
}

func TestPlain_SingleEntryFullText(t *testing.T) {
	timeline := Plain("line one\nline two\n")

	if timeline.Status != StatusPlain {
		t.Errorf("Status = %v, want StatusPlain", timeline.Status)
	}
	if len(timeline.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(timeline.Lines))
	}
	if timeline.Lines[0].Time != 0 {
		t.Errorf("Lines[0].Time = %v, want 0", timeline.Lines[0].Time)
	}
	if timeline.Lines[0].Text != "line one\nline two" {
		t.Errorf("Lines[0].Text = %q, want full text", timeline.Lines[0].Text)
	}
}
