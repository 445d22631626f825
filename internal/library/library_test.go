package library

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/merkezekre2020/musix/internal/state"
	"github.com/merkezekre2020/musix/internal/tags"
)

func setupTestLibrary(t *testing.T) *Library {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := state.OpenDB(db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return New(db)
}

func insertTrack(t *testing.T, l *Library, path string, tag tags.Tag) {
	t.Helper()
	if err := l.upsertTrack(path, 1000, &tag); err != nil {
		t.Fatalf("upsertTrack(%s) failed: %v", path, err)
	}
}

func TestUpsertAndQuery(t *testing.T) {
	l := setupTestLibrary(t)

	insertTrack(t, l, "/music/a/1.mp3", tags.Tag{
		Artist: "Artist A", AlbumArtist: "Artist A", Album: "First", Title: "Opener",
		TrackNumber: 1, Date: "2001",
	})
	insertTrack(t, l, "/music/a/2.mp3", tags.Tag{
		Artist: "Artist A", AlbumArtist: "Artist A", Album: "First", Title: "Closer",
		TrackNumber: 2, Date: "2001",
	})
	insertTrack(t, l, "/music/b/1.flac", tags.Tag{
		Artist: "Artist B", AlbumArtist: "Artist B", Album: "Second", Title: "Single",
		TrackNumber: 1, Date: "2010", Genre: "Jazz",
	})

	count, err := l.TrackCount()
	if err != nil {
		t.Fatalf("TrackCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("TrackCount = %d, want 3", count)
	}

	artists, err := l.Artists()
	if err != nil {
		t.Fatalf("Artists failed: %v", err)
	}
	if len(artists) != 2 || artists[0] != "Artist A" || artists[1] != "Artist B" {
		t.Errorf("Artists = %v, want [Artist A, Artist B]", artists)
	}

	albums, err := l.Albums("Artist A")
	if err != nil {
		t.Fatalf("Albums failed: %v", err)
	}
	if len(albums) != 1 || albums[0].Name != "First" || albums[0].Year != 2001 {
		t.Errorf("Albums = %+v, want [First (2001)]", albums)
	}

	albumTracks, err := l.Tracks("Artist A", "First")
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(albumTracks) != 2 {
		t.Fatalf("Tracks returned %d rows, want 2", len(albumTracks))
	}
	if albumTracks[0].Title != "Opener" || albumTracks[1].Title != "Closer" {
		t.Errorf("tracks not in track-number order: %s, %s", albumTracks[0].Title, albumTracks[1].Title)
	}

	second, err := l.Tracks("Artist B", "Second")
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(second) != 1 || second[0].Genre != "Jazz" || second[0].Year != 2010 {
		t.Errorf("Tracks(Artist B, Second) = %+v, want one Jazz/2010 track", second)
	}

	if n, _ := l.ArtistCount(); n != 2 {
		t.Errorf("ArtistCount = %d, want 2", n)
	}
	if n, _ := l.AlbumCount(); n != 2 {
		t.Errorf("AlbumCount = %d, want 2", n)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	l := setupTestLibrary(t)

	insertTrack(t, l, "/music/1.mp3", tags.Tag{
		Artist: "X", AlbumArtist: "X", Album: "Old", Title: "Old Title",
	})
	insertTrack(t, l, "/music/1.mp3", tags.Tag{
		Artist: "X", AlbumArtist: "X", Album: "New", Title: "New Title",
	})

	all, err := l.AllTracks()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("AllTracks returned %d rows, want 1 (upsert, not insert)", len(all))
	}
	if all[0].Album != "New" || all[0].Title != "New Title" {
		t.Errorf("track = %+v, want updated metadata", all[0])
	}
}

func TestAllTracksOrdering(t *testing.T) {
	l := setupTestLibrary(t)

	insertTrack(t, l, "/music/z.mp3", tags.Tag{
		Artist: "Zed", AlbumArtist: "Zed", Album: "Z Album", Title: "Z Song", TrackNumber: 1,
	})
	insertTrack(t, l, "/music/a.mp3", tags.Tag{
		Artist: "Abel", AlbumArtist: "Abel", Album: "A Album", Title: "A Song", TrackNumber: 1,
	})

	all, err := l.AllTracks()
	if err != nil {
		t.Fatalf("AllTracks failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("AllTracks returned %d rows, want 2", len(all))
	}
	if all[0].AlbumArtist != "Abel" {
		t.Errorf("first track artist = %q, want Abel", all[0].AlbumArtist)
	}
}

func TestPlaylistTrackConversion(t *testing.T) {
	track := Track{
		ID: 7, Path: "/music/x.mp3", Title: "X", Artist: "Y", Album: "Z", TrackNumber: 4,
	}
	p := track.PlaylistTrack()
	if p.ID != 7 || p.Path != "/music/x.mp3" || p.Title != "X" || p.Artist != "Y" ||
		p.Album != "Z" || p.TrackNumber != 4 {
		t.Errorf("PlaylistTrack = %+v", p)
	}
}

func TestRefreshRemovesDeletedFiles(t *testing.T) {
	l := setupTestLibrary(t)
	src := t.TempDir()

	// Index a track whose file no longer exists under the source.
	gone := filepath.Join(src, "gone.mp3")
	insertTrack(t, l, gone, tags.Tag{
		Artist: "A", AlbumArtist: "A", Album: "B", Title: "Gone",
	})

	progress := make(chan ScanProgress, 128)
	if err := l.Refresh([]string{src}, progress); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var last ScanProgress
	for p := range progress {
		last = p
	}
	if last.Phase != "done" {
		t.Errorf("last progress phase = %q, want done", last.Phase)
	}
	if last.Stats == nil || last.Stats.Removed != 1 {
		t.Errorf("stats = %+v, want one removal", last.Stats)
	}

	count, _ := l.TrackCount()
	if count != 0 {
		t.Errorf("TrackCount = %d, want 0 after cleanup", count)
	}
}

// writeTaggedFile writes a minimal ID3v2.3 tag so the tag reader sees a
// title, artist and album.
func writeTaggedFile(t *testing.T, path, title, artist, album string) {
	t.Helper()

	frame := func(id, text string) []byte {
		payload := append([]byte{0}, []byte(text)...) // latin-1 text
		b := append([]byte(id),
			byte(len(payload)>>24), byte(len(payload)>>16), byte(len(payload)>>8), byte(len(payload)),
			0, 0)
		return append(b, payload...)
	}

	var frames []byte
	frames = append(frames, frame("TIT2", title)...)
	frames = append(frames, frame("TPE1", artist)...)
	frames = append(frames, frame("TALB", album)...)

	size := len(frames)
	data := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	if err := os.WriteFile(path, append(data, frames...), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshSkipsUnchangedFiles(t *testing.T) {
	l := setupTestLibrary(t)
	src := t.TempDir()
	path := filepath.Join(src, "song.mp3")
	writeTaggedFile(t, path, "Song", "Artist", "Album")

	scan := func() *ScanStats {
		t.Helper()
		progress := make(chan ScanProgress, 128)
		if err := l.Refresh([]string{src}, progress); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		var stats *ScanStats
		for p := range progress {
			if p.Stats != nil {
				stats = p.Stats
			}
		}
		return stats
	}

	stats := scan()
	if stats == nil || stats.Added != 1 {
		t.Fatalf("first scan stats = %+v, want one addition", stats)
	}

	var updatedAt int64
	row := l.db.QueryRow(`SELECT updated_at FROM library_tracks WHERE path = ?`, path)
	if err := row.Scan(&updatedAt); err != nil {
		t.Fatalf("track not indexed: %v", err)
	}

	// Second pass: same mtime, the file must be skipped without a re-read.
	stats = scan()
	if stats.Added != 0 || stats.Updated != 0 {
		t.Errorf("second scan stats = %+v, want unchanged file skipped", stats)
	}
	var after int64
	_ = l.db.QueryRow(`SELECT updated_at FROM library_tracks WHERE path = ?`, path).Scan(&after)
	if after != updatedAt {
		t.Errorf("updated_at changed from %d to %d on a skipped file", updatedAt, after)
	}

	// A touched mtime makes the file eligible again.
	touched := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, touched, touched); err != nil {
		t.Fatal(err)
	}
	stats = scan()
	if stats.Added != 0 || stats.Updated != 1 {
		t.Errorf("post-touch scan stats = %+v, want one update", stats)
	}
}

func TestRefreshSkipsUnreadableFiles(t *testing.T) {
	l := setupTestLibrary(t)
	src := t.TempDir()

	// Not a real MP3; tag reading fails and the file is skipped.
	if err := os.WriteFile(filepath.Join(src, "bogus.mp3"), []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-music files are ignored during discovery.
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	progress := make(chan ScanProgress, 128)
	if err := l.Refresh([]string{src}, progress); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	for range progress {
	}

	count, _ := l.TrackCount()
	if count != 0 {
		t.Errorf("TrackCount = %d, want 0 (unreadable files skipped)", count)
	}
}
