// Package library maintains the scanned music library: an incremental,
// mtime-keyed index of the configured source directories.
package library

import (
	"database/sql"

	dbutil "github.com/merkezekre2020/musix/internal/db"
	"github.com/merkezekre2020/musix/internal/playlist"
)

type Track struct {
	ID          int64
	Path        string
	Mtime       int64
	Artist      string
	AlbumArtist string
	Album       string
	Title       string
	TrackNumber int
	Year        int
	Genre       string
}

// PlaylistTrack converts a library track to its queue representation.
func (t Track) PlaylistTrack() playlist.Track {
	return playlist.Track{
		ID:          t.ID,
		Path:        t.Path,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		TrackNumber: t.TrackNumber,
	}
}

type Album struct {
	Name string
	Year int
}

type Library struct {
	db *sql.DB
}

func New(db *sql.DB) *Library {
	return &Library{db: db}
}

func (l *Library) Artists() ([]string, error) {
	rows, err := l.db.Query(`
		SELECT DISTINCT album_artist FROM library_tracks ORDER BY album_artist COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []string
	for rows.Next() {
		var artist string
		if err := rows.Scan(&artist); err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	return artists, rows.Err()
}

func (l *Library) Albums(albumArtist string) ([]Album, error) {
	rows, err := l.db.Query(`
		SELECT album, MAX(year) as year
		FROM library_tracks
		WHERE album_artist = ?
		GROUP BY album
		ORDER BY (year IS NULL OR year = 0), year, album COLLATE NOCASE
	`, albumArtist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var a Album
		var year sql.NullInt64
		if err := rows.Scan(&a.Name, &year); err != nil {
			return nil, err
		}
		a.Year = int(year.Int64)
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (l *Library) Tracks(albumArtist, album string) ([]Track, error) {
	rows, err := l.db.Query(`
		SELECT id, path, mtime, artist, album_artist, album, title, track_number, year, genre
		FROM library_tracks
		WHERE album_artist = ? AND album = ?
		ORDER BY track_number, title COLLATE NOCASE
	`, albumArtist, album)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTracks(rows)
}

// AllTracks returns every track in the library, ordered for display.
func (l *Library) AllTracks() ([]Track, error) {
	rows, err := l.db.Query(`
		SELECT id, path, mtime, artist, album_artist, album, title, track_number, year, genre
		FROM library_tracks
		ORDER BY album_artist COLLATE NOCASE, (year IS NULL OR year = 0), year,
			album COLLATE NOCASE, track_number, title COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTracks(rows)
}

func scanTracks(rows *sql.Rows) ([]Track, error) {
	var tracks []Track
	for rows.Next() {
		var t Track
		var trackNum, year sql.NullInt64
		var genre sql.NullString

		if err := rows.Scan(&t.ID, &t.Path, &t.Mtime, &t.Artist, &t.AlbumArtist, &t.Album, &t.Title,
			&trackNum, &year, &genre); err != nil {
			return nil, err
		}
		t.TrackNumber = int(dbutil.NullInt64Value(trackNum))
		t.Year = int(dbutil.NullInt64Value(year))
		t.Genre = dbutil.NullStringValue(genre)
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (l *Library) TrackCount() (int, error) {
	var count int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM library_tracks`).Scan(&count)
	return count, err
}

func (l *Library) ArtistCount() (int, error) {
	var count int
	err := l.db.QueryRow(`SELECT COUNT(DISTINCT album_artist) FROM library_tracks`).Scan(&count)
	return count, err
}

func (l *Library) AlbumCount() (int, error) {
	var count int
	err := l.db.QueryRow(`SELECT COUNT(DISTINCT album_artist || album) FROM library_tracks`).Scan(&count)
	return count, err
}
