package library

import (
	"database/sql"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	dbutil "github.com/merkezekre2020/musix/internal/db"
	"github.com/merkezekre2020/musix/internal/tags"
)

// processFiles processes files in parallel and updates the database and stats.
func (l *Library) processFiles(
	filesToProcess []fileInfo,
	fileIsNew map[string]bool,
	stats *ScanStats,
	progress chan<- ScanProgress,
) {
	total := len(filesToProcess)
	var processed atomic.Int64

	// Create work channel and results channel
	workCh := make(chan fileInfo, total)
	resultCh := make(chan trackResult, total)

	// Start workers
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for f := range workCh {
				// Extract metadata
				tag, err := tags.Read(f.path)
				if err != nil {
					processed.Add(1)
					continue
				}

				// Skip files without artist or album
				if tag.Artist == "" || tag.Album == "" {
					processed.Add(1)
					continue
				}

				resultCh <- trackResult{
					path:  f.path,
					mtime: f.mtime,
					tag:   tag,
					isNew: fileIsNew[f.path],
				}
				processed.Add(1)
			}
		})
	}

	// Send work to workers
	go func() {
		for _, f := range filesToProcess {
			workCh <- f
		}
		close(workCh)
	}()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				current := int(processed.Load())
				progress <- ScanProgress{
					Phase:   "processing",
					Current: current,
					Total:   total,
				}
			case <-done:
				return
			}
		}
	}()

	// Close results channel when all workers are done
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect results and insert into DB (sequential to avoid SQLite issues)
	for result := range resultCh {
		_ = l.upsertTrack(result.path, result.mtime, result.tag)
		if result.isNew {
			stats.Added++
		} else {
			stats.Updated++
		}
	}

	close(done)
	progress <- ScanProgress{Phase: "processing", Current: total, Total: total}
}

// existingTracks returns a map of path->mtime for all indexed tracks under
// the given sources.
func (l *Library) existingTracks(sources []string) (map[string]int64, error) {
	rows, err := l.db.Query(`SELECT path, mtime FROM library_tracks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := make(map[string]int64)
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, err
		}
		// Only include tracks that belong to the sources being scanned
		for _, src := range sources {
			if strings.HasPrefix(path, src) {
				tracks[path] = mtime
				break
			}
		}
	}
	return tracks, rows.Err()
}

// upsertTrack inserts or updates a track in the database.
// Uses file mtime for added_at on new tracks (preserved across copies).
func (l *Library) upsertTrack(path string, mtime int64, tag *tags.Tag) error {
	now := time.Now().Unix()
	_, err := l.db.Exec(`
		INSERT INTO library_tracks (path, mtime, artist, album_artist, album, title, track_number, year, genre, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			artist = excluded.artist,
			album_artist = excluded.album_artist,
			album = excluded.album,
			title = excluded.title,
			track_number = excluded.track_number,
			year = excluded.year,
			genre = excluded.genre,
			updated_at = excluded.updated_at
	`, path, mtime, tag.Artist, tag.AlbumArtist, tag.Album, tag.Title, tag.TrackNumber, tag.Year(), tag.Genre, mtime, now)
	return err
}

// deleteTracksByPath removes tracks from the library in a single transaction.
func (l *Library) deleteTracksByPath(paths []string) error {
	return dbutil.WithTx(l.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`DELETE FROM library_tracks WHERE path = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, path := range paths {
			if _, err := stmt.Exec(path); err != nil {
				return err
			}
		}
		return nil
	})
}
