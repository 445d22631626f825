package library

import (
	"os"
	"path/filepath"

	"github.com/merkezekre2020/musix/internal/tags"
)

const numWorkers = 8

// ScanProgress reports the progress of a library scan.
type ScanProgress struct {
	Phase   string // "scanning", "processing", "cleaning", "done"
	Current int
	Total   int
	Stats   *ScanStats // only populated when Phase == "done"
}

// ScanStats summarizes a completed scan.
type ScanStats struct {
	Added   int
	Updated int
	Removed int
}

// fileInfo is a discovered music file.
type fileInfo struct {
	path  string
	mtime int64
}

// trackResult is a processed music file ready for the index.
type trackResult struct {
	path  string
	mtime int64
	tag   *tags.Tag
	isNew bool
}

// Refresh performs an incremental scan of the given source directories:
// unchanged files (same mtime) are skipped, new and modified ones re-read,
// vanished ones removed from the index.
func (l *Library) Refresh(sources []string, progress chan<- ScanProgress) error {
	return l.refresh(sources, progress, false)
}

// FullRefresh rescans every file regardless of modification time. Use it to
// pick up retagged files whose mtime did not change.
func (l *Library) FullRefresh(sources []string, progress chan<- ScanProgress) error {
	return l.refresh(sources, progress, true)
}

func (l *Library) refresh(sources []string, progress chan<- ScanProgress, forceRescan bool) error {
	defer close(progress)

	stats := &ScanStats{}

	// Phase 1: walk the sources
	progress <- ScanProgress{Phase: "scanning", Current: 0, Total: 0}
	files := discoverFiles(sources, progress)
	discovered := make(map[string]struct{}, len(files))
	for _, f := range files {
		discovered[f.path] = struct{}{}
	}

	// Phase 2: diff against the index
	existing, err := l.existingTracks(sources)
	if err != nil {
		return err
	}

	filesToProcess := make([]fileInfo, 0, len(files))
	fileIsNew := make(map[string]bool)
	for _, f := range files {
		if !forceRescan {
			if mtime, ok := existing[f.path]; ok && mtime == f.mtime {
				continue // unchanged
			}
		}
		_, existed := existing[f.path]
		fileIsNew[f.path] = !existed
		filesToProcess = append(filesToProcess, f)
	}

	// Phase 3: read tags and update the index
	if len(filesToProcess) > 0 {
		l.processFiles(filesToProcess, fileIsNew, stats, progress)
	}

	// Phase 4: drop index entries whose file is gone
	progress <- ScanProgress{Phase: "cleaning", Current: 0, Total: 0}
	var removed []string
	for path := range existing {
		if _, ok := discovered[path]; !ok {
			removed = append(removed, path)
		}
	}
	if len(removed) > 0 {
		if err := l.deleteTracksByPath(removed); err != nil {
			return err
		}
		stats.Removed = len(removed)
	}

	progress <- ScanProgress{Phase: "done", Current: len(files), Total: len(files), Stats: stats}
	return nil
}

// discoverFiles walks the sources and collects music files. Unreadable
// entries are skipped so one bad directory cannot abort the scan.
func discoverFiles(sources []string, progress chan<- ScanProgress) []fileInfo {
	var files []fileInfo
	for _, src := range sources {
		_ = filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() || !tags.IsMusicFile(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files = append(files, fileInfo{path: path, mtime: info.ModTime().Unix()})
			if len(files)%100 == 0 {
				progress <- ScanProgress{Phase: "scanning", Current: len(files), Total: 0}
			}
			return nil
		})
	}
	return files
}
