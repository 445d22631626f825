package state

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDB_InitializesSchema(t *testing.T) {
	db := openTestDB(t)

	m, err := OpenDB(db)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}

	// library_tracks must exist and accept a row
	_, err = m.DB().Exec(`
		INSERT INTO library_tracks (path, mtime, artist, album_artist, album, title, added_at, updated_at)
		VALUES ('/music/a.mp3', 1, 'Artist', 'Artist', 'Album', 'A', 1, 1)
	`)
	if err != nil {
		t.Fatalf("insert into library_tracks failed: %v", err)
	}

	var version int
	if err := m.DB().QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("schema_version query failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpenDB_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if _, err := OpenDB(db); err != nil {
		t.Fatalf("first OpenDB failed: %v", err)
	}
	if _, err := OpenDB(db); err != nil {
		t.Fatalf("second OpenDB failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("schema_version rows = %d, want 1", count)
	}
}

func TestPathUnique(t *testing.T) {
	db := openTestDB(t)
	m, err := OpenDB(db)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}

	insert := `
		INSERT INTO library_tracks (path, mtime, artist, album_artist, album, title, added_at, updated_at)
		VALUES ('/music/a.mp3', 1, 'Artist', 'Artist', 'Album', 'A', 1, 1)
	`
	if _, err := m.DB().Exec(insert); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := m.DB().Exec(insert); err == nil {
		t.Error("duplicate path insert should fail")
	}
}

func TestManager_DB(t *testing.T) {
	db := openTestDB(t)

	m, err := OpenDB(db)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	if m.DB() != db {
		t.Error("DB() should return the underlying database")
	}
}
