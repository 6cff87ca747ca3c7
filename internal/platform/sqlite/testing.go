package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTest opens a migrated database in t.TempDir() plus its writer; both are
// closed when the test finishes.
func OpenTest(t testing.TB) (*sql.DB, *Worker) {
	t.Helper()

	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "solmeet.db")})
	if err != nil {
		t.Fatalf("sqlite.OpenTest: %v", err)
	}
	w := NewWorker(db)
	t.Cleanup(func() {
		w.Close()
		_ = db.Close()
	})
	return db, w
}
