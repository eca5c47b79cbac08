package database

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// OpenTestAudit opens a throwaway audit database under t.TempDir and closes
// it when the test finishes.
func OpenTestAudit(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := OpenAudit(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("failed to open test audit database: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseAudit(db)
	})
	return db
}
