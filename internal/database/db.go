package database

import (
	"fmt"
	"os"
	"path/filepath"

	"hiredalways/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenAudit opens the SQLite audit database at path and migrates its tables.
// An empty path disables auditing and returns a nil DB.
func OpenAudit(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, nil
	}

	// create the data directory
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	// migrate audit tables
	if err := db.AutoMigrate(&model.LicenseCheck{}, &model.OperationLog{}, &model.AdminLoginLog{}); err != nil {
		return fmt.Errorf("migrate audit database: %w", err)
	}
	return nil
}

// CloseAudit releases the underlying connection pool.
func CloseAudit(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
