package sqlite

import (
	"errors"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryPath is an in-process database shared by every connection of the pool.
const MemoryPath = "file::memory:?cache=shared"

// Open opens a SQLite database for local runs and repository tests. SQLite has a single writer,
// so the pool is capped at one connection and transactions serialize.
func Open(path string) (*gorm.DB, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, func() {}, errors.New("sqlite path is empty")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, func() {}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, func() {}, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, func() {}, err
	}
	return db, func() { _ = sqlDB.Close() }, nil
}
