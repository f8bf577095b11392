package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// newTestDB opens a per-test in-memory database with foreign keys enforced.
// Passing no models leaves the schema empty so error paths can be tested.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newTestDB(t, &domain.Song{}, &domain.User{}, &domain.Order{}, &domain.Idempotency{})
}

func seedSong(t *testing.T, db *gorm.DB, id int, title, artist string) domain.Song {
	t.Helper()
	s := domain.Song{ID: id, Title: title, Artist: artist}
	if err := UpsertSongs(context.Background(), db, []domain.Song{s}); err != nil {
		t.Fatalf("seed song: %v", err)
	}
	return s
}

func seedUser(t *testing.T, db *gorm.DB, chatID int64, table *int) *domain.User {
	t.Helper()
	u := &domain.User{ChatID: chatID, TableNumber: table}
	if err := CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func ptr(v int) *int { return &v }
