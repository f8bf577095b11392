package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// staticSecret is a SecretVerifier that matches one plain value.
type staticSecret string

func (s staticSecret) Verify(p string) bool { return p != "" && p == string(s) }

func seedSongs(t *testing.T, db *gorm.DB, songs ...domain.Song) {
	t.Helper()
	if err := repo.UpsertSongs(context.Background(), db, songs); err != nil {
		t.Fatalf("seed songs: %v", err)
	}
}

var (
	yesterday = domain.Song{ID: 1, Title: "Yesterday", Artist: "The Beatles", HasBacking: true}
	letItBe   = domain.Song{ID: 2, Title: "Let It Be", Artist: "The Beatles"}
	bohemian  = domain.Song{ID: 3, Title: "Bohemian Rhapsody", Artist: "Queen", HasBacking: true}
)

type fixture struct {
	db     *gorm.DB
	users  *UserService
	orders *OrderService
}

func newFixture(t *testing.T, maxActive int) fixture {
	t.Helper()
	db := newTestDB(t)
	seedSongs(t, db, yesterday, letItBe, bohemian)
	return fixture{
		db:     db,
		users:  NewUserService(db, staticSecret("letmesing")),
		orders: NewOrderService(db, maxActive),
	}
}

func (f fixture) register(t *testing.T, chatID int64, table int) *domain.User {
	t.Helper()
	u, _, err := f.users.Register(context.Background(), chatID, table, Profile{})
	if err != nil {
		t.Fatalf("Register(%d, %d): %v", chatID, table, err)
	}
	return u
}
