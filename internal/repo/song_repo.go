// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Song model.
//
// Songs are written once at startup from the catalog file and are read by
// the order ledger to validate foreign keys.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// songBatchSize bounds the rows per INSERT when syncing the catalog.
const songBatchSize = 200

// UpsertSongs inserts songs, overwriting the catalog fields of rows that
// already exist with the same id.
func UpsertSongs(ctx context.Context, db *gorm.DB, songs []domain.Song) error {
	if len(songs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "artist", "has_backing", "kind", "updated_at"}),
		}).
		CreateInBatches(songs, songBatchSize).Error
}

// ListSongs returns every stored song ordered by id.
func ListSongs(ctx context.Context, db *gorm.DB) ([]domain.Song, error) {
	var out []domain.Song
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// GetSong fetches a song by id, or ErrNotFound.
func GetSong(ctx context.Context, db *gorm.DB, id int) (*domain.Song, error) {
	var s domain.Song
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSongs returns the number of stored songs.
func CountSongs(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Song{}).Count(&n).Error
	return n, err
}
