// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order model.
//
// Status changes go through TransitionOrder, a conditional update that only
// applies when the row is still in the expected state. Callers detect a lost
// race by a false result.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// CreateOrder inserts o and fills its autoincrement id.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	if o.Status == "" {
		o.Status = domain.StatusPending
	}
	return db.WithContext(ctx).Create(o).Error
}

// GetOrder fetches an order with its song and user, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Song").
		Preload("User").
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersByUser returns the user's orders, most recent first, with songs
// preloaded. A non-positive limit returns all of them.
func ListOrdersByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Order, error) {
	q := db.WithContext(ctx).
		Preload("Song").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Order
	err := q.Find(&out).Error
	return out, err
}

// ListOrdersByStatus returns orders in any of statuses, oldest first, with
// song and user preloaded.
func ListOrdersByStatus(ctx context.Context, db *gorm.DB, statuses []domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Preload("Song").
		Preload("User").
		Where("status IN ?", statuses).
		Order("created_at asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountOrdersByUserStatus counts the user's orders in any of statuses.
func CountOrdersByUserStatus(ctx context.Context, db *gorm.DB, userID string, statuses []domain.OrderStatus) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Count(&n).Error
	return n, err
}

// TransitionOrder moves order id from one status to another. It reports
// false, without error, when the order was not in the from state.
func TransitionOrder(ctx context.Context, db *gorm.DB, id uint64, from, to domain.OrderStatus) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
