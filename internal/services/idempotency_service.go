// Package services – IdempotencyService
//
// This file records the outcome of order placements keyed by a client
// supplied Idempotency-Key so retried requests return the original order.
// Records expire after TTL and are purged at startup.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/repo"
)

// DefaultIdempotencyTTL is used when no TTL is configured.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService stores (owner, key) → order id mappings.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// NewIdempotencyService constructs an IdempotencyService; a non-positive ttl
// falls back to DefaultIdempotencyTTL.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{DB: db, TTL: ttl}
}

// Lookup returns the order recorded for (owner, key) if the record is still
// valid at now.
func (s *IdempotencyService) Lookup(ctx context.Context, owner, key string, now time.Time) (uint64, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, owner, key, now)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return rec.OrderID, true, nil
}

// Save records orderID for (owner, key). A concurrent request that already
// recorded the pair wins; Save then reports the stored order id.
func (s *IdempotencyService) Save(ctx context.Context, owner, key string, orderID uint64, status int) (uint64, error) {
	_, err := repo.CreateIdempotency(ctx, s.DB, owner, key, orderID, status, s.TTL)
	if err == nil {
		return orderID, nil
	}
	if errors.Is(err, repo.ErrDuplicate) {
		id, found, lerr := s.Lookup(ctx, owner, key, time.Now().UTC())
		if lerr != nil {
			return 0, lerr
		}
		if found {
			return id, nil
		}
	}
	return 0, err
}

// Purge deletes expired records.
func (s *IdempotencyService) Purge(ctx context.Context, now time.Time) (int64, error) {
	return repo.PurgeIdempotency(ctx, s.DB, now)
}
