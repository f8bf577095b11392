package domain

import "time"

// Idempotency records the order produced by a previously processed
// POST /orders request, keyed by (owner, key). Owner is the chat id supplied
// by the caller. A retried request with the same key returns the recorded
// order instead of creating a second one.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Owner     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_owner_key,priority:1"`
	Key       string    `gorm:"column:idem_key;type:varchar(128);not null;uniqueIndex:ux_owner_key,priority:2"`
	OrderID   uint64    `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
