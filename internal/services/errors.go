// Package services defines the business logic for the song catalog, venue
// users and song-request orders. This file centralizes the service-level
// error values so they can be returned consistently by service methods and
// checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// by the HTTP handlers and the chat front-end.
package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/repo"
)

// ErrNotFound is the parent of every "unknown id" error below; match it
// with errors.Is when the kind of entity does not matter.
var ErrNotFound = errors.New("not found")

var (
	// ErrSongNotFound indicates that no catalog song has the requested id.
	ErrSongNotFound = fmt.Errorf("song %w", ErrNotFound)

	// ErrOrderNotFound indicates that no order has the requested id.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)

	// ErrUserNotFound indicates that no user is known under the chat id.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

var (
	// ErrNotRegistered is returned when an order is attempted by a user
	// without a table assignment.
	ErrNotRegistered = errors.New("user is not registered at a table")

	// ErrAuth is returned when the supplied admin secret does not match.
	ErrAuth = errors.New("invalid admin secret")

	// ErrInvalidTransition is returned for an order status change the state
	// machine does not allow, including one lost to a concurrent update.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrForbidden is returned when the actor is neither the order owner nor
	// an admin.
	ErrForbidden = errors.New("not allowed to modify this order")

	// ErrInvalidTable is returned for a non-positive table number.
	ErrInvalidTable = errors.New("table number must be a positive integer")

	// ErrInvalidName is returned for a blank display name.
	ErrInvalidName = errors.New("display name must not be empty")

	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrTooManyOrders is returned when the user already has the maximum
	// number of active orders.
	ErrTooManyOrders = errors.New("too many active orders")
)

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
