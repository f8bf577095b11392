// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Users are looked up by their chat id, which is the identity both the bot
// and the HTTP surface carry. Functions are thin: no business rules, only
// persistence. Missing rows surface as ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// GetUserByChatID fetches the user registered under chatID, or ErrNotFound.
func GetUserByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u, assigning a UUID when u.ID is empty and defaulting
// the role to guest.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = domain.RoleGuest
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	return db.WithContext(ctx).Create(u).Error
}

// AssignTable sets the table of an unregistered user. It returns false when
// the user already had a table, leaving the row untouched.
func AssignTable(ctx context.Context, db *gorm.DB, userID string, table int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND table_number IS NULL", userID).
		Update("table_number", table)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetUserProfile overwrites the username and display name of the user.
func SetUserProfile(ctx context.Context, db *gorm.DB, userID, username, displayName string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"username": username, "display_name": displayName}).Error
}

// ClearRegistration removes the table assignment and demotes the user to guest.
func ClearRegistration(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"table_number": nil, "role": domain.RoleGuest}).Error
}

// SetUserRole updates the role of the user.
func SetUserRole(ctx context.Context, db *gorm.DB, userID string, role domain.Role) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("role", role).Error
}

// ListAdmins returns every user holding the admin role, ordered by chat id.
func ListAdmins(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("role = ?", domain.RoleAdmin).
		Order("chat_id asc").
		Find(&out).Error
	return out, err
}
