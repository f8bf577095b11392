// Package services – UserService
//
// This file implements the user registry: it maps a chat identity to a
// table number and a role. Registration is idempotent once a table is set;
// only an explicit reset clears it. Elevation to admin is gated by the
// shared admin secret and never happens on a mismatch.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/repo"
)

// SecretVerifier checks a candidate admin secret.
type SecretVerifier interface {
	Verify(plain string) bool
}

// Profile carries optional display data captured at registration.
type Profile struct {
	Username    string
	DisplayName string
}

// UserService owns registration and role changes for venue users.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Secret verifies the admin password; nil rejects every attempt.
	Secret SecretVerifier
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, secret SecretVerifier) *UserService {
	return &UserService{DB: db, Secret: secret}
}

// Register assigns table to the user behind chatID, creating the user on
// first contact. When the user already has a table the call is a no-op and
// returns the stored user with changed=false.
func (s *UserService) Register(ctx context.Context, chatID int64, table int, p Profile) (u *domain.User, changed bool, err error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int("table", table),
		),
	)
	defer span.End()

	if table <= 0 {
		return nil, false, ErrInvalidTable
	}

	// A concurrent first registration can win the insert; retry once so the
	// loser falls through to the assign/no-op path.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cur, gerr := repo.GetUserByChatID(ctx, tx, chatID)
			switch {
			case isNotFound(gerr):
				nu := &domain.User{
					ChatID:      chatID,
					TableNumber: &table,
					Role:        domain.RoleGuest,
					Username:    clipProfile(p.Username, 64),
					DisplayName: clipProfile(p.DisplayName, 128),
				}
				if cerr := repo.CreateUser(ctx, tx, nu); cerr != nil {
					return cerr
				}
				u, changed = nu, true
				return nil
			case gerr != nil:
				return gerr
			}

			if cur.Registered() {
				u, changed = cur, false
				return nil
			}
			ok, aerr := repo.AssignTable(ctx, tx, cur.ID, table)
			if aerr != nil {
				return aerr
			}
			if ok {
				cur.TableNumber = &table
			} else if cur, aerr = repo.GetUserByChatID(ctx, tx, chatID); aerr != nil {
				return aerr
			}
			u, changed = cur, ok
			return nil
		})
		if err == nil || !isDuplicate(err) {
			break
		}
	}
	if err != nil {
		return nil, false, err
	}
	return u, changed, nil
}

// SetName records the profile of the user behind chatID before a table is
// chosen, creating an unregistered user on first contact. An empty display
// name yields ErrInvalidName.
func (s *UserService) SetName(ctx context.Context, chatID int64, p Profile) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "SetName", trace.WithAttributes(attribute.Int64("chat.id", chatID)))
	defer span.End()

	name := clipProfile(p.DisplayName, 128)
	if name == "" {
		return nil, ErrInvalidName
	}
	username := clipProfile(p.Username, 64)

	var (
		u   *domain.User
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cur, gerr := repo.GetUserByChatID(ctx, tx, chatID)
			switch {
			case isNotFound(gerr):
				nu := &domain.User{ChatID: chatID, Role: domain.RoleGuest, Username: username, DisplayName: name}
				if cerr := repo.CreateUser(ctx, tx, nu); cerr != nil {
					return cerr
				}
				u = nu
				return nil
			case gerr != nil:
				return gerr
			}
			if username == "" {
				username = cur.Username
			}
			if uerr := repo.SetUserProfile(ctx, tx, cur.ID, username, name); uerr != nil {
				return uerr
			}
			cur.Username, cur.DisplayName = username, name
			u = cur
			return nil
		})
		if err == nil || !isDuplicate(err) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return u, nil
}

// Reset clears the table assignment of the user and returns the role to
// guest. Unknown users yield ErrUserNotFound.
func (s *UserService) Reset(ctx context.Context, chatID int64) error {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Reset", trace.WithAttributes(attribute.Int64("chat.id", chatID)))
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUserByChatID(ctx, tx, chatID)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		return repo.ClearRegistration(ctx, tx, u.ID)
	})
}

// PromoteToAdmin elevates the user to admin when secret matches the
// configured admin password. On a mismatch it returns ErrAuth and the role
// is left untouched.
func (s *UserService) PromoteToAdmin(ctx context.Context, chatID int64, secret string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "PromoteToAdmin", trace.WithAttributes(attribute.Int64("chat.id", chatID)))
	defer span.End()

	var out *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUserByChatID(ctx, tx, chatID)
		if err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}
		if err := s.Authenticate(secret); err != nil {
			return err
		}
		if u.Role != domain.RoleAdmin {
			if err := repo.SetUserRole(ctx, tx, u.ID, domain.RoleAdmin); err != nil {
				return err
			}
			u.Role = domain.RoleAdmin
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Authenticate checks secret against the admin password.
func (s *UserService) Authenticate(secret string) error {
	if s.Secret == nil || !s.Secret.Verify(secret) {
		return ErrAuth
	}
	return nil
}

// Get returns the user registered under chatID or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, chatID int64) (*domain.User, error) {
	u, err := repo.GetUserByChatID(ctx, s.DB, chatID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// IsAdmin reports whether chatID belongs to an admin. Unknown users are not
// admins.
func (s *UserService) IsAdmin(ctx context.Context, chatID int64) (bool, error) {
	u, err := s.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsAdmin(), nil
}

// Admins lists every admin user.
func (s *UserService) Admins(ctx context.Context) ([]domain.User, error) {
	return repo.ListAdmins(ctx, s.DB)
}

func clipProfile(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
