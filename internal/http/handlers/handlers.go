// Package handlers – wiring
//
// Handlers are transport-thin: they validate input, call application
// services through the narrow interfaces below, and translate results and
// service errors into HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// CatalogService answers song queries from the in-memory catalog.
type CatalogService interface {
	List(limit int) []domain.Song
	ByTitle(q string, limit int) ([]domain.Song, error)
	ByArtist(q string, limit int) ([]domain.Song, error)
	WithBacking(v bool, limit int) []domain.Song
	Search(q string, p services.SearchParams) ([]catalog.Match, error)
	Get(id int) (domain.Song, error)
}

// UserService is the user registry.
type UserService interface {
	Register(ctx context.Context, chatID int64, table int, p services.Profile) (*domain.User, bool, error)
	Reset(ctx context.Context, chatID int64) error
	PromoteToAdmin(ctx context.Context, chatID int64, secret string) (*domain.User, error)
	Authenticate(secret string) error
	Get(ctx context.Context, chatID int64) (*domain.User, error)
}

// OrderService is the order ledger.
type OrderService interface {
	Create(ctx context.Context, chatID int64, songID int) (*domain.Order, error)
	Advance(ctx context.Context, orderID uint64) (*domain.Order, error)
	Cancel(ctx context.Context, orderID uint64, actor services.Actor) (*domain.Order, error)
	Get(ctx context.Context, orderID uint64) (*domain.Order, error)
	History(ctx context.Context, chatID int64, limit int) ([]domain.Order, error)
	Active(ctx context.Context) ([]domain.Order, error)
	QueueStats(ctx context.Context) (int64, *time.Time, error)
	HistoryStats(ctx context.Context, chatID int64) (int64, *time.Time, error)
}

// IdempotencyStore records placed orders per (owner, key).
type IdempotencyStore interface {
	Lookup(ctx context.Context, owner, key string, now time.Time) (uint64, bool, error)
	Save(ctx context.Context, owner, key string, orderID uint64, status int) (uint64, error)
}

// TokenIssuer signs admin bearer tokens.
type TokenIssuer interface {
	Issue(subject, role string) (string, time.Time, error)
}

// OrderNotifier is told about every newly placed order, e.g. to ping staff
// in the chat. It must not block.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, o *domain.Order)
}

// Deps bundles the services the handlers depend on. Idem, Tokens and
// Notifier are optional.
type Deps struct {
	Catalog  CatalogService
	Users    UserService
	Orders   OrderService
	Idem     IdempotencyStore
	Tokens   TokenIssuer
	Notifier OrderNotifier
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	catalog  CatalogService
	users    UserService
	orders   OrderService
	idem     IdempotencyStore
	tokens   TokenIssuer
	notifier OrderNotifier
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		catalog:  d.Catalog,
		users:    d.Users,
		orders:   d.Orders,
		idem:     d.Idem,
		tokens:   d.Tokens,
		notifier: d.Notifier,
	}
}
