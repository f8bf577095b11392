// Package services – OrderService
//
// This file implements the order ledger. Orders move through a small state
// machine:
//
//	pending -> in_progress -> completed
//	pending | in_progress -> cancelled
//
// Every transition is a conditional update on the current status inside a
// transaction, so two staff members acting on the same order cannot both
// apply a change: the second one observes ErrInvalidTransition.
//
// Observability: public methods are OpenTelemetry-instrumented and committed
// changes are counted in Prometheus.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/repo"
)

// Actor identifies who requests a cancellation. Admin is set by callers
// that have already authenticated staff (e.g. a verified admin token);
// otherwise the actor's stored role is consulted.
type Actor struct {
	ChatID int64
	Admin  bool
}

// OrderService coordinates order creation and status transitions.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// MaxActive caps pending+in_progress orders per user; 0 disables it.
	MaxActive int
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, maxActive int) *OrderService {
	return &OrderService{DB: db, MaxActive: maxActive}
}

// Create places a pending order for songID on behalf of the user behind
// chatID. The user must be registered at a table.
func (s *OrderService) Create(ctx context.Context, chatID int64, songID int) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int("song.id", songID),
		),
	)
	defer span.End()

	var out *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUserByChatID(ctx, tx, chatID)
		if err != nil {
			if isNotFound(err) {
				return ErrNotRegistered
			}
			return err
		}
		if !u.Registered() {
			return ErrNotRegistered
		}

		song, err := repo.GetSong(ctx, tx, songID)
		if err != nil {
			if isNotFound(err) {
				return ErrSongNotFound
			}
			return err
		}

		if s.MaxActive > 0 {
			n, err := repo.CountOrdersByUserStatus(ctx, tx, u.ID, domain.ActiveStatuses)
			if err != nil {
				return err
			}
			if n >= int64(s.MaxActive) {
				return ErrTooManyOrders
			}
		}

		o := &domain.Order{
			UserID:      u.ID,
			SongID:      song.ID,
			TableNumber: *u.TableNumber,
			Status:      domain.StatusPending,
		}
		if err := repo.CreateOrder(ctx, tx, o); err != nil {
			return err
		}
		o.User, o.Song = u, song
		out = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	ordersCreated.Inc()
	span.SetAttributes(attribute.Int64("order.id", int64(out.ID)))
	return out, nil
}

// Advance moves the order one step forward: pending to in_progress, or
// in_progress to completed. Terminal orders yield ErrInvalidTransition.
// Callers are expected to have authorised the actor as staff.
func (s *OrderService) Advance(ctx context.Context, orderID uint64) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Advance", trace.WithAttributes(attribute.Int64("order.id", int64(orderID))))
	defer span.End()

	return s.transition(ctx, orderID, func(o *domain.Order) (domain.OrderStatus, error) {
		next, ok := o.Status.Next()
		if !ok {
			return "", ErrInvalidTransition
		}
		return next, nil
	})
}

// Cancel cancels a pending or in-progress order. Only the owner or an admin
// may cancel; anyone else gets ErrForbidden.
func (s *OrderService) Cancel(ctx context.Context, orderID uint64, actor Actor) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(
			attribute.Int64("order.id", int64(orderID)),
			attribute.Int64("actor.chat_id", actor.ChatID),
			attribute.Bool("actor.admin", actor.Admin),
		),
	)
	defer span.End()

	return s.transition(ctx, orderID, func(o *domain.Order) (domain.OrderStatus, error) {
		if !s.mayCancel(ctx, o, actor) {
			return "", ErrForbidden
		}
		if !o.Status.CanCancel() {
			return "", ErrInvalidTransition
		}
		return domain.StatusCancelled, nil
	})
}

func (s *OrderService) mayCancel(ctx context.Context, o *domain.Order, actor Actor) bool {
	if actor.Admin {
		return true
	}
	if o.User != nil && o.User.ChatID == actor.ChatID {
		return true
	}
	u, err := repo.GetUserByChatID(ctx, s.DB, actor.ChatID)
	return err == nil && u.IsAdmin()
}

// transition loads the order, asks decide for the target status and applies
// it only if the order still has the status decide saw.
func (s *OrderService) transition(ctx context.Context, orderID uint64, decide func(*domain.Order) (domain.OrderStatus, error)) (*domain.Order, error) {
	span := trace.SpanFromContext(ctx)

	o, err := s.Get(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	to, err := decide(o)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionOrder(ctx, tx, o.ID, o.Status, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.from", string(o.Status)),
		attribute.String("order.to", string(to)),
	)
	orderTransitions.WithLabelValues(string(to)).Inc()
	o.Status = to
	return o, nil
}

// Get returns the order with song and user, or ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, orderID uint64) (*domain.Order, error) {
	o, err := repo.GetOrder(ctx, s.DB, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// History lists the user's orders, most recent first. A non-positive limit
// returns everything.
func (s *OrderService) History(ctx context.Context, chatID int64, limit int) ([]domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "History", trace.WithAttributes(attribute.Int64("chat.id", chatID)))
	defer span.End()

	u, err := repo.GetUserByChatID(ctx, s.DB, chatID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.ListOrdersByUser(ctx, s.DB, u.ID, limit)
}

// Active lists pending and in-progress orders, oldest first: the venue
// queue as staff work through it.
func (s *OrderService) Active(ctx context.Context) ([]domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Active")
	defer span.End()

	return repo.ListOrdersByStatus(ctx, s.DB, domain.ActiveStatuses)
}

// ActiveFor lists the user's own pending and in-progress orders, oldest
// first.
func (s *OrderService) ActiveFor(ctx context.Context, chatID int64) ([]domain.Order, error) {
	all, err := s.History(ctx, chatID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status.CanCancel() {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// QueueStats returns the size of the active queue and its last change time
// for ETag computation.
func (s *OrderService) QueueStats(ctx context.Context) (int64, *time.Time, error) {
	return repo.QueueStats(ctx, s.DB)
}

// HistoryStats returns the number of orders the user has and their last
// change time for ETag computation.
func (s *OrderService) HistoryStats(ctx context.Context, chatID int64) (int64, *time.Time, error) {
	u, err := repo.GetUserByChatID(ctx, s.DB, chatID)
	if err != nil {
		if isNotFound(err) {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, err
	}
	return repo.UserOrdersStats(ctx, s.DB, u.ID)
}
