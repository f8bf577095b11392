// Package chat is the Telegram front-end of the venue. It turns chat
// commands, free text and inline-button callbacks into calls on the catalog,
// user and order services, and pings staff when a new request comes in.
//
// Every domain error becomes a reply; nothing a patron types can stop the
// update loop.
package chat

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Catalog answers song lookups.
type Catalog interface {
	Search(q string, p services.SearchParams) ([]catalog.Match, error)
	Get(id int) (domain.Song, error)
}

// Users is the user registry as the bot needs it.
type Users interface {
	SetName(ctx context.Context, chatID int64, p services.Profile) (*domain.User, error)
	Register(ctx context.Context, chatID int64, table int, p services.Profile) (*domain.User, bool, error)
	Reset(ctx context.Context, chatID int64) error
	PromoteToAdmin(ctx context.Context, chatID int64, secret string) (*domain.User, error)
	Get(ctx context.Context, chatID int64) (*domain.User, error)
	IsAdmin(ctx context.Context, chatID int64) (bool, error)
	Admins(ctx context.Context) ([]domain.User, error)
}

// Orders is the order ledger as the bot needs it.
type Orders interface {
	Create(ctx context.Context, chatID int64, songID int) (*domain.Order, error)
	Advance(ctx context.Context, orderID uint64) (*domain.Order, error)
	Cancel(ctx context.Context, orderID uint64, actor services.Actor) (*domain.Order, error)
	History(ctx context.Context, chatID int64, limit int) ([]domain.Order, error)
	Active(ctx context.Context) ([]domain.Order, error)
	ActiveFor(ctx context.Context, chatID int64) ([]domain.Order, error)
}

// Options tunes a Bot.
type Options struct {
	// AdminChatID receives new-order notifications in addition to admin users.
	AdminChatID int64
	// Workers bounds concurrently processed updates (default 8).
	Workers int
}

// Bot dispatches Telegram updates.
type Bot struct {
	api      Sender
	catalog  Catalog
	users    Users
	orders   Orders
	sessions SessionStore
	opts     Options
	log      zerolog.Logger
}

// New wires a Bot. A nil sessions store keeps stages in memory without
// expiry.
func New(api Sender, cat Catalog, users Users, orders Orders, sessions SessionStore, opts Options) *Bot {
	if sessions == nil {
		sessions = NewMemorySessions(0)
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &Bot{
		api:      api,
		catalog:  cat,
		users:    users,
		orders:   orders,
		sessions: sessions,
		opts:     opts,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// Run consumes updates until ctx is cancelled or the channel is closed.
// Updates are handled concurrently, at most Options.Workers at a time.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	var g errgroup.Group
	g.SetLimit(b.opts.Workers)
	defer func() { _ = g.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				b.Handle(ctx, u)
				return nil
			})
		}
	}
}

// Handle processes a single update. Panics are logged and swallowed.
func (b *Bot) Handle(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Int("update_id", u.UpdateID).Msg("update handler panicked")
		}
	}()

	b.trace(u)

	switch {
	case u.CallbackQuery != nil:
		b.onCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		b.onCommand(ctx, u.Message)
	case u.Message != nil && u.Message.Text != "":
		b.onText(ctx, u.Message)
	}
}

// trace logs the update at debug level. Message text is left out since it
// may carry the admin password.
func (b *Bot) trace(u tgbotapi.Update) {
	ev := b.log.Debug().Int("update_id", u.UpdateID)
	switch {
	case u.CallbackQuery != nil:
		ev = ev.Int64("chat_id", callbackChat(u.CallbackQuery)).Str("callback", u.CallbackQuery.Data)
	case u.Message != nil && u.Message.Chat != nil:
		ev = ev.Int64("chat_id", u.Message.Chat.ID).Str("command", u.Message.Command())
	}
	ev.Msg("update")
}

// reply sends text with an optional inline keyboard.
func (b *Bot) reply(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// fail logs unexpected errors and tells the patron something went wrong.
func (b *Bot) fail(chatID int64, op string, err error) {
	if text, ok := userMessage(err); ok {
		b.reply(chatID, text, nil)
		return
	}
	b.log.Error().Err(err).Int64("chat_id", chatID).Str("op", op).Msg("chat operation failed")
	b.reply(chatID, msgInternal, nil)
}

// userMessage maps known service errors to replies.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrNotRegistered):
		return msgNotRegistered, true
	case errors.Is(err, services.ErrInvalidTransition):
		return msgInvalidTransition, true
	case errors.Is(err, services.ErrAuth):
		return msgWrongSecret, true
	case errors.Is(err, services.ErrForbidden):
		return msgForbidden, true
	case errors.Is(err, services.ErrTooManyOrders):
		return msgTooManyOrders, true
	case errors.Is(err, services.ErrInvalidTable):
		return msgBadTable, true
	case errors.Is(err, services.ErrInvalidName):
		return msgBadName, true
	case errors.Is(err, services.ErrEmptyQuery):
		return msgEmptyQuery, true
	case errors.Is(err, services.ErrSongNotFound):
		return msgSongNotFound, true
	case errors.Is(err, services.ErrOrderNotFound):
		return msgOrderNotFound, true
	case errors.Is(err, services.ErrUserNotFound):
		return msgNotRegistered, true
	}
	return "", false
}

func orderLine(o domain.Order) string {
	return fmt.Sprintf("#%d %s (%s)", o.ID, songTitle(&o), o.Status.Label())
}
