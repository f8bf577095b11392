package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// historyLimit bounds the /history listing.
const historyLimit = 10

func (b *Bot) onCommand(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	switch m.Command() {
	case "start":
		b.start(ctx, chatID)
	case "search":
		b.search(ctx, chatID, m.CommandArguments())
	case "history":
		b.history(ctx, chatID)
	case "cancel":
		b.pickCancel(ctx, chatID)
	case "reset":
		b.reset(ctx, chatID)
	case "admin":
		b.promote(ctx, chatID, m.CommandArguments())
	case "orders":
		b.queue(ctx, chatID, senderID(m))
	default:
		b.reply(chatID, msgUnknownCommand, nil)
	}
}

// onText routes free text by conversation stage.
func (b *Bot) onText(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	stage, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("session lookup failed")
	}
	switch stage {
	case StageAwaitingName:
		b.setName(ctx, m)
	case StageAwaitingTable:
		b.register(ctx, m)
	case StageReady:
		b.search(ctx, chatID, m.Text)
	default:
		// no session (expired or never started): fall back on the registry
		if b.registered(ctx, chatID) {
			b.setStage(ctx, chatID, StageReady)
		}
		b.search(ctx, chatID, m.Text)
	}
}

func (b *Bot) start(ctx context.Context, chatID int64) {
	u, err := b.users.Get(ctx, chatID)
	if err == nil && u.Registered() {
		b.setStage(ctx, chatID, StageReady)
		b.reply(chatID, fmt.Sprintf(msgWelcomeBack, *u.TableNumber), nil)
		return
	}
	b.setStage(ctx, chatID, StageAwaitingName)
	b.reply(chatID, msgWelcome, nil)
}

// setName stores the name the patron typed, keeping the Telegram handle.
func (b *Bot) setName(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	p := profileOf(m.From)
	p.DisplayName = m.Text
	u, err := b.users.SetName(ctx, chatID, p)
	if err != nil {
		b.fail(chatID, "set name", err)
		return
	}
	b.setStage(ctx, chatID, StageAwaitingTable)
	b.reply(chatID, fmt.Sprintf(msgAskTable, u.DisplayName), nil)
}

func (b *Bot) register(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	table, err := strconv.Atoi(strings.TrimSpace(m.Text))
	if err != nil || table <= 0 {
		b.reply(chatID, msgBadTable, nil)
		return
	}
	u, _, err := b.users.Register(ctx, chatID, table, profileOf(m.From))
	if err != nil {
		b.fail(chatID, "register", err)
		return
	}
	b.setStage(ctx, chatID, StageReady)
	b.log.Info().Int64("chat_id", chatID).Int("table", *u.TableNumber).Msg("user registered")
	b.reply(chatID, fmt.Sprintf(msgRegistered, *u.TableNumber), nil)
}

// search requires a table: the session alone is not trusted since the
// registration may have been reset over HTTP.
func (b *Bot) search(ctx context.Context, chatID int64, q string) {
	if !b.registered(ctx, chatID) {
		if st, _ := b.sessions.Get(ctx, chatID); st == StageReady {
			if err := b.sessions.Clear(ctx, chatID); err != nil {
				b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("session clear failed")
			}
		}
		b.reply(chatID, msgNotRegistered, nil)
		return
	}
	q = strings.TrimSpace(q)
	if q == "" {
		b.reply(chatID, msgEmptyQuery, nil)
		return
	}
	matches, err := b.catalog.Search(q, services.SearchParams{Limit: maxSongButtons})
	if err != nil {
		b.fail(chatID, "search", err)
		return
	}
	if len(matches) == 0 {
		b.reply(chatID, msgNothingFound, nil)
		return
	}
	b.reply(chatID, msgChooseSong, songKeyboard(matches))
}

func (b *Bot) history(ctx context.Context, chatID int64) {
	orders, err := b.orders.History(ctx, chatID, historyLimit)
	if err != nil {
		b.fail(chatID, "history", err)
		return
	}
	if len(orders) == 0 {
		b.reply(chatID, msgNoHistory, nil)
		return
	}
	b.reply(chatID, fmt.Sprintf(msgHistory, orderLines(orders)), nil)
}

func (b *Bot) pickCancel(ctx context.Context, chatID int64) {
	active, err := b.orders.ActiveFor(ctx, chatID)
	if err != nil {
		b.fail(chatID, "cancel", err)
		return
	}
	if len(active) == 0 {
		b.reply(chatID, msgNothingToCancel, nil)
		return
	}
	b.reply(chatID, msgPickCancel, cancelKeyboard(active))
}

func (b *Bot) reset(ctx context.Context, chatID int64) {
	if err := b.users.Reset(ctx, chatID); err != nil {
		b.fail(chatID, "reset", err)
		return
	}
	if err := b.sessions.Clear(ctx, chatID); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("session clear failed")
	}
	b.reply(chatID, msgReset, nil)
}

func (b *Bot) promote(ctx context.Context, chatID int64, secret string) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		b.reply(chatID, msgAdminUsage, nil)
		return
	}
	if _, err := b.users.PromoteToAdmin(ctx, chatID, secret); err != nil {
		if errors.Is(err, services.ErrAuth) {
			b.log.Warn().Int64("chat_id", chatID).Msg("admin promotion refused")
		}
		b.fail(chatID, "promote", err)
		return
	}
	b.log.Info().Int64("chat_id", chatID).Msg("user promoted to admin")
	b.reply(chatID, msgPromoted, nil)
}

func (b *Bot) queue(ctx context.Context, chatID, userID int64) {
	if !b.isStaff(ctx, chatID, userID) {
		b.reply(chatID, msgStaffOnly, nil)
		return
	}
	active, err := b.orders.Active(ctx)
	if err != nil {
		b.fail(chatID, "queue", err)
		return
	}
	if len(active) == 0 {
		b.reply(chatID, msgQueueEmpty, nil)
		return
	}
	b.reply(chatID, fmt.Sprintf(msgQueue, orderLines(active)), staffKeyboard(active))
}

func (b *Bot) registered(ctx context.Context, chatID int64) bool {
	u, err := b.users.Get(ctx, chatID)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("registry lookup failed")
	}
	return err == nil && u.Registered()
}

// staffChat reports whether chatID is the configured staff chat, whose
// members all act as staff.
func (b *Bot) staffChat(chatID int64) bool {
	return b.opts.AdminChatID != 0 && chatID == b.opts.AdminChatID
}

// isStaff reports whether userID, acting in chatID, may run the queue: the
// user was promoted to admin or the action happens in the staff chat.
func (b *Bot) isStaff(ctx context.Context, chatID, userID int64) bool {
	if b.staffChat(chatID) {
		return true
	}
	ok, err := b.users.IsAdmin(ctx, userID)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("admin check failed")
	}
	return ok
}

// senderID is the person behind m; in a private chat it equals the chat id.
func senderID(m *tgbotapi.Message) int64 {
	if m.From != nil {
		return m.From.ID
	}
	return m.Chat.ID
}

func (b *Bot) setStage(ctx context.Context, chatID int64, s Stage) {
	if err := b.sessions.Set(ctx, chatID, s); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Str("stage", string(s)).Msg("session write failed")
	}
}

func profileOf(u *tgbotapi.User) services.Profile {
	if u == nil {
		return services.Profile{}
	}
	return services.Profile{
		Username:    u.UserName,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

func orderLines(orders []domain.Order) string {
	lines := make([]string, len(orders))
	for i, o := range orders {
		lines[i] = orderLine(o)
	}
	return strings.Join(lines, "\n")
}
