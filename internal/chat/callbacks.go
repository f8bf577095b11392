package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-karaoke-backend/internal/services"
)

func (b *Bot) onCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// stop the button spinner whatever happens next
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("callback ack failed")
	}

	chatID := callbackChat(q)
	if chatID == 0 {
		return
	}
	userID := callbackSender(q)
	data := q.Data
	switch {
	case strings.HasPrefix(data, cbSong):
		if id, ok := parseInt(strings.TrimPrefix(data, cbSong)); ok {
			b.confirmSong(chatID, id)
		}
	case strings.HasPrefix(data, cbOrder):
		if id, ok := parseInt(strings.TrimPrefix(data, cbOrder)); ok {
			b.placeOrder(ctx, chatID, id)
		}
	case strings.HasPrefix(data, cbCancel):
		if id, err := strconv.ParseUint(strings.TrimPrefix(data, cbCancel), 10, 64); err == nil {
			b.cancelOrder(ctx, chatID, userID, id)
		}
	case strings.HasPrefix(data, cbAdvance):
		if id, err := strconv.ParseUint(strings.TrimPrefix(data, cbAdvance), 10, 64); err == nil {
			b.advanceOrder(ctx, chatID, userID, id)
		}
	default:
		b.log.Debug().Str("data", data).Msg("unknown callback")
	}
}

func (b *Bot) confirmSong(chatID int64, songID int) {
	song, err := b.catalog.Get(songID)
	if err != nil {
		b.fail(chatID, "song", err)
		return
	}
	b.reply(chatID, fmt.Sprintf(msgConfirmSong, songButtonText(song)), confirmKeyboard(song.ID))
}

func (b *Bot) placeOrder(ctx context.Context, chatID int64, songID int) {
	o, err := b.orders.Create(ctx, chatID, songID)
	if err != nil {
		b.fail(chatID, "order", err)
		return
	}
	b.log.Info().Int64("chat_id", chatID).Uint64("order_id", o.ID).Int("song_id", songID).Msg("order placed")
	b.reply(chatID, fmt.Sprintf(msgOrderPlaced, o.ID, songTitle(o), o.TableNumber), nil)
	b.notifyStaff(ctx, o)
}

// cancelOrder acts for the person who pressed the button; in the staff chat
// they cancel as staff.
func (b *Bot) cancelOrder(ctx context.Context, chatID, userID int64, orderID uint64) {
	o, err := b.orders.Cancel(ctx, orderID, services.Actor{ChatID: userID, Admin: b.staffChat(chatID)})
	if err != nil {
		b.fail(chatID, "cancel", err)
		return
	}
	b.reply(chatID, fmt.Sprintf(msgCancelled, o.ID), nil)
}

func (b *Bot) advanceOrder(ctx context.Context, chatID, userID int64, orderID uint64) {
	if !b.isStaff(ctx, chatID, userID) {
		b.reply(chatID, msgStaffOnly, nil)
		return
	}
	o, err := b.orders.Advance(ctx, orderID)
	if err != nil {
		b.fail(chatID, "advance", err)
		return
	}
	b.reply(chatID, fmt.Sprintf(msgAdvanced, o.ID, o.Status.Label()), nil)
}

func callbackChat(q *tgbotapi.CallbackQuery) int64 {
	if q.Message != nil && q.Message.Chat != nil {
		return q.Message.Chat.ID
	}
	if q.From != nil {
		return q.From.ID
	}
	return 0
}

// callbackSender is the person who pressed the button, which differs from
// the chat in groups.
func callbackSender(q *tgbotapi.CallbackQuery) int64 {
	if q.From != nil {
		return q.From.ID
	}
	return callbackChat(q)
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	return v, err == nil && v > 0
}
