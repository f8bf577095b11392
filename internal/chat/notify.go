package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

const notifyTimeout = 10 * time.Second

// OrderPlaced tells staff about an order placed outside the chat (e.g. over
// HTTP). It returns immediately; delivery happens in the background.
func (b *Bot) OrderPlaced(ctx context.Context, o *domain.Order) {
	if o == nil {
		return
	}
	cp := *o
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		b.notifyStaff(ctx, &cp)
	}()
}

// notifyStaff sends the new order to the configured admin chat and every
// admin user, once each.
func (b *Bot) notifyStaff(ctx context.Context, o *domain.Order) {
	for _, chatID := range b.staffChats(ctx) {
		b.reply(chatID, fmt.Sprintf(msgNewOrder, o.ID, songTitle(o), o.TableNumber), staffKeyboard([]domain.Order{*o}))
	}
}

func (b *Bot) staffChats(ctx context.Context) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(b.opts.AdminChatID)
	admins, err := b.users.Admins(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("list admins failed")
	}
	for _, u := range admins {
		add(u.ChatID)
	}
	return out
}

func songTitle(o *domain.Order) string {
	if o.Song != nil {
		return o.Song.DisplayName()
	}
	return fmt.Sprintf("song %d", o.SongID)
}
