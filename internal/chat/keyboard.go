package chat

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// Callback data prefixes.
const (
	cbSong    = "song:"
	cbOrder   = "order:"
	cbCancel  = "cancel:"
	cbAdvance = "advance:"
)

// maxSongButtons bounds a search result keyboard.
const maxSongButtons = 10

// songButtonText renders "artist - title" with a note when a backing track
// exists.
func songButtonText(s domain.Song) string {
	var b strings.Builder
	if s.Artist != "" {
		b.WriteString(s.Artist)
		b.WriteString(" - ")
	}
	b.WriteString(s.Title)
	if s.HasBacking {
		b.WriteString(" 🎵")
	}
	return b.String()
}

// songKeyboard has one row per match, up to maxSongButtons.
func songKeyboard(matches []catalog.Match) *tgbotapi.InlineKeyboardMarkup {
	if len(matches) > maxSongButtons {
		matches = matches[:maxSongButtons]
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(songButtonText(m.Song), cbSong+strconv.Itoa(m.Song.ID)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func confirmKeyboard(songID int) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Request", cbOrder+strconv.Itoa(songID)),
	))
	return &kb
}

func cancelKeyboard(orders []domain.Order) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖ "+orderLine(o), cbCancel+strconv.FormatUint(o.ID, 10)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// staffKeyboard offers advance and cancel for each order.
func staffKeyboard(orders []domain.Order) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders))
	for _, o := range orders {
		id := strconv.FormatUint(o.ID, 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶ #"+id, cbAdvance+id),
			tgbotapi.NewInlineKeyboardButtonData("✖ #"+id, cbCancel+id),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
