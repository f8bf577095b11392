package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/repo"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

var testSongs = []domain.Song{
	{ID: 1, Title: "Yesterday", Artist: "The Beatles", HasBacking: true},
	{ID: 2, Title: "Let It Be", Artist: "The Beatles"},
	{ID: 3, Title: "Bohemian Rhapsody", Artist: "Queen", HasBacking: true},
}

// fakeSender records outgoing messages instead of calling Telegram.
type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	acks int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// last returns the most recent message sent to chatID.
func (f *fakeSender) last(t *testing.T, chatID int64) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].ChatID == chatID {
			return f.sent[i]
		}
	}
	t.Fatalf("nothing sent to chat %d", chatID)
	return tgbotapi.MessageConfig{}
}

func (f *fakeSender) count(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.ChatID == chatID {
			n++
		}
	}
	return n
}

type staticSecret string

func (s staticSecret) Verify(p string) bool { return p == string(s) }

type fixture struct {
	bot      *Bot
	api      *fakeSender
	users    *services.UserService
	orders   *services.OrderService
	sessions *MemorySessions
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:chat_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.UpsertSongs(context.Background(), db, testSongs); err != nil {
		t.Fatalf("seed songs: %v", err)
	}

	api := &fakeSender{}
	users := services.NewUserService(db, staticSecret("letmesing"))
	orders := services.NewOrderService(db, 2)
	sessions := NewMemorySessions(0)
	cat := services.NewCatalogService(catalog.New(testSongs))
	return fixture{
		bot:      New(api, cat, users, orders, sessions, opts),
		api:      api,
		users:    users,
		orders:   orders,
		sessions: sessions,
	}
}

// text delivers a plain or command message from chatID.
func (f fixture) text(chatID int64, s string) {
	m := &tgbotapi.Message{
		Text: s,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, UserName: "singer", FirstName: "Ann"},
	}
	if strings.HasPrefix(s, "/") {
		n := len(s)
		if i := strings.IndexByte(s, ' '); i >= 0 {
			n = i
		}
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	f.bot.Handle(context.Background(), tgbotapi.Update{Message: m})
}

// press delivers an inline-button callback from the private chat chatID.
func (f fixture) press(chatID int64, data string) {
	f.pressIn(chatID, chatID, data)
}

// pressIn delivers a callback pressed by userID on a message in chatID.
func (f fixture) pressIn(chatID, userID int64, data string) {
	f.bot.Handle(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}})
}

// buttons flattens the inline keyboard of msg into (text, data) pairs.
func buttons(t *testing.T, msg tgbotapi.MessageConfig) [][2]string {
	t.Helper()
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("message %q has no inline keyboard", msg.Text)
	}
	var out [][2]string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			data := ""
			if b.CallbackData != nil {
				data = *b.CallbackData
			}
			out = append(out, [2]string{b.Text, data})
		}
	}
	return out
}

// registerAt runs the /start conversation for chatID.
func (f fixture) registerAt(t *testing.T, chatID int64, table int) {
	t.Helper()
	f.text(chatID, "/start")
	f.text(chatID, "Ann")
	f.text(chatID, fmt.Sprint(table))
	if got := f.api.last(t, chatID).Text; !strings.Contains(got, fmt.Sprintf("Your table: %d", table)) {
		t.Fatalf("registration reply = %q", got)
	}
}
