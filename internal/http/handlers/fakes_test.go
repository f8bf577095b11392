package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/http/middleware"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

var testSongs = []domain.Song{
	{ID: 1, Title: "Yesterday", Artist: "The Beatles", HasBacking: true},
	{ID: 2, Title: "Let It Be", Artist: "The Beatles"},
	{ID: 3, Title: "Bohemian Rhapsody", Artist: "Queen", HasBacking: true},
	{ID: 4, Title: "Kalinka"},
}

func testCatalog() *services.CatalogService {
	return services.NewCatalogService(catalog.New(testSongs))
}

// ---------- users ----------

type stubUsers struct {
	register func(context.Context, int64, int, services.Profile) (*domain.User, bool, error)
	reset    func(context.Context, int64) error
	promote  func(context.Context, int64, string) (*domain.User, error)
	auth     func(string) error
	get      func(context.Context, int64) (*domain.User, error)
}

func (s stubUsers) Register(ctx context.Context, chatID int64, table int, p services.Profile) (*domain.User, bool, error) {
	if s.register != nil {
		return s.register(ctx, chatID, table, p)
	}
	return &domain.User{ChatID: chatID, TableNumber: &table, Role: domain.RoleGuest}, true, nil
}

func (s stubUsers) Reset(ctx context.Context, chatID int64) error {
	if s.reset != nil {
		return s.reset(ctx, chatID)
	}
	return nil
}

func (s stubUsers) PromoteToAdmin(ctx context.Context, chatID int64, secret string) (*domain.User, error) {
	if s.promote != nil {
		return s.promote(ctx, chatID, secret)
	}
	return &domain.User{ChatID: chatID, Role: domain.RoleAdmin}, nil
}

func (s stubUsers) Authenticate(secret string) error {
	if s.auth != nil {
		return s.auth(secret)
	}
	return nil
}

func (s stubUsers) Get(ctx context.Context, chatID int64) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, chatID)
	}
	return nil, services.ErrUserNotFound
}

// ---------- orders ----------

// memOrders is a tiny in-memory ledger honouring the status machine.
type memOrders struct {
	mu        sync.Mutex
	next      uint64
	orders    map[uint64]*domain.Order
	owners    map[uint64]int64
	tables    map[int64]int
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uint64]*domain.Order{}, owners: map[uint64]int64{}, tables: map[int64]int{}}
}

func (m *memOrders) register(chatID int64, table int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[chatID] = table
}

func (m *memOrders) Create(_ context.Context, chatID int64, songID int) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	table, ok := m.tables[chatID]
	if !ok {
		return nil, services.ErrNotRegistered
	}
	if songID < 1 || songID > len(testSongs) {
		return nil, services.ErrSongNotFound
	}
	m.next++
	now := time.Now().UTC()
	o := &domain.Order{ID: m.next, SongID: songID, TableNumber: table, Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now}
	m.orders[o.ID] = o
	m.owners[o.ID] = chatID
	cp := *o
	return &cp, nil
}

func (m *memOrders) Advance(_ context.Context, id uint64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	next, ok := o.Status.Next()
	if !ok {
		return nil, services.ErrInvalidTransition
	}
	o.Status = next
	cp := *o
	return &cp, nil
}

func (m *memOrders) Cancel(_ context.Context, id uint64, actor services.Actor) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	if !actor.Admin && m.owners[id] != actor.ChatID {
		return nil, services.ErrForbidden
	}
	if !o.Status.CanCancel() {
		return nil, services.ErrInvalidTransition
	}
	o.Status = domain.StatusCancelled
	cp := *o
	return &cp, nil
}

func (m *memOrders) Get(_ context.Context, id uint64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) History(_ context.Context, chatID int64, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[chatID]; !ok {
		return nil, services.ErrUserNotFound
	}
	var out []domain.Order
	for id := m.next; id >= 1; id-- {
		if m.owners[id] == chatID {
			out = append(out, *m.orders[id])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOrders) Active(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for id := uint64(1); id <= m.next; id++ {
		if o := m.orders[id]; o.Status.CanCancel() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) QueueStats(ctx context.Context) (int64, *time.Time, error) {
	active, _ := m.Active(ctx)
	return int64(len(active)), nil, nil
}

func (m *memOrders) HistoryStats(ctx context.Context, chatID int64) (int64, *time.Time, error) {
	all, err := m.History(ctx, chatID, 0)
	if err != nil {
		return 0, nil, err
	}
	return int64(len(all)), nil, nil
}

// ---------- idempotency / tokens / notifier ----------

type memIdem struct {
	mu   sync.Mutex
	recs map[string]uint64
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]uint64{}} }

func (m *memIdem) Lookup(_ context.Context, owner, key string, _ time.Time) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.recs[owner+"|"+key]
	return id, ok, nil
}

func (m *memIdem) Save(_ context.Context, owner, key string, orderID uint64, _ int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := owner + "|" + key
	if id, ok := m.recs[k]; ok {
		return id, nil
	}
	m.recs[k] = orderID
	return orderID, nil
}

type stubTokens struct {
	gotSubject, gotRole string
}

func (s *stubTokens) Issue(subject, role string) (string, time.Time, error) {
	s.gotSubject, s.gotRole = subject, role
	return "signed." + subject, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	placed []uint64
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o.ID)
}

// newTestRouter mounts the handlers behind the identity and idempotency
// middleware, without authentication on the admin routes.
func newTestRouter(d Deps) *gin.Engine {
	h := New(d)
	r := gin.New()
	r.Use(middleware.ChatIdentity())
	var lookup middleware.IdempotencyLookup
	if d.Idem != nil {
		lookup = d.Idem.Lookup
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))

	r.GET("/songs", h.ListSongs)
	r.GET("/songs/search", h.SearchSongs)
	r.GET("/songs/by-title", h.SongsByTitle)
	r.GET("/songs/by-artist", h.SongsByArtist)
	r.GET("/songs/with-backing", h.SongsWithBacking)
	r.GET("/songs/:id", h.GetSong)

	r.POST("/users", h.RegisterUser)
	r.GET("/users/:chat_id", h.GetUser)
	r.DELETE("/users/:chat_id/registration", h.ResetUser)
	r.POST("/users/:chat_id/admin", h.PromoteUser)
	r.GET("/users/:chat_id/orders", h.UserOrders)

	r.POST("/orders", h.CreateOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)

	r.POST("/admin/token", h.IssueToken)
	r.GET("/admin/orders", h.AdminQueue)
	r.POST("/admin/orders/:id/advance", h.AdvanceOrder)
	r.POST("/admin/orders/:id/cancel", h.AdminCancelOrder)
	return r
}
