package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

func TestCreateOrder_DefaultsAndForeignKeys(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()
	s := seedSong(t, db, 1, "Yesterday", "The Beatles")
	u := seedUser(t, db, 1, ptr(5))

	o := &domain.Order{UserID: u.ID, SongID: s.ID, TableNumber: 5}
	if err := CreateOrder(ctx, db, o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID == 0 || o.Status != domain.StatusPending || o.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", o)
	}

	got, err := GetOrder(ctx, db, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Song == nil || got.Song.Title != "Yesterday" || got.User == nil || got.User.ChatID != 1 {
		t.Fatalf("associations not preloaded: %+v", got)
	}

	bad := &domain.Order{UserID: u.ID, SongID: 404, TableNumber: 5}
	if err := CreateOrder(ctx, db, bad); err == nil {
		t.Fatalf("expected foreign key violation for unknown song")
	}
	if _, err := GetOrder(ctx, db, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersByUser_NewestFirst(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()
	s := seedSong(t, db, 1, "Yesterday", "The Beatles")
	u := seedUser(t, db, 1, ptr(5))
	other := seedUser(t, db, 2, ptr(6))

	base := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		o := &domain.Order{UserID: u.ID, SongID: s.ID, TableNumber: 5, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := CreateOrder(ctx, db, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}
	// Same timestamp as the newest: id breaks the tie.
	tie := &domain.Order{UserID: u.ID, SongID: s.ID, TableNumber: 5, CreatedAt: base.Add(2 * time.Minute)}
	if err := CreateOrder(ctx, db, tie); err != nil {
		t.Fatalf("CreateOrder tie: %v", err)
	}
	if err := CreateOrder(ctx, db, &domain.Order{UserID: other.ID, SongID: s.ID, TableNumber: 6}); err != nil {
		t.Fatalf("CreateOrder other: %v", err)
	}

	got, err := ListOrdersByUser(ctx, db, u.ID, 0)
	if err != nil {
		t.Fatalf("ListOrdersByUser: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d; want 4", len(got))
	}
	if got[0].ID != tie.ID {
		t.Fatalf("tie-break: first id = %d; want %d", got[0].ID, tie.ID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("not newest first at %d: %v after %v", i, got[i].CreatedAt, got[i-1].CreatedAt)
		}
	}
	if got[0].Song == nil {
		t.Fatalf("song not preloaded")
	}

	limited, _ := ListOrdersByUser(ctx, db, u.ID, 2)
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestTransitionOrder_Conditional(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()
	s := seedSong(t, db, 1, "Yesterday", "The Beatles")
	u := seedUser(t, db, 1, ptr(5))
	o := &domain.Order{UserID: u.ID, SongID: s.ID, TableNumber: 5}
	if err := CreateOrder(ctx, db, o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	ok, err := TransitionOrder(ctx, db, o.ID, domain.StatusPending, domain.StatusInProgress)
	if err != nil || !ok {
		t.Fatalf("first transition = %v, %v", ok, err)
	}
	// A second caller holding the stale status loses.
	ok, err = TransitionOrder(ctx, db, o.ID, domain.StatusPending, domain.StatusCancelled)
	if err != nil || ok {
		t.Fatalf("stale transition = %v, %v; want false", ok, err)
	}
	got, _ := GetOrder(ctx, db, o.ID)
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s; want in_progress", got.Status)
	}
}

func TestListOrdersByStatusAndCount(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()
	s := seedSong(t, db, 1, "Yesterday", "The Beatles")
	u := seedUser(t, db, 1, ptr(5))

	base := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	var orders []*domain.Order
	for i := 0; i < 3; i++ {
		o := &domain.Order{UserID: u.ID, SongID: s.ID, TableNumber: 5, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := CreateOrder(ctx, db, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		orders = append(orders, o)
	}
	if _, err := TransitionOrder(ctx, db, orders[0].ID, domain.StatusPending, domain.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := TransitionOrder(ctx, db, orders[1].ID, domain.StatusPending, domain.StatusInProgress); err != nil {
		t.Fatalf("advance: %v", err)
	}

	active, err := ListOrdersByStatus(ctx, db, domain.ActiveStatuses)
	if err != nil {
		t.Fatalf("ListOrdersByStatus: %v", err)
	}
	if len(active) != 2 || active[0].ID != orders[1].ID || active[1].ID != orders[2].ID {
		t.Fatalf("active queue = %+v", active)
	}
	if active[0].User == nil || active[0].Song == nil {
		t.Fatalf("associations not preloaded")
	}

	n, err := CountOrdersByUserStatus(ctx, db, u.ID, domain.ActiveStatuses)
	if err != nil || n != 2 {
		t.Fatalf("CountOrdersByUserStatus = %d, %v; want 2", n, err)
	}
}
