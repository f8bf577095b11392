package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

func newCatalog() *CatalogService {
	return NewCatalogService(catalog.New([]domain.Song{yesterday, letItBe, bohemian}))
}

func TestCatalogService_Queries(t *testing.T) {
	s := newCatalog()

	if got := s.List(0); len(got) != 3 {
		t.Fatalf("List = %d songs", len(got))
	}
	if got := s.List(2); len(got) != 2 || got[0].ID != 1 {
		t.Fatalf("List(2) = %+v", got)
	}
	if got, err := s.ByTitle("LET", 0); err != nil || len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("ByTitle = %+v, %v", got, err)
	}
	if got, err := s.ByArtist("beatles", 1); err != nil || len(got) != 1 {
		t.Fatalf("ByArtist limit = %+v, %v", got, err)
	}
	if got := s.WithBacking(true, 0); len(got) != 2 {
		t.Fatalf("WithBacking(true) = %+v", got)
	}
	if song, err := s.Get(3); err != nil || song.Artist != "Queen" {
		t.Fatalf("Get(3) = %+v, %v", song, err)
	}
	if _, err := s.Get(42); !errors.Is(err, ErrSongNotFound) {
		t.Fatalf("Get(42) = %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestCatalogService_EmptyQueries(t *testing.T) {
	s := newCatalog()
	if _, err := s.ByTitle(" ", 0); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("ByTitle blank = %v", err)
	}
	if _, err := s.ByArtist("", 0); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("ByArtist blank = %v", err)
	}
	if _, err := s.Search("\t", SearchParams{}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Search blank = %v", err)
	}
}

func TestCatalogService_SearchParams(t *testing.T) {
	s := newCatalog()
	no := false
	res, err := s.Search("yesterday", SearchParams{WithBacking: &no})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, m := range res {
		if m.Song.ID == yesterday.ID {
			t.Fatalf("backing filter ignored")
		}
	}

	one := 1.0
	res, err = s.Search("queen", SearchParams{Type: catalog.SearchExact, MinSimilarity: &one})
	if err != nil {
		t.Fatalf("Search exact: %v", err)
	}
	if len(res) != 1 || res[0].Song.ID != bohemian.ID {
		t.Fatalf("artist resemblance = %+v", res)
	}

	res, err = s.Search("zzzzzzzz", SearchParams{Type: catalog.SearchExact})
	if err != nil || res == nil || len(res) != 0 {
		t.Fatalf("no hits should be an empty slice, got %v, %v", res, err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{-1: catalog.DefaultLimit, 0: catalog.DefaultLimit, 1: 1, 100: 100, 500: catalog.MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d; want %d", in, got, want)
		}
	}
}

func TestSyncCatalog_FallsBackToStoredSongs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedSongs(t, db, yesterday, bohemian)

	idx, res, err := SyncCatalog(ctx, db, filepath.Join(t.TempDir(), "missing.csv"), "")
	if err != nil {
		t.Fatalf("SyncCatalog: %v", err)
	}
	if res.Source != "database" || idx.Len() != 2 {
		t.Fatalf("fallback = %+v, len %d", res, idx.Len())
	}
}

func TestSyncCatalog_BadEncoding(t *testing.T) {
	db := newTestDB(t)
	path := filepath.Join(t.TempDir(), "songs.csv")
	if err := os.WriteFile(path, []byte("id;title;artist;backing\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := SyncCatalog(context.Background(), db, path, "ebcdic"); !errors.Is(err, catalog.ErrUnsupportedEncoding) {
		t.Fatalf("SyncCatalog bad encoding = %v", err)
	}
}
