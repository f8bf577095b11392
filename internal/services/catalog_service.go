// Package services – CatalogService
//
// This file exposes the song catalog to the transport layers. The catalog is
// an immutable in-memory index built at startup; every query is answered
// from memory. SyncCatalog builds that index from the catalog file and
// mirrors it into the songs table so orders can reference songs by key.
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/repo"
)

// SearchParams are the knobs of a ranked catalog search.
type SearchParams struct {
	Type          catalog.SearchType
	MinSimilarity *float64
	Limit         int
	WithBacking   *bool
}

// CatalogService answers catalog queries.
type CatalogService struct {
	Index *catalog.Index
}

// NewCatalogService wraps idx; a nil idx behaves as an empty catalog.
func NewCatalogService(idx *catalog.Index) *CatalogService {
	if idx == nil {
		idx = catalog.New(nil)
	}
	return &CatalogService{Index: idx}
}

// List returns up to limit songs in catalog order.
func (s *CatalogService) List(limit int) []domain.Song {
	return clip(s.Index.Songs(), limit)
}

// ByTitle returns songs whose title contains q.
func (s *CatalogService) ByTitle(q string, limit int) ([]domain.Song, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	return clip(s.Index.ByTitle(q), limit), nil
}

// ByArtist returns songs whose artist contains q.
func (s *CatalogService) ByArtist(q string, limit int) ([]domain.Song, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	return clip(s.Index.ByArtist(q), limit), nil
}

// WithBacking returns songs whose backing-track flag equals v.
func (s *CatalogService) WithBacking(v bool, limit int) []domain.Song {
	return clip(s.Index.WithBacking(v), limit)
}

// Search runs a ranked search over title and artist.
func (s *CatalogService) Search(q string, p SearchParams) ([]catalog.Match, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	opts := []catalog.SearchOption{catalog.WithLimit(NormalizeLimit(p.Limit))}
	if p.Type != "" {
		opts = append(opts, catalog.WithSearchType(p.Type))
	}
	if p.MinSimilarity != nil {
		opts = append(opts, catalog.WithMinSimilarity(*p.MinSimilarity))
	}
	if p.WithBacking != nil {
		opts = append(opts, catalog.WithBacking(*p.WithBacking))
	}
	res := s.Index.Search(q, opts...)
	if res == nil {
		res = []catalog.Match{}
	}
	return res, nil
}

// Get returns the song with id or ErrSongNotFound.
func (s *CatalogService) Get(id int) (domain.Song, error) {
	song, ok := s.Index.Get(id)
	if !ok {
		return domain.Song{}, ErrSongNotFound
	}
	return song, nil
}

// Len returns the catalog size.
func (s *CatalogService) Len() int { return s.Index.Len() }

// NormalizeLimit maps a requested page size onto [1, catalog.MaxLimit],
// using catalog.DefaultLimit for non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return catalog.DefaultLimit
	case limit > catalog.MaxLimit:
		return catalog.MaxLimit
	}
	return limit
}

func clip(songs []domain.Song, limit int) []domain.Song {
	limit = NormalizeLimit(limit)
	if len(songs) > limit {
		return songs[:limit]
	}
	return songs
}

// SyncResult describes where the catalog came from.
type SyncResult struct {
	Source  string // "file" or "database"
	Loaded  int
	Skipped int
}

// SyncCatalog loads the catalog file at path and mirrors it into the songs
// table. When the file does not exist the songs already stored are used
// instead, so a restart without the file keeps serving the last catalog.
func SyncCatalog(ctx context.Context, db *gorm.DB, path, encoding string) (*catalog.Index, SyncResult, error) {
	songs, st, err := catalog.LoadFile(path, encoding)
	switch {
	case err == nil:
		if err := repo.UpsertSongs(ctx, db, songs); err != nil {
			return nil, SyncResult{}, fmt.Errorf("store catalog: %w", err)
		}
		return catalog.New(songs), SyncResult{Source: "file", Loaded: st.Loaded, Skipped: st.Skipped}, nil
	case errors.Is(err, fs.ErrNotExist):
		stored, lerr := repo.ListSongs(ctx, db)
		if lerr != nil {
			return nil, SyncResult{}, fmt.Errorf("read stored catalog: %w", lerr)
		}
		return catalog.New(stored), SyncResult{Source: "database", Loaded: len(stored)}, nil
	default:
		return nil, SyncResult{}, fmt.Errorf("load catalog %q: %w", path, err)
	}
}
