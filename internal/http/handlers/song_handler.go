// Song HTTP handlers.
//
// Read-only catalog endpoints:
//   - GET /songs                (list in catalog order)
//   - GET /songs/search         (ranked search over title and artist)
//   - GET /songs/by-title       (title substring)
//   - GET /songs/by-artist      (artist substring)
//   - GET /songs/with-backing   (backing-track filter)
//   - GET /songs/{id}           (single song)
//
// Every list accepts limit in [1,100] (default 50). Matching is
// case-insensitive and never fails for an empty result.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-karaoke-backend/internal/catalog"
	"github.com/tbourn/go-karaoke-backend/internal/domain"
	"github.com/tbourn/go-karaoke-backend/internal/services"
)

// SongsResponse is a list of catalog songs.
type SongsResponse struct {
	Songs []domain.Song `json:"songs"`
	Count int           `json:"count" example:"1"`
}

// SearchResponse is a ranked list of songs.
type SearchResponse struct {
	Query   string          `json:"query" example:"yesterday"`
	Results []catalog.Match `json:"results"`
	Count   int             `json:"count" example:"1"`
}

func songsResponse(songs []domain.Song) SongsResponse {
	if songs == nil {
		songs = []domain.Song{}
	}
	return SongsResponse{Songs: songs, Count: len(songs)}
}

// limitParam reads ?limit=, rejecting values outside [1, catalog.MaxLimit].
func limitParam(c *gin.Context) (int, bool) {
	n, ok := queryInt(c, "limit", catalog.DefaultLimit)
	if !ok || n < 1 || n > catalog.MaxLimit {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer between 1 and "+strconv.Itoa(catalog.MaxLimit))
		return 0, false
	}
	return n, true
}

// ListSongs godoc
// @ID          listSongs
// @Summary     List songs
// @Description Returns catalog songs in catalog order.
// @Tags        Songs
// @Produce     json
// @Param       limit  query  int  false  "Maximum number of songs"  minimum(1) maximum(100) default(50)
// @Success     200  {object}  handlers.SongsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /songs [get]
func (h *Handlers) ListSongs(c *gin.Context) {
	limit, valid := limitParam(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, songsResponse(h.catalog.List(limit)))
}

// SearchSongs godoc
// @ID          searchSongs
// @Summary     Ranked song search
// @Description Scores every word combination of the query against title (60%) and artist (40%).
// @Description Songs whose artist closely resembles the whole query are always included.
// @Tags        Songs
// @Produce     json
// @Param       query           query  string  true   "Search text"  example(yesterday)
// @Param       search_type     query  string  false  "Comparison mode"  Enums(exact, contains, similar) default(similar)
// @Param       min_similarity  query  number  false  "Minimum relevance"  minimum(0) maximum(1) default(0.3)
// @Param       limit           query  int     false  "Maximum number of results"  minimum(1) maximum(100) default(50)
// @Param       with_backing    query  bool    false  "Only songs with (true) or without (false) a backing track"
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /songs/search [get]
func (h *Handlers) SearchSongs(c *gin.Context) {
	q := strings.TrimSpace(c.Query("query"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeEmptyQuery, "query must not be empty")
		return
	}
	limit, valid := limitParam(c)
	if !valid {
		return
	}

	p := services.SearchParams{Limit: limit}
	if raw := c.Query("search_type"); raw != "" {
		p.Type = catalog.SearchType(strings.ToLower(raw))
		if !p.Type.Valid() {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "search_type must be one of: exact, contains, similar")
			return
		}
	}
	if raw := strings.TrimSpace(c.Query("min_similarity")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "min_similarity must be between 0 and 1")
			return
		}
		p.MinSimilarity = &v
	}
	wb, valid := queryBool(c, "with_backing")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "with_backing must be a boolean")
		return
	}
	p.WithBacking = wb

	res, err := h.catalog.Search(q, p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: res, Count: len(res)})
}

// SongsByTitle godoc
// @ID          songsByTitle
// @Summary     Find songs by title
// @Tags        Songs
// @Produce     json
// @Param       title  query  string  true   "Title substring (case-insensitive)"
// @Param       limit  query  int     false  "Maximum number of songs"  minimum(1) maximum(100) default(50)
// @Success     200  {object}  handlers.SongsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /songs/by-title [get]
func (h *Handlers) SongsByTitle(c *gin.Context) {
	h.substring(c, "title", h.catalog.ByTitle)
}

// SongsByArtist godoc
// @ID          songsByArtist
// @Summary     Find songs by artist
// @Tags        Songs
// @Produce     json
// @Param       artist  query  string  true   "Artist substring (case-insensitive)"
// @Param       limit   query  int     false  "Maximum number of songs"  minimum(1) maximum(100) default(50)
// @Success     200  {object}  handlers.SongsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /songs/by-artist [get]
func (h *Handlers) SongsByArtist(c *gin.Context) {
	h.substring(c, "artist", h.catalog.ByArtist)
}

func (h *Handlers) substring(c *gin.Context, param string, find func(string, int) ([]domain.Song, error)) {
	q := strings.TrimSpace(c.Query(param))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeEmptyQuery, param+" must not be empty")
		return
	}
	limit, valid := limitParam(c)
	if !valid {
		return
	}
	songs, err := find(q, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, songsResponse(songs))
}

// SongsWithBacking godoc
// @ID          songsWithBacking
// @Summary     Filter songs by backing track
// @Tags        Songs
// @Produce     json
// @Param       value  query  bool  false  "Backing track available"  default(true)
// @Param       limit  query  int   false  "Maximum number of songs"  minimum(1) maximum(100) default(50)
// @Success     200  {object}  handlers.SongsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /songs/with-backing [get]
func (h *Handlers) SongsWithBacking(c *gin.Context) {
	v, valid := queryBool(c, "value")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be a boolean")
		return
	}
	want := true
	if v != nil {
		want = *v
	}
	limit, valid := limitParam(c)
	if !valid {
		return
	}
	ok(c, http.StatusOK, songsResponse(h.catalog.WithBacking(want, limit)))
}

// GetSong godoc
// @ID          getSong
// @Summary     Get a song
// @Tags        Songs
// @Produce     json
// @Param       id  path  int  true  "Song ID"
// @Success     200  {object}  domain.Song
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Song not found"
// @Router      /songs/{id} [get]
func (h *Handlers) GetSong(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "song id must be a positive integer")
		return
	}
	song, err := h.catalog.Get(id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, song)
}
