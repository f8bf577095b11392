// Package catalog holds the song catalog in memory and answers the queries
// patrons and staff run against it.
//
//   - No logging in the library (callers decide how/what to log)
//   - Immutable after construction (safe for concurrent use)
//   - Case-insensitive matching via Unicode case folding
//   - Deterministic ordering: natural catalog order, or score then catalog
//     order for ranked search
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// SearchType selects how a query word combination is compared against the
// title and artist of each song.
type SearchType string

const (
	// SearchExact scores 1 when the combination equals the field.
	SearchExact SearchType = "exact"
	// SearchContains scores 0.8 when the combination is a substring.
	SearchContains SearchType = "contains"
	// SearchSimilar scores the Ratcliff/Obershelp similarity ratio.
	SearchSimilar SearchType = "similar"
)

// Valid reports whether t is a known search type.
func (t SearchType) Valid() bool {
	return t == SearchExact || t == SearchContains || t == SearchSimilar
}

const (
	titleWeight  = 0.6
	artistWeight = 0.4

	// artistMatchThreshold adds songs whose artist resembles the whole query.
	artistMatchThreshold = 0.7

	// maxQueryWords bounds the word combinations generated per query (2^n-1).
	maxQueryWords = 6

	DefaultMinSimilarity = 0.3
	DefaultLimit         = 50
	MaxLimit             = 100
)

// Match is a ranked search hit.
type Match struct {
	Song  domain.Song `json:"song"`
	Score float64     `json:"score"`
}

// ----------------------------------------------------------------------------
// Search options

type SearchOption func(*searchConfig)

type searchConfig struct {
	kind          SearchType
	minSimilarity float64
	limit         int
	withBacking   *bool
}

func defaultSearchConfig() searchConfig {
	return searchConfig{
		kind:          SearchSimilar,
		minSimilarity: DefaultMinSimilarity,
		limit:         DefaultLimit,
	}
}

// WithSearchType sets the comparison mode; unknown types are ignored.
func WithSearchType(t SearchType) SearchOption {
	return func(c *searchConfig) {
		if t.Valid() {
			c.kind = t
		}
	}
}

// WithMinSimilarity sets the minimum relevance in [0,1].
func WithMinSimilarity(v float64) SearchOption {
	return func(c *searchConfig) {
		if v >= 0 && v <= 1 {
			c.minSimilarity = v
		}
	}
}

// WithLimit caps the number of results; values outside [1,MaxLimit] are ignored.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		if n >= 1 && n <= MaxLimit {
			c.limit = n
		}
	}
}

// WithBacking keeps only songs whose backing-track flag equals v.
func WithBacking(v bool) SearchOption {
	return func(c *searchConfig) {
		c.withBacking = &v
	}
}

// ----------------------------------------------------------------------------
// Index

type entry struct {
	song    domain.Song
	ftitle  string
	fartist string
	title   []rune
	artist  []rune
}

// Index is a read-only song catalog.
type Index struct {
	entries []entry
	byID    map[int]int
}

// New builds an Index from songs, preserving their order. Songs with a
// duplicate id keep the first occurrence.
func New(songs []domain.Song) *Index {
	idx := &Index{
		entries: make([]entry, 0, len(songs)),
		byID:    make(map[int]int, len(songs)),
	}
	for _, s := range songs {
		if _, dup := idx.byID[s.ID]; dup {
			continue
		}
		ft, fa := fold(s.Title), fold(s.Artist)
		idx.byID[s.ID] = len(idx.entries)
		idx.entries = append(idx.entries, entry{
			song:    s,
			ftitle:  ft,
			fartist: fa,
			title:   []rune(ft),
			artist:  []rune(fa),
		})
	}
	return idx
}

// Len returns the number of songs in the catalog.
func (i *Index) Len() int { return len(i.entries) }

// Songs returns every song in catalog order.
func (i *Index) Songs() []domain.Song {
	return i.filter(func(entry) bool { return true })
}

// Get returns the song with the given id.
func (i *Index) Get(id int) (domain.Song, bool) {
	pos, ok := i.byID[id]
	if !ok {
		return domain.Song{}, false
	}
	return i.entries[pos].song, true
}

// ByTitle returns songs whose title contains q, case-insensitively.
// An empty q matches nothing.
func (i *Index) ByTitle(q string) []domain.Song {
	fq := fold(strings.TrimSpace(q))
	if fq == "" {
		return nil
	}
	return i.filter(func(e entry) bool { return strings.Contains(e.ftitle, fq) })
}

// ByArtist returns songs whose artist contains q, case-insensitively.
// An empty q matches nothing.
func (i *Index) ByArtist(q string) []domain.Song {
	fq := fold(strings.TrimSpace(q))
	if fq == "" {
		return nil
	}
	return i.filter(func(e entry) bool { return strings.Contains(e.fartist, fq) })
}

// WithBacking returns songs whose backing-track flag equals v.
func (i *Index) WithBacking(v bool) []domain.Song {
	return i.filter(func(e entry) bool { return e.song.HasBacking == v })
}

func (i *Index) filter(keep func(entry) bool) []domain.Song {
	out := make([]domain.Song, 0)
	for _, e := range i.entries {
		if keep(e) {
			out = append(out, e.song)
		}
	}
	return out
}

// Search ranks songs against a free-text query. Every combination of the
// query words is compared with title and artist; the relevance is
// 0.6*best(title) + 0.4*best(artist). Songs whose artist resembles the whole
// query are included regardless of the threshold.
func (i *Index) Search(q string, opts ...SearchOption) []Match {
	cfg := defaultSearchConfig()
	for _, o := range opts {
		o(&cfg)
	}
	fq := fold(strings.Join(strings.Fields(q), " "))
	if fq == "" || len(i.entries) == 0 {
		return nil
	}
	parts := combinations(strings.Fields(fq))
	partRunes := make([][]rune, len(parts))
	for n, p := range parts {
		partRunes[n] = []rune(p)
	}
	whole := []rune(fq)

	type scored struct {
		pos   int
		score float64
	}
	buf := make([]scored, 0, min(cfg.limit*4, len(i.entries)))
	for pos, e := range i.entries {
		if cfg.withBacking != nil && e.song.HasBacking != *cfg.withBacking {
			continue
		}
		score := relevance(e, parts, partRunes, cfg.kind)
		if score >= cfg.minSimilarity || (len(e.artist) > 0 && ratio(whole, e.artist) > artistMatchThreshold) {
			buf = append(buf, scored{pos: pos, score: score})
		}
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		return buf[a].pos < buf[b].pos
	})

	n := min(cfg.limit, len(buf))
	out := make([]Match, n)
	for k := 0; k < n; k++ {
		out[k] = Match{Song: i.entries[buf[k].pos].song, Score: buf[k].score}
	}
	return out
}

func relevance(e entry, parts []string, partRunes [][]rune, kind SearchType) float64 {
	var bestTitle, bestArtist float64
	for n, p := range parts {
		bestTitle = max(bestTitle, fieldScore(kind, p, partRunes[n], e.ftitle, e.title))
		if e.fartist != "" {
			bestArtist = max(bestArtist, fieldScore(kind, p, partRunes[n], e.fartist, e.artist))
		}
	}
	return bestTitle*titleWeight + bestArtist*artistWeight
}

func fieldScore(kind SearchType, part string, partRunes []rune, field string, fieldRunes []rune) float64 {
	switch kind {
	case SearchExact:
		if part == field {
			return 1
		}
		return 0
	case SearchContains:
		if strings.Contains(field, part) {
			return 0.8
		}
		return 0
	default:
		return ratio(partRunes, fieldRunes)
	}
}

// combinations returns every ordered, non-empty subset of words joined by a
// single space, shortest first. Only the first maxQueryWords words are used.
func combinations(words []string) []string {
	if len(words) > maxQueryWords {
		words = words[:maxQueryWords]
	}
	n := len(words)
	out := make([]string, 0, (1<<n)-1)
	for size := 1; size <= n; size++ {
		for mask := 1; mask < 1<<n; mask++ {
			if bitCount(mask) != size {
				continue
			}
			pick := make([]string, 0, size)
			for b := 0; b < n; b++ {
				if mask&(1<<b) != 0 {
					pick = append(pick, words[b])
				}
			}
			out = append(out, strings.Join(pick, " "))
		}
	}
	return out
}

func bitCount(v int) int {
	c := 0
	for ; v != 0; v &= v - 1 {
		c++
	}
	return c
}

func fold(s string) string {
	return cases.Fold().String(s)
}
