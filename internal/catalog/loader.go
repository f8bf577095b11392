package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// Encoding names accepted by Load.
const (
	EncodingUTF8   = "utf-8"
	EncodingCP1251 = "cp1251"
)

// ErrUnsupportedEncoding is returned for an encoding name Load does not know.
var ErrUnsupportedEncoding = errors.New("catalog: unsupported encoding")

// LoadStats summarises a catalog load.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// LoadFile opens path and delegates to Load.
func LoadFile(path, encoding string) ([]domain.Song, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()
	return Load(f, encoding)
}

// Load parses a ';'-separated catalog with the columns
// id;title;artist;backing[;kind]. The first line is a header and is skipped.
// Rows with fewer than four columns, a non-positive or unparseable id, an
// empty title or an id seen earlier are skipped and counted. A song has a
// backing track when its fourth column is non-empty.
func Load(r io.Reader, encoding string) ([]domain.Song, LoadStats, error) {
	var st LoadStats
	src, err := decoder(r, encoding)
	if err != nil {
		return nil, st, err
	}

	cr := csv.NewReader(src)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	songs := make([]domain.Song, 0, 256)
	seen := make(map[int]struct{}, 256)
	header := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				st.Skipped++
				header = false
				continue
			}
			return nil, st, fmt.Errorf("read catalog: %w", err)
		}
		if header {
			header = false
			continue
		}
		s, ok := parseRow(row)
		if !ok {
			st.Skipped++
			continue
		}
		if _, dup := seen[s.ID]; dup {
			st.Skipped++
			continue
		}
		seen[s.ID] = struct{}{}
		songs = append(songs, s)
	}
	st.Loaded = len(songs)
	return songs, st, nil
}

func parseRow(row []string) (domain.Song, bool) {
	if len(row) < 4 {
		return domain.Song{}, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil || id <= 0 {
		return domain.Song{}, false
	}
	title := strings.TrimSpace(row[1])
	if title == "" {
		return domain.Song{}, false
	}
	s := domain.Song{
		ID:         id,
		Title:      title,
		Artist:     strings.TrimSpace(row[2]),
		HasBacking: strings.TrimSpace(row[3]) != "",
	}
	if len(row) > 4 {
		s.Kind = strings.TrimSpace(row[4])
	}
	return s, true
}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
		return skipBOM(r)
	case EncodingCP1251, "windows-1251":
		return transform.NewReader(r, charmap.Windows1251.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func skipBOM(r io.Reader) (io.Reader, error) {
	head := make([]byte, len(utf8BOM))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	if bytes.Equal(head, utf8BOM) {
		return r, nil
	}
	return io.MultiReader(bytes.NewReader(head), r), nil
}
