package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

const csvFixture = `id;title;artist;backing;kind
1;Yesterday;The Beatles;+;rock
2;Let It Be;The Beatles;;
broken;Row;Artist;+
3;Too Few;Columns
4;;No Title;+
1;Yesterday Again;Dup;+
5;Bohemian Rhapsody;Queen;yes
`

func TestLoad_UTF8(t *testing.T) {
	songs, st, err := Load(strings.NewReader(csvFixture), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Loaded != 3 || st.Skipped != 4 {
		t.Fatalf("stats = %+v; want loaded 3 skipped 4", st)
	}
	if got := ids(songs); !equalInts(got, []int{1, 2, 5}) {
		t.Fatalf("ids = %v", got)
	}
	if !songs[0].HasBacking || songs[0].Kind != "rock" {
		t.Fatalf("song 1 = %+v", songs[0])
	}
	if songs[1].HasBacking || songs[1].Kind != "" {
		t.Fatalf("song 2 = %+v", songs[1])
	}
	if !songs[2].HasBacking || songs[2].Kind != "" {
		t.Fatalf("song 5 = %+v", songs[2])
	}
}

func TestLoad_BOMAndHeaderOnly(t *testing.T) {
	songs, st, err := Load(strings.NewReader("\ufeffid;title;artist;backing\n"), EncodingUTF8)
	if err != nil || len(songs) != 0 || st.Skipped != 0 {
		t.Fatalf("header only: songs=%v st=%+v err=%v", songs, st, err)
	}
	songs, _, err = Load(strings.NewReader(""), EncodingUTF8)
	if err != nil || len(songs) != 0 {
		t.Fatalf("empty input: songs=%v err=%v", songs, err)
	}
}

func TestLoad_CP1251(t *testing.T) {
	raw, err := charmap.Windows1251.NewEncoder().String("id;title;artist;backing\n7;Группа крови;Кино;+\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	songs, _, err := Load(strings.NewReader(raw), "CP1251")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "Группа крови" || songs[0].Artist != "Кино" {
		t.Fatalf("songs = %+v", songs)
	}
}

func TestLoad_UnsupportedEncoding(t *testing.T) {
	_, _, err := Load(strings.NewReader(csvFixture), "latin9")
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("err = %v; want ErrUnsupportedEncoding", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "songs.csv")
	if err := os.WriteFile(p, []byte(csvFixture), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	songs, _, err := LoadFile(p, EncodingUTF8)
	if err != nil || len(songs) != 3 {
		t.Fatalf("LoadFile: %d songs, err=%v", len(songs), err)
	}
	if _, _, err := LoadFile(filepath.Join(dir, "missing.csv"), ""); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v", err)
	}
}
