package metastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "songs.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSong(id, title string) *Song {
	return &Song{
		SourceID:   id,
		Extractor:  "youtube",
		Title:      title,
		Duration:   4 * time.Minute,
		StreamURL:  "https://stream.test/" + id,
		WebpageURL: "https://watch.test/" + id,
	}
}

func TestInsertAndLookupSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, sampleSong("v1", "first song")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok, err := s.LookupSource(ctx, "v1", "youtube")
	if err != nil || !ok {
		t.Fatalf("LookupSource = %v, %v, %v", got, ok, err)
	}
	if got.Title != "first song" || got.Duration != 4*time.Minute {
		t.Fatalf("song = %+v", got)
	}

	if _, ok, err := s.LookupSource(ctx, "v1", "soundcloud"); err != nil || ok {
		t.Fatalf("lookup with wrong extractor ok = %v, err = %v", ok, err)
	}
	if _, ok, err := s.LookupSource(ctx, "missing", "youtube"); err != nil || ok {
		t.Fatalf("lookup of missing id ok = %v, err = %v", ok, err)
	}
}

func TestInsertDuplicateIsIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, sampleSong("v1", "original title")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, sampleSong("v1", "racing title")); err != nil {
		t.Fatalf("duplicate Insert: %v", err)
	}

	got, _, err := s.LookupSource(ctx, "v1", "youtube")
	if err != nil {
		t.Fatalf("LookupSource: %v", err)
	}
	if got.Title != "original title" {
		t.Fatalf("first writer should win, got title %q", got.Title)
	}
}

func TestLookupTitlePrefersMostPlayed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, sampleSong("v1", "same title")); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, sampleSong("v2", "same title")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.IncrementPlayCount(ctx, "v2", "youtube"); err != nil {
			t.Fatal(err)
		}
	}

	got, ok, err := s.LookupTitle(ctx, "same title")
	if err != nil || !ok {
		t.Fatalf("LookupTitle = %v, %v", ok, err)
	}
	if got.SourceID != "v2" {
		t.Fatalf("LookupTitle returned %q, want the most played v2", got.SourceID)
	}
}

func TestIncrementPlayCountMissingRow(t *testing.T) {
	s := openTestStore(t)
	if err := s.IncrementPlayCount(context.Background(), "ghost", "youtube"); err != nil {
		t.Fatalf("IncrementPlayCount on missing row: %v", err)
	}
}

func TestTopPlayed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Insert(ctx, sampleSong(id, "song "+id)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		s.IncrementPlayCount(ctx, "b", "youtube")
	}
	s.IncrementPlayCount(ctx, "a", "youtube")

	top, err := s.TopPlayed(ctx, 10)
	if err != nil {
		t.Fatalf("TopPlayed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("TopPlayed len = %d, want 2 (never-played songs excluded)", len(top))
	}
	if top[0].SourceID != "b" || top[0].PlayCount != 5 {
		t.Fatalf("top song = %+v", top[0])
	}
}
