package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type scriptedExtractor struct {
	name    string
	entries []Entry
	err     error

	calls        int
	lastDownload bool
}

func (s *scriptedExtractor) Name() string { return s.name }

func (s *scriptedExtractor) Extract(ctx context.Context, query string, download bool) ([]Entry, error) {
	s.calls++
	s.lastDownload = download
	return s.entries, s.err
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	first := &scriptedExtractor{name: "first", entries: []Entry{{ID: "a", StreamURL: "https://s/a"}}}
	second := &scriptedExtractor{name: "second", entries: []Entry{{ID: "b", StreamURL: "https://s/b"}}}
	chain := NewChain(zerolog.Nop(), first, second)

	entries, err := chain.Extract(context.Background(), "https://youtu.be/a", true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Fatalf("entries = %+v, want the first extractor's result", entries)
	}
	if second.calls != 0 {
		t.Error("second extractor ran despite a usable first result")
	}
	if !first.lastDownload {
		t.Error("download flag not forwarded to the extractor")
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &scriptedExtractor{name: "first", err: errors.New("nope")}
	second := &scriptedExtractor{name: "second", entries: []Entry{{ID: "b", StreamURL: "https://s/b"}}}
	chain := NewChain(zerolog.Nop(), first, second)

	entries, err := chain.Extract(context.Background(), "https://example.com/x", true)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Fatalf("entries = %+v, want the fallback extractor's result", entries)
	}
	if !second.lastDownload {
		t.Error("download flag not forwarded to the fallback extractor")
	}
}

func TestChainReportsEveryFailure(t *testing.T) {
	first := &scriptedExtractor{name: "first", err: errors.New("no such video")}
	second := &scriptedExtractor{name: "second", err: errors.New("binary missing")}
	chain := NewChain(zerolog.Nop(), first, second)

	_, err := chain.Extract(context.Background(), "https://example.com/x", false)
	if err == nil {
		t.Fatal("Extract succeeded with only failing extractors")
	}
	for _, want := range []string{"first: no such video", "second: binary missing"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestYouTubeServesDownloadRequests(t *testing.T) {
	y := NewYouTube(zerolog.Nop())
	_, err := y.Extract(context.Background(), "https://example.com/song.mp3", true)
	if err == nil {
		t.Fatal("expected a not-a-youtube-link error")
	}
	if !strings.Contains(err.Error(), "not a youtube link") {
		t.Errorf("err = %v, want rejection for the foreign host, not the download flag", err)
	}
}
