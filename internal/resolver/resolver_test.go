package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jukebox/internal/extract"
	"jukebox/internal/metastore"
)

type fakeCache struct {
	mu      sync.Mutex
	songs   map[string]*metastore.Song // keyed source_id|extractor
	byTitle map[string]*metastore.Song
	inserts int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		songs:   make(map[string]*metastore.Song),
		byTitle: make(map[string]*metastore.Song),
	}
}

func (c *fakeCache) put(s *metastore.Song) {
	c.songs[s.SourceID+"|"+s.Extractor] = s
	c.byTitle[s.Title] = s
}

func (c *fakeCache) LookupSource(ctx context.Context, sourceID, extractor string) (*metastore.Song, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.songs[sourceID+"|"+extractor]
	return s, ok, nil
}

func (c *fakeCache) LookupTitle(ctx context.Context, title string) (*metastore.Song, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byTitle[title]
	return s, ok, nil
}

func (c *fakeCache) Insert(ctx context.Context, song *metastore.Song) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserts++
	c.put(song)
	return nil
}

type fakeExtractor struct {
	mu      sync.Mutex
	entries []extract.Entry
	err     error
	calls   []string
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(ctx context.Context, query string, download bool) ([]extract.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	return f.entries, f.err
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func entry(id, title string) extract.Entry {
	return extract.Entry{
		ID:         id,
		Extractor:  "youtube",
		Title:      title,
		Duration:   3 * time.Minute,
		StreamURL:  "https://stream.test/" + id,
		WebpageURL: "https://www.youtube.com/watch?v=" + id,
	}
}

func newTestResolver(cache *fakeCache, ex *fakeExtractor, search func(string) (string, error)) *Resolver {
	return New(Options{
		Cache:       cache,
		Extractor:   ex,
		Search:      search,
		ExtractRate: 1000, // tests should not wait on the limiter
		Logger:      zerolog.Nop(),
	})
}

func TestResolveWatchLinkCacheHitSkipsExtraction(t *testing.T) {
	cache := newFakeCache()
	cache.put(&metastore.Song{
		SourceID:  "dQw4w9WgXcQ",
		Extractor: "youtube",
		Title:     "cached song",
		StreamURL: "https://stream.test/cached",
	})
	ex := &fakeExtractor{}
	r := newTestResolver(cache, ex, nil)

	tracks, err := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "cached song" {
		t.Fatalf("tracks = %v", tracks)
	}
	if tracks[0].RequestedBy != "alice" {
		t.Fatalf("RequestedBy = %q", tracks[0].RequestedBy)
	}
	if ex.callCount() != 0 {
		t.Fatalf("extractor ran %d times on a cache hit", ex.callCount())
	}
}

func TestResolveTitleCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.put(&metastore.Song{
		SourceID:  "abc",
		Extractor: "youtube",
		Title:     "some song",
		StreamURL: "https://stream.test/abc",
	})
	ex := &fakeExtractor{}
	r := newTestResolver(cache, ex, func(string) (string, error) {
		t.Fatal("search must not run on a title cache hit")
		return "", nil
	})

	tracks, err := r.Resolve(context.Background(), "some song", "bob")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tracks) != 1 || tracks[0].SourceID != "abc" {
		t.Fatalf("tracks = %v", tracks)
	}
}

func TestResolveFreeTextSearchesThenExtracts(t *testing.T) {
	cache := newFakeCache()
	ex := &fakeExtractor{entries: []extract.Entry{entry("vid1", "found song")}}
	searched := ""
	r := newTestResolver(cache, ex, func(q string) (string, error) {
		searched = q
		return "https://www.youtube.com/watch?v=vid1", nil
	})

	tracks, err := r.Resolve(context.Background(), "found song live", "carol")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if searched != "found song live" {
		t.Fatalf("search query = %q", searched)
	}
	if len(tracks) != 1 || tracks[0].SourceID != "vid1" {
		t.Fatalf("tracks = %v", tracks)
	}
	if cache.inserts != 1 {
		t.Fatalf("cache inserts = %d, want 1", cache.inserts)
	}
}

func TestResolveSearchFailure(t *testing.T) {
	r := newTestResolver(newFakeCache(), &fakeExtractor{}, func(string) (string, error) {
		return "", errors.New("no video found")
	})

	_, err := r.Resolve(context.Background(), "gibberish query", "dave")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestResolveSkipsUnavailablePlaylistEntries(t *testing.T) {
	cache := newFakeCache()
	ex := &fakeExtractor{entries: []extract.Entry{
		entry("v1", "first"),
		{ID: "", Title: "[Deleted video]"}, // hollow
		entry("v3", "third"),
	}}
	r := newTestResolver(cache, ex, nil)

	tracks, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PLx", "erin")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tracks) != 2 || tracks[0].SourceID != "v1" || tracks[1].SourceID != "v3" {
		t.Fatalf("tracks = %v", tracks)
	}
	if cache.inserts != 2 {
		t.Fatalf("cache inserts = %d, want 2 (hollow entry must not be cached)", cache.inserts)
	}
}

func TestResolveAllUnavailable(t *testing.T) {
	ex := &fakeExtractor{entries: []extract.Entry{
		{ID: "", Title: "[Deleted video]"},
		{ID: "v2"}, // no stream url
	}}
	r := newTestResolver(newFakeCache(), ex, nil)

	_, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PLy", "frank")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestResolveExtractionFailure(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("yt-dlp exploded")}
	r := newTestResolver(newFakeCache(), ex, nil)

	_, err := r.Resolve(context.Background(), "https://example.com/stream", "gina")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestResolveStripsPlaylistContextFromWatchLinks(t *testing.T) {
	ex := &fakeExtractor{entries: []extract.Entry{entry("vid9", "solo")}}
	r := newTestResolver(newFakeCache(), ex, nil)

	_, err := r.Resolve(context.Background(),
		"https://www.youtube.com/watch?v=vid9xxxxxxx&list=PLabc&index=4", "henry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ex.mu.Lock()
	got := ex.calls[0]
	ex.mu.Unlock()
	if got != "https://www.youtube.com/watch?v=vid9xxxxxxx" {
		t.Fatalf("extractor query = %q, want bare watch link", got)
	}
}
