// Package resolver turns user queries into playable tracks. It checks the
// song metadata cache first (by source id for recognizable watch links, by
// title for everything else), falls back to live extraction, and writes new
// results back into the cache.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"jukebox/internal/extract"
	"jukebox/internal/metastore"
	"jukebox/internal/player"
)

// ErrNoResults is returned when a query matches nothing playable.
var ErrNoResults = errors.New("no playable results for query")

// Cache is the part of the metadata store the resolver needs.
type Cache interface {
	LookupSource(ctx context.Context, sourceID, extractor string) (*metastore.Song, bool, error)
	LookupTitle(ctx context.Context, title string) (*metastore.Song, bool, error)
	Insert(ctx context.Context, song *metastore.Song) error
}

type Resolver struct {
	cache     Cache
	extractor extract.Extractor
	search    func(query string) (string, error)
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// Options configures a Resolver. Search defaults to the YouTube free-text
// lookup; ExtractRate throttles live extractions (cache hits bypass it).
type Options struct {
	Cache       Cache
	Extractor   extract.Extractor
	Search      func(query string) (string, error)
	ExtractRate float64
	Logger      zerolog.Logger
}

func New(opts Options) *Resolver {
	if opts.Search == nil {
		opts.Search = extract.SearchFirstURL
	}
	if opts.ExtractRate <= 0 {
		opts.ExtractRate = 2
	}
	return &Resolver{
		cache:     opts.Cache,
		extractor: opts.Extractor,
		search:    opts.Search,
		limiter:   rate.NewLimiter(rate.Limit(opts.ExtractRate), 1),
		log:       opts.Logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve produces one track for a single-item query and an ordered list for
// playlist queries. Unavailable playlist entries are skipped; a query whose
// entries are all unavailable fails with ErrNoResults.
func (r *Resolver) Resolve(ctx context.Context, query, requestedBy string) ([]*player.Track, error) {
	if track, ok := r.fromCache(ctx, query, requestedBy); ok {
		return []*player.Track{track}, nil
	}

	target := query
	if !extract.IsURL(query) {
		url, err := r.search(query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
		}
		target = url
		// The search may land on a video someone else already resolved.
		if track, ok := r.fromCache(ctx, target, requestedBy); ok {
			return []*player.Track{track}, nil
		}
	} else if !extract.IsPlaylistURL(target) {
		target = extract.CleanVideoURL(target)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	entries, err := r.extractor.Extract(ctx, target, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}

	tracks := make([]*player.Track, 0, len(entries))
	for _, e := range entries {
		if e.Unavailable() {
			continue
		}
		tracks = append(tracks, entryTrack(e, requestedBy))
		r.remember(ctx, e)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: all entries unavailable", ErrNoResults)
	}

	r.log.Info().Str("query", query).Int("tracks", len(tracks)).Msg("resolved")
	return tracks, nil
}

// fromCache services watch links by (video id, "youtube") and bare text by
// exact title, without touching the network.
func (r *Resolver) fromCache(ctx context.Context, query, requestedBy string) (*player.Track, bool) {
	var (
		song *metastore.Song
		ok   bool
		err  error
	)
	if id, isWatch := extract.WatchID(query); isWatch {
		song, ok, err = r.cache.LookupSource(ctx, id, "youtube")
	} else if !extract.IsURL(query) {
		song, ok, err = r.cache.LookupTitle(ctx, query)
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("cache lookup failed, falling back to extraction")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	r.log.Debug().Str("source", song.SourceID).Msg("cache hit")
	return songTrack(song, requestedBy), true
}

// remember inserts a live result into the cache. Duplicate keys from racing
// resolutions are tolerated by the store; other failures only cost the next
// caller an extraction.
func (r *Resolver) remember(ctx context.Context, e extract.Entry) {
	err := r.cache.Insert(ctx, &metastore.Song{
		SourceID:    e.ID,
		Extractor:   e.Extractor,
		Title:       e.Title,
		Duration:    e.Duration,
		StreamURL:   e.Locator(),
		Uploader:    e.Uploader,
		UploaderURL: e.UploaderURL,
		Thumbnail:   e.Thumbnail,
		WebpageURL:  e.WebpageURL,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("source", e.ID).Msg("cache insert failed")
	}
}

func entryTrack(e extract.Entry, requestedBy string) *player.Track {
	return &player.Track{
		SourceID:    e.ID,
		Extractor:   e.Extractor,
		Title:       e.Title,
		Duration:    e.Duration,
		StreamURL:   e.Locator(),
		Uploader:    e.Uploader,
		UploaderURL: e.UploaderURL,
		Thumbnail:   e.Thumbnail,
		WebpageURL:  e.WebpageURL,
		RequestedBy: requestedBy,
	}
}

func songTrack(s *metastore.Song, requestedBy string) *player.Track {
	return &player.Track{
		SourceID:    s.SourceID,
		Extractor:   s.Extractor,
		Title:       s.Title,
		Duration:    s.Duration,
		StreamURL:   s.StreamURL,
		Uploader:    s.Uploader,
		UploaderURL: s.UploaderURL,
		Thumbnail:   s.Thumbnail,
		WebpageURL:  s.WebpageURL,
		RequestedBy: requestedBy,
	}
}
