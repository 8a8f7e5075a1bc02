package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Chain tries each extractor in order and returns the first usable result.
// The native YouTube extractor goes first for watch and playlist links
// because it is cheap; yt-dlp catches everything else.
type Chain struct {
	extractors []Extractor
	log        zerolog.Logger
}

func NewChain(log zerolog.Logger, extractors ...Extractor) *Chain {
	return &Chain{
		extractors: extractors,
		log:        log.With().Str("component", "extract").Logger(),
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Extract(ctx context.Context, query string, download bool) ([]Entry, error) {
	var errs []error
	for _, ex := range c.extractors {
		entries, err := ex.Extract(ctx, query, download)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ex.Name(), err))
			c.log.Debug().Err(err).Str("via", ex.Name()).Str("query", query).Msg("extractor failed, trying next")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if len(errs) == 0 {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("all extractors failed: %w", errors.Join(errs...))
}
