package extract

import (
	"errors"
	"fmt"

	"github.com/raitonoberu/ytsearch"
)

// ErrNoVideoMatch is returned when a free-text search finds nothing.
var ErrNoVideoMatch = errors.New("no video found for the given query")

// SearchResult is one hit shown to the user or fed into the extractor.
type SearchResult struct {
	Title   string
	Channel string
	URL     string
}

// SearchFirstURL turns free-text into the watch URL of the best match.
func SearchFirstURL(query string) (string, error) {
	results, err := Search(query, 1)
	if err != nil {
		return "", err
	}
	return results[0].URL, nil
}

// Search returns up to limit matching videos.
func Search(query string, limit int) ([]SearchResult, error) {
	search := ytsearch.VideoSearch(query)
	page, err := search.Next()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	if len(page.Videos) == 0 {
		return nil, ErrNoVideoMatch
	}

	if limit <= 0 || limit > len(page.Videos) {
		limit = len(page.Videos)
	}
	out := make([]SearchResult, 0, limit)
	for _, v := range page.Videos[:limit] {
		channel := "Unknown Channel"
		if v.Channel.Title != "" {
			channel = v.Channel.Title
		}
		out = append(out, SearchResult{
			Title:   v.Title,
			Channel: channel,
			URL:     WatchURL(v.ID),
		})
	}
	return out, nil
}
