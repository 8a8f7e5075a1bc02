// Package extract turns queries (watch URLs, playlist URLs, generic URLs)
// into playable entries: title, duration, uploader info and a stream locator.
// The resolver sits on top and adds caching and free-text search.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrUnavailable is returned when a query yields no playable entries.
var ErrUnavailable = errors.New("no playable entries")

// Entry is one item produced by an extractor. For playlist queries the
// extractor returns the entries in playlist order.
type Entry struct {
	ID        string
	Extractor string

	Title    string
	Duration time.Duration

	StreamURL string // remote audio URL
	LocalPath string // downloaded file when the download step ran

	Uploader    string
	UploaderURL string
	Thumbnail   string
	WebpageURL  string
}

// Unavailable reports whether the entry cannot be played (deleted or
// region-blocked playlist items come back hollow).
func (e Entry) Unavailable() bool {
	return e.ID == "" || (e.StreamURL == "" && e.LocalPath == "")
}

// Locator prefers the downloaded file over the remote stream URL.
func (e Entry) Locator() string {
	if e.LocalPath != "" {
		return e.LocalPath
	}
	return e.StreamURL
}

// Extractor resolves a URL query into one or more entries. With download set
// the stream is fetched to local cache as part of extraction, so playback
// does not pay the cost later.
type Extractor interface {
	Extract(ctx context.Context, query string, download bool) ([]Entry, error)
	Name() string
}

var youtubeRegex = regexp.MustCompile(`(?:https?://)?(?:www\.|music\.)?(youtube\.com|youtu\.be)/\S+`)

func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func IsYouTubeURL(s string) bool {
	return youtubeRegex.MatchString(s)
}

// WatchID pulls the video id out of a YouTube watch link. The second return
// is false for anything else.
func WatchID(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch u.Hostname() {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		return id, id != ""
	case "www.youtube.com", "youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			id := u.Query().Get("v")
			return id, id != ""
		}
	}
	return "", false
}

// IsPlaylistURL reports whether the link addresses a whole playlist rather
// than a single video.
func IsPlaylistURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "www.youtube.com", "youtube.com", "music.youtube.com":
		return u.Path == "/playlist" && u.Query().Get("list") != ""
	}
	return false
}

// CleanVideoURL strips tracking and playlist parameters from a watch link so
// equal videos produce equal cache keys.
func CleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch host := u.Hostname(); host {
	case "youtu.be":
		vid := strings.Trim(u.Path, "/")
		if vid == "" {
			return raw
		}
		return fmt.Sprintf("https://youtu.be/%s", vid)
	case "www.youtube.com", "youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			if vid := u.Query().Get("v"); vid != "" {
				return fmt.Sprintf("https://%s/watch?v=%s", host, vid)
			}
		}
		return raw
	default:
		return raw
	}
}

// WatchURL builds the canonical watch link for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
