package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// YTDLP shells out to the yt-dlp binary. It handles anything yt-dlp can
// open, which makes it the catch-all end of the extractor chain.
type YTDLP struct {
	// Binary overrides the executable name, for tests.
	Binary string
	// CacheDir receives downloaded audio files.
	CacheDir string

	Log zerolog.Logger
}

func NewYTDLP(cacheDir string, log zerolog.Logger) *YTDLP {
	return &YTDLP{
		Binary:   "yt-dlp",
		CacheDir: cacheDir,
		Log:      log.With().Str("extractor", "yt-dlp").Logger(),
	}
}

func (y *YTDLP) Name() string { return "yt-dlp" }

// ytdlpEntry is the subset of yt-dlp's per-entry JSON this bot needs.
type ytdlpEntry struct {
	ID           string  `json:"id"`
	Extractor    string  `json:"extractor"`
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	URL          string  `json:"url"`
	Filename     string  `json:"_filename"`
	Uploader     string  `json:"uploader"`
	UploaderURL  string  `json:"uploader_url"`
	ChannelURL   string  `json:"channel_url"`
	Thumbnail    string  `json:"thumbnail"`
	WebpageURL   string  `json:"webpage_url"`
	Availability string  `json:"availability"`

	Formats []struct {
		URL string `json:"url"`
	} `json:"formats"`
}

// Extract runs yt-dlp with one JSON document per entry on stdout, so single
// videos and playlists come through the same path. With download set the
// audio lands in CacheDir and the entry's locator becomes the local file.
func (y *YTDLP) Extract(ctx context.Context, query string, download bool) ([]Entry, error) {
	args := []string{
		"-j",
		"-f", "bestaudio",
		"--no-warnings",
		"--ignore-config",
		"-4",
	}
	if download {
		if err := os.MkdirAll(y.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create audio cache dir: %w", err)
		}
		args = append(args,
			"--no-simulate",
			"--no-overwrites",
			"-o", filepath.Join(y.CacheDir, "%(id)s.%(ext)s"),
		)
	}
	args = append(args, query)

	cmd := exec.CommandContext(ctx, y.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("yt-dlp start: %w", err)
	}

	var entries []Entry
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw ytdlpEntry
		if err := json.Unmarshal(line, &raw); err != nil {
			y.Log.Warn().Err(err).Msg("skipping unparseable yt-dlp entry")
			continue
		}
		entries = append(entries, raw.toEntry())
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		// Partial playlist output is still usable; fail only when nothing
		// came through.
		if len(entries) == 0 {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		y.Log.Warn().Err(err).Int("entries", len(entries)).Msg("yt-dlp exited non-zero, keeping partial result")
	}
	if scanErr != nil && len(entries) == 0 {
		return nil, fmt.Errorf("yt-dlp output: %w", scanErr)
	}
	return entries, nil
}

func (raw ytdlpEntry) toEntry() Entry {
	e := Entry{
		ID:          raw.ID,
		Extractor:   raw.Extractor,
		Title:       raw.Title,
		Duration:    time.Duration(raw.Duration * float64(time.Second)),
		StreamURL:   raw.URL,
		LocalPath:   raw.Filename,
		Uploader:    raw.Uploader,
		UploaderURL: raw.UploaderURL,
		Thumbnail:   raw.Thumbnail,
		WebpageURL:  raw.WebpageURL,
	}
	if e.UploaderURL == "" {
		e.UploaderURL = raw.ChannelURL
	}
	if e.StreamURL == "" && len(raw.Formats) > 0 {
		e.StreamURL = raw.Formats[0].URL
	}
	if raw.Availability != "" && raw.Availability != "public" && raw.Availability != "unlisted" {
		// Deleted and private playlist items show up with an availability
		// marker and no formats; leave them hollow so callers skip them.
		e.StreamURL = ""
		e.LocalPath = ""
	}
	return e
}
