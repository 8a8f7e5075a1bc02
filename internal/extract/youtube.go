package extract

import (
	"context"
	"fmt"
	"net/http"
	"time"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

// YouTube resolves watch and playlist links natively, without spawning a
// process. It never writes files; entries carry the remote stream URL, which
// the voice transport plays directly.
type YouTube struct {
	client *youtube.Client
	log    zerolog.Logger
}

func NewYouTube(log zerolog.Logger) *YouTube {
	return &YouTube{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		},
		log: log.With().Str("extractor", "youtube").Logger(),
	}
}

func (y *YouTube) Name() string { return "youtube" }

// Extract handles YouTube links only; anything else falls through to the
// next extractor. The download flag is ignored, playback streams remotely.
func (y *YouTube) Extract(ctx context.Context, query string, download bool) ([]Entry, error) {
	if !IsYouTubeURL(query) {
		return nil, fmt.Errorf("youtube extractor: not a youtube link")
	}

	if IsPlaylistURL(query) {
		return y.extractPlaylist(ctx, query)
	}

	entry, err := y.extractVideo(ctx, query)
	if err != nil {
		return nil, err
	}
	return []Entry{entry}, nil
}

func (y *YouTube) extractVideo(ctx context.Context, query string) (Entry, error) {
	video, err := y.client.GetVideoContext(ctx, query)
	if err != nil {
		return Entry{}, fmt.Errorf("youtube video: %w", err)
	}
	return y.videoEntry(ctx, video)
}

func (y *YouTube) extractPlaylist(ctx context.Context, query string) ([]Entry, error) {
	playlist, err := y.client.GetPlaylistContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("youtube playlist: %w", err)
	}

	entries := make([]Entry, 0, len(playlist.Videos))
	for _, item := range playlist.Videos {
		video, err := y.client.VideoFromPlaylistEntryContext(ctx, item)
		if err != nil {
			y.log.Warn().Err(err).Str("video", item.ID).Msg("skipping playlist entry")
			entries = append(entries, Entry{ID: item.ID, Extractor: "youtube"})
			continue
		}
		entry, err := y.videoEntry(ctx, video)
		if err != nil {
			y.log.Warn().Err(err).Str("video", item.ID).Msg("skipping playlist entry")
			entries = append(entries, Entry{ID: item.ID, Extractor: "youtube"})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (y *YouTube) videoEntry(ctx context.Context, video *youtube.Video) (Entry, error) {
	formats := video.Formats.WithAudioChannels().Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return Entry{}, fmt.Errorf("youtube video %s: no audio formats", video.ID)
	}
	formats.Sort()

	streamURL, err := y.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return Entry{}, fmt.Errorf("youtube stream url: %w", err)
	}

	entry := Entry{
		ID:         video.ID,
		Extractor:  "youtube",
		Title:      video.Title,
		Duration:   video.Duration,
		StreamURL:  streamURL,
		Uploader:   video.Author,
		WebpageURL: WatchURL(video.ID),
	}
	if video.ChannelID != "" {
		entry.UploaderURL = "https://www.youtube.com/channel/" + video.ChannelID
	}
	if len(video.Thumbnails) > 0 {
		entry.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}
	return entry, nil
}
