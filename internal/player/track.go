package player

import "time"

// Track is the resolved, immutable metadata for one playable item. It is
// built once by the resolver (from the song cache or a live extraction) and
// never mutated afterwards.
type Track struct {
	SourceID  string // extractor-specific id, cache key together with Extractor
	Extractor string

	Title    string
	Duration time.Duration

	// StreamURL is the playable locator: a resolvable audio URL or a local
	// file path when the extractor downloaded the stream.
	StreamURL string

	Uploader    string
	UploaderURL string
	Thumbnail   string
	WebpageURL  string

	RequestedBy string
}

// Locator returns what the transport should actually open.
func (t *Track) Locator() string {
	return t.StreamURL
}

// ShareURL returns the address worth writing into a saved queue: the public
// page when known, the raw locator otherwise.
func (t *Track) ShareURL() string {
	if t.WebpageURL != "" {
		return t.WebpageURL
	}
	return t.StreamURL
}
