package extract

import "testing"

func TestWatchID(t *testing.T) {
	tests := []struct {
		in   string
		id   string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&list=PLx&index=3", "dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/playlist?list=PLx", "", false},
		{"https://example.com/watch?v=nope", "", false},
		{"plain text query", "", false},
	}
	for _, tt := range tests {
		id, ok := WatchID(tt.in)
		if ok != tt.want || id != tt.id {
			t.Errorf("WatchID(%q) = %q, %v; want %q, %v", tt.in, id, ok, tt.id, tt.want)
		}
	}
}

func TestIsPlaylistURL(t *testing.T) {
	if !IsPlaylistURL("https://www.youtube.com/playlist?list=PLabc") {
		t.Error("playlist link not recognized")
	}
	if IsPlaylistURL("https://www.youtube.com/watch?v=abc&list=PLabc") {
		t.Error("watch link with playlist context misclassified as playlist")
	}
	if IsPlaylistURL("https://example.com/playlist?list=PLabc") {
		t.Error("non-youtube host misclassified")
	}
}

func TestCleanVideoURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLx&index=4&t=30s",
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			"https://youtu.be/dQw4w9WgXcQ?si=tracking",
			"https://youtu.be/dQw4w9WgXcQ",
		},
		{
			"https://example.com/stream.mp3",
			"https://example.com/stream.mp3",
		},
	}
	for _, tt := range tests {
		if got := CleanVideoURL(tt.in); got != tt.want {
			t.Errorf("CleanVideoURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEntryUnavailable(t *testing.T) {
	if !(Entry{Title: "[Deleted video]"}).Unavailable() {
		t.Error("entry without id should be unavailable")
	}
	if !(Entry{ID: "x"}).Unavailable() {
		t.Error("entry without any locator should be unavailable")
	}
	if (Entry{ID: "x", StreamURL: "https://s"}).Unavailable() {
		t.Error("streamable entry misreported as unavailable")
	}
	if (Entry{ID: "x", LocalPath: "/cache/x.webm"}).Unavailable() {
		t.Error("downloaded entry misreported as unavailable")
	}
}

func TestEntryLocatorPrefersLocalFile(t *testing.T) {
	e := Entry{ID: "x", StreamURL: "https://s", LocalPath: "/cache/x.webm"}
	if e.Locator() != "/cache/x.webm" {
		t.Errorf("Locator = %q, want local path", e.Locator())
	}
	e.LocalPath = ""
	if e.Locator() != "https://s" {
		t.Errorf("Locator = %q, want stream url", e.Locator())
	}
}
