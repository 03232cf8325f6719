package playlist

import "testing"

func TestMediaItem_IsStream(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"http://radio.example/stream", true},
		{"HTTPS://radio.example/stream", true},
		{"rtsp://cam.local/live", true},
		{"file:///music/a.flac", false},
		{"/music/a.flac", false},
	}
	for _, tt := range tests {
		if got := (MediaItem{URI: tt.uri}).IsStream(); got != tt.want {
			t.Errorf("IsStream(%q) = %v, want %v", tt.uri, got, tt.want)
		}
	}
}

func TestMediaItem_DisplayTitle(t *testing.T) {
	if got := (MediaItem{URI: "file:///music/a.flac"}).DisplayTitle(); got != "a.flac" {
		t.Errorf("DisplayTitle() = %q, want a.flac", got)
	}
	if got := (MediaItem{Title: "Song", URI: "/x.mp3"}).DisplayTitle(); got != "Song" {
		t.Errorf("DisplayTitle() = %q, want Song", got)
	}
}
