package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

func TestErrorCoalescer(t *testing.T) {
	var c errorCoalescer
	item := playlist.MediaItem{Title: "Intro"}
	err := errors.New("unsupported format")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		after    time.Duration
		wantText string
		wantOK   bool
	}{
		{0, "Failed to play 'Intro': unsupported format", true},
		{10 * time.Millisecond, "Failed to play 'Intro': unsupported format", true},
		{20 * time.Millisecond, "Playback failed for multiple items", true},
		{30 * time.Millisecond, "", false},
		{time.Second, "Playback failed for multiple items", true},
	}
	for i, step := range steps {
		text, ok := c.message(start.Add(step.after), item, err)
		if ok != step.wantOK || text != step.wantText {
			t.Errorf("step %d: message() = (%q, %v), want (%q, %v)", i, text, ok, step.wantText, step.wantOK)
		}
	}

	c.reset()
	if text, _ := c.message(start.Add(2*time.Second), item, err); text != steps[0].wantText {
		t.Errorf("after reset, message() = %q, want item message", text)
	}
}
