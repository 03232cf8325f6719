package playback

import (
	"errors"
	"time"

	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// ErrClosed is returned by Flush once the service is shut down.
var ErrClosed = errors.New("playback service closed")

const errorBurstWindow = 500 * time.Millisecond

// errorCoalescer turns a burst of item failures into a single generic
// message. The first two failures get their own message, later ones get
// the generic text, and those arriving within errorBurstWindow of the
// previous one are dropped.
type errorCoalescer struct {
	count int
	last  time.Time
}

func (c *errorCoalescer) message(now time.Time, item playlist.MediaItem, err error) (string, bool) {
	if c.count > 2 && now.Sub(c.last) < errorBurstWindow {
		return "", false
	}
	text := errmsg.Format(errmsg.OpPlay, item.DisplayTitle(), err)
	if c.count >= 2 {
		text = errmsg.MultipleErrors
	}
	c.count++
	c.last = now
	return text, true
}

func (c *errorCoalescer) reset() {
	c.count = 0
}
