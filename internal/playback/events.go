package playback

import (
	"time"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// Event is a message processed by the actor. The set of implementations is
// closed; handle switches over all of them.
type Event interface {
	event()
}

// Engine events carry the transport generation current when the engine
// emitted them; events from an older generation are dropped.
type engineEvent struct {
	ev  player.Event
	gen uint64
}

// Commands.
type (
	cmdPlay         struct{}
	cmdPause        struct{}
	cmdToggle       struct{}
	cmdStop         struct{}
	cmdSeekBy       struct{ delta time.Duration }
	cmdSkipNext     struct{ force bool }
	cmdSkipPrevious struct{ force bool }
	cmdShuffle      struct{}
	cmdSetShuffle   struct{ on bool }
	cmdSetRepeat    struct{ mode playlist.RepeatMode }
	cmdInsertNext   struct{ items []playlist.MediaItem }
	cmdMove         struct{ from, to int }
	cmdRemove       struct{ index int }
	cmdPlayIndex    struct{ index int }
	cmdCarMode      struct{ on bool }
	cmdHeadset      struct{ plugged bool }
	cmdBookmark     struct{}
)

type cmdSeek struct {
	pos  time.Duration
	fast bool
}

type cmdSetRate struct {
	rate    float64
	persist bool
}

type cmdLoad struct {
	items []playlist.MediaItem
	start int
}

type cmdAppend struct {
	items []playlist.MediaItem
	index int
}

type itemResolved struct {
	id   string
	item playlist.MediaItem
	err  error
}

// Callback registry operations.
type (
	callbackAdd    struct{ l Listener }
	callbackRemove struct{ l Listener }
)

// Publish requests.
type (
	publishShowNotification       struct{ force bool }
	publishInvalidateNotification struct{}
	publishHideNotification       struct{}
	publishUpdateMeta             struct{}
	publishUpdateState            struct{}
)

// Internal events.
type (
	restoreQueue struct{ saved SavedQueue }
	barrier      struct{ done chan struct{} }
)

func (engineEvent) event() {}

func (cmdPlay) event()         {}
func (cmdPause) event()        {}
func (cmdToggle) event()       {}
func (cmdStop) event()         {}
func (cmdSeek) event()         {}
func (cmdSeekBy) event()       {}
func (cmdSkipNext) event()     {}
func (cmdSkipPrevious) event() {}
func (cmdSetRate) event()      {}
func (cmdShuffle) event()      {}
func (cmdSetShuffle) event()   {}
func (cmdSetRepeat) event()    {}
func (cmdLoad) event()         {}
func (cmdAppend) event()       {}
func (cmdInsertNext) event()   {}
func (cmdMove) event()         {}
func (cmdRemove) event()       {}
func (cmdPlayIndex) event()    {}
func (cmdCarMode) event()      {}
func (cmdHeadset) event()      {}
func (cmdBookmark) event()     {}

func (callbackAdd) event()    {}
func (callbackRemove) event() {}

func (publishShowNotification) event()       {}
func (publishInvalidateNotification) event() {}
func (publishHideNotification) event()       {}
func (publishUpdateMeta) event()             {}
func (publishUpdateState) event()            {}

func (itemResolved) event() {}
func (restoreQueue) event() {}
func (barrier) event()      {}
