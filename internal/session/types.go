// Package session projects playback snapshots onto OS-level media session
// surfaces such as MPRIS.
package session

import (
	"strings"
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Action is a set of transport actions a surface may offer.
type Action uint32

const (
	ActionPlay Action = 1 << iota
	ActionPause
	ActionStop
	ActionSkipNext
	ActionSkipPrevious
	ActionSeek
	ActionSetRate
	ActionSetRepeat
	ActionSetShuffle
	ActionSkipToQueueItem
	ActionPlayFromSearch
)

var actionNames = []string{
	"play", "pause", "stop", "next", "previous", "seek",
	"rate", "repeat", "shuffle", "queue", "search",
}

// Has reports whether all actions in b are set.
func (a Action) Has(b Action) bool {
	return a&b == b
}

// Names lists the set actions.
func (a Action) Names() []string {
	names := []string{}
	for i, name := range actionNames {
		if a&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return names
}

func (a Action) String() string {
	return strings.Join(a.Names(), "|")
}

// Status is the transport status shown by a surface.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusStopped:
		return "Stopped"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Custom action identifiers.
const (
	CustomSeekBack    = "seek_back"
	CustomSeekForward = "seek_forward"
	CustomSpeed       = "speed"
	CustomBookmark    = "bookmark"
	CustomShuffle     = "shuffle"
	CustomRepeat      = "repeat"
)

// Seek amounts of the podcast custom actions.
const (
	SeekBackAmount    = 10 * time.Second
	SeekForwardAmount = 30 * time.Second
)

// CustomAction is an extra control offered in podcast or car mode.
type CustomAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Metadata describes the current item.
type Metadata struct {
	ID        string
	Title     string
	Artist    string
	Album     string
	ArtURL    string
	Duration  time.Duration
	IsVideo   bool
	IsPodcast bool
}

// State is the transport state with the actions currently available.
type State struct {
	Status      Status
	Position    time.Duration
	Rate        float64
	CanSeek     bool
	Actions     Action
	Custom      []CustomAction
	ActiveIndex int
	Repeat      playlist.RepeatMode
	Shuffle     bool
	Error       string
	UpdatedAt   time.Time
}

// QueueItem is one entry of a published queue. Index is the position in
// the playlist.
type QueueItem struct {
	Index    int
	ID       string
	Title    string
	Subtitle string
}

// Queue is the published play queue.
type Queue struct {
	Items  []QueueItem
	Active int
}

// Surface is an OS-level session endpoint.
type Surface interface {
	SetMetadata(m Metadata) error
	SetState(s State) error
	SetQueue(q Queue) error
	SetActive(active bool) error
}
