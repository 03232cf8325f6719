// Package player defines the playback engine contract consumed by the
// playback core, and a beep based implementation of it.
package player

import "time"

// EventType identifies an engine event.
type EventType int

const (
	EventPlaying EventType = iota
	EventPaused
	EventStopped
	EventPositionChanged
	EventLengthChanged
	EventEndReached
	EventTrackAdded
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventPlaying:
		return "Playing"
	case EventPaused:
		return "Paused"
	case EventStopped:
		return "Stopped"
	case EventPositionChanged:
		return "PositionChanged"
	case EventLengthChanged:
		return "LengthChanged"
	case EventEndReached:
		return "EndReached"
	case EventTrackAdded:
		return "TrackAdded"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// TrackType is the kind of elementary stream reported by EventTrackAdded.
type TrackType int

const (
	TrackAudio TrackType = iota
	TrackVideo
	TrackText
)

// Event is emitted by an Engine. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType
	Position  time.Duration
	Length    time.Duration
	TrackType TrackType
	Err       error
}

// Engine decodes and renders a single media item at a time.
//
// Events are delivered through the handler set with OnEvent. The handler may
// be called from any goroutine and must not block.
type Engine interface {
	Load(uri string) error
	Play()
	Pause()
	Stop()
	Seek(pos time.Duration, fast bool)
	Time() time.Duration
	Length() time.Duration
	SetRate(rate float64)
	Seekable() bool
	OnEvent(fn func(Event))
	Close() error
}
