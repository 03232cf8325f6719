package playback

import "time"

// Mode is the playback mode owned by the actor.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlaying
	ModePaused
	ModeError
	ModeStopped
)

// String returns the mode name for debugging.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModePlaying:
		return "Playing"
	case ModePaused:
		return "Paused"
	case ModeError:
		return "Error"
	case ModeStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsActive reports whether the external session should be marked active.
func (m Mode) IsActive() bool {
	return m != ModeStopped
}

// TransportState describes the engine side of playback.
type TransportState struct {
	Mode     Mode
	Time     time.Duration
	Length   time.Duration
	Rate     float64
	Seekable bool
	LastErr  error
}
