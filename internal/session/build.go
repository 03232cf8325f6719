package session

import (
	"time"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// BuildMetadata projects the current item. Artwork is omitted unless
// coverOnLockScreen is set.
func BuildMetadata(snap playback.Snapshot, coverOnLockScreen bool) Metadata {
	if !snap.HasCurrent {
		return Metadata{}
	}
	item := snap.Current
	m := Metadata{
		ID:        item.ID,
		Title:     item.DisplayTitle(),
		Artist:    item.Artist,
		Album:     item.Album,
		Duration:  item.Duration,
		IsVideo:   item.IsVideo && !item.ForceAudio,
		IsPodcast: item.IsPodcast,
	}
	if snap.Transport.Length > 0 {
		m.Duration = snap.Transport.Length
	}
	if coverOnLockScreen {
		m.ArtURL = ArtURL(item.ArtworkRef)
	}
	return m
}

// ArtURL turns an artwork reference into a URL. Local paths become file
// URLs.
func ArtURL(ref string) string {
	if ref == "" {
		return ""
	}
	probe := playlist.MediaItem{URI: ref}
	if p, ok := probe.LocalPath(); ok {
		return "file://" + p
	}
	return ref
}

// BuildActions computes the actions available in snap.
func BuildActions(snap playback.Snapshot) Action {
	var a Action
	switch snap.Transport.Mode {
	case playback.ModePlaying:
		a |= ActionPause | ActionStop
	case playback.ModePaused:
		a |= ActionPlay | ActionStop
	default:
		a |= ActionPlay
	}

	repeating := snap.Repeat != playlist.RepeatNone
	seekable := snap.Transport.Seekable
	if repeating || snap.HasNext {
		a |= ActionSkipNext
	}
	if repeating || snap.HasPrevious || (seekable && !snap.PodcastMode) {
		a |= ActionSkipPrevious
	}
	if seekable {
		a |= ActionSeek | ActionSetRate
	}
	if snap.CanRepeat {
		a |= ActionSetRepeat
	}
	if snap.CanShuffle {
		a |= ActionSetShuffle
	}
	if len(snap.Items) > 0 {
		a |= ActionSkipToQueueItem
	}
	return a | ActionPlayFromSearch
}

// BuildCustomActions returns the podcast or car mode controls.
func BuildCustomActions(snap playback.Snapshot) []CustomAction {
	var out []CustomAction
	if snap.PodcastMode {
		out = append(out,
			CustomAction{ID: CustomSeekBack, Label: "Rewind 10s"},
			CustomAction{ID: CustomSeekForward, Label: "Forward 30s"},
			CustomAction{ID: CustomSpeed, Label: "Speed"},
			CustomAction{ID: CustomBookmark, Label: "Bookmark"},
		)
	}
	if snap.CarMode {
		if snap.CanShuffle {
			out = append(out, CustomAction{ID: CustomShuffle, Label: "Shuffle"})
		}
		if snap.CanRepeat {
			out = append(out, CustomAction{ID: CustomRepeat, Label: "Repeat"})
		}
	}
	return out
}

// BuildState projects the transport of snap.
func BuildState(snap playback.Snapshot, now time.Time) State {
	st := State{
		Status:      statusOf(snap.Transport.Mode),
		Position:    snap.Transport.Time,
		Rate:        snap.Transport.Rate,
		CanSeek:     snap.Transport.Seekable,
		Actions:     BuildActions(snap),
		Custom:      BuildCustomActions(snap),
		ActiveIndex: snap.Index,
		Repeat:      snap.Repeat,
		Shuffle:     snap.Shuffle,
		UpdatedAt:   now,
	}
	if snap.Transport.LastErr != nil && snap.Transport.Mode == playback.ModeError {
		st.Error = snap.Transport.LastErr.Error()
	}
	return st
}

func statusOf(m playback.Mode) Status {
	switch m {
	case playback.ModePlaying:
		return StatusPlaying
	case playback.ModePaused:
		return StatusPaused
	case playback.ModeStopped:
		return StatusStopped
	case playback.ModeError:
		return StatusError
	default:
		return StatusIdle
	}
}
