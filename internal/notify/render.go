package notify

import (
	"strings"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

const defaultIcon = "audio-x-generic"

// Render builds the playback notification for snap.
func Render(snap playback.Snapshot) Notification {
	item := snap.Current
	n := Notification{
		Title:    item.DisplayTitle(),
		Body:     body(item),
		Icon:     Icon(item),
		Urgency:  UrgencyLow,
		Resident: true,
	}
	if snap.HasPrevious {
		n.Actions = append(n.Actions, Action{Key: ActionPrevious, Label: "Previous"})
	}
	if snap.IsPlaying() {
		n.Actions = append(n.Actions, Action{Key: ActionToggle, Label: "Pause"})
	} else {
		n.Actions = append(n.Actions, Action{Key: ActionToggle, Label: "Play"})
	}
	if snap.HasNext {
		n.Actions = append(n.Actions, Action{Key: ActionNext, Label: "Next"})
	}
	n.Actions = append(n.Actions, Action{Key: ActionStop, Label: "Stop"})
	return n
}

func body(item playlist.MediaItem) string {
	parts := make([]string, 0, 2)
	if item.Artist != "" {
		parts = append(parts, item.Artist)
	}
	if item.Album != "" {
		parts = append(parts, item.Album)
	}
	return strings.Join(parts, " - ")
}

// Icon returns the artwork path for item, or a generic icon name.
func Icon(item playlist.MediaItem) string {
	if item.ArtworkRef == "" {
		return defaultIcon
	}
	if strings.HasPrefix(item.ArtworkRef, "file://") {
		return strings.TrimPrefix(item.ArtworkRef, "file://")
	}
	if strings.Contains(item.ArtworkRef, "://") {
		return defaultIcon
	}
	return item.ArtworkRef
}
