package session

import "github.com/llehouerou/wavesd/internal/playback"

// QueueBuilder decides when the queue must be republished. The car mode
// window and the empty queue are always published; the full list only
// when it changed since the last publish.
type QueueBuilder struct {
	published   bool
	lastVersion uint64
	lastCarMode bool
}

// Build returns the queue for snap and whether it should be published.
func (b *QueueBuilder) Build(snap playback.Snapshot) (Queue, bool) {
	q := Queue{
		Items:  make([]QueueItem, 0, snap.Window.Len()),
		Active: snap.Index,
	}
	for i, item := range snap.Window.Items {
		q.Items = append(q.Items, QueueItem{
			Index:    snap.Window.From + i,
			ID:       item.ID,
			Title:    item.DisplayTitle(),
			Subtitle: item.Artist,
		})
	}

	publish := len(snap.Items) == 0 ||
		snap.CarMode ||
		b.lastCarMode ||
		!b.published ||
		snap.QueueVersion != b.lastVersion

	if publish {
		b.published = true
		b.lastVersion = snap.QueueVersion
		b.lastCarMode = snap.CarMode
	}
	return q, publish
}
