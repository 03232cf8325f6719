package playlist

import (
	"slices"

	"github.com/samber/lo"
)

// RepeatMode controls what happens when the end of the playlist is reached.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatOne
	RepeatAll
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatNone:
		return "none"
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses the names returned by String.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch s {
	case "none", "off":
		return RepeatNone, true
	case "one", "track":
		return RepeatOne, true
	case "all", "playlist":
		return RepeatAll, true
	}
	return RepeatNone, false
}

// Playlist holds the ordered items, the current index and the repeat and
// shuffle modes. It is not safe for concurrent use; the playback actor owns it.
//
// Invariant: when the playlist is non-empty, 0 <= CurrentIndex() < Len().
// When empty, CurrentIndex() is -1.
type Playlist struct {
	items   []MediaItem
	current int
	repeat  RepeatMode
	shuffle bool

	// history holds the indices already played in shuffle mode, most recent last.
	history []int
	next    int
	prev    int

	sample func([]int) int
}

// New creates an empty playlist.
func New() *Playlist {
	return &Playlist{
		current: -1,
		next:    -1,
		prev:    -1,
		sample:  lo.Sample[int],
	}
}

// Load replaces the content of the playlist and selects start.
// An out of range start is clamped.
func (p *Playlist) Load(items []MediaItem, start int) {
	p.items = slices.Clone(items)
	p.history = p.history[:0]
	if len(p.items) == 0 {
		p.current = -1
	} else {
		p.current = min(max(start, 0), len(p.items)-1)
	}
	if !p.CanShuffle() {
		p.shuffle = false
	}
	p.refresh()
}

// Append adds items at the end. On an empty playlist it behaves like Load
// with start and reports loaded=true.
func (p *Playlist) Append(items []MediaItem, start int) (loaded bool) {
	if len(items) == 0 {
		return false
	}
	if p.IsEmpty() {
		p.Load(items, start)
		return true
	}
	p.items = append(p.items, items...)
	p.refresh()
	return false
}

// Insert adds items before position. Inserting at or before the current
// index shifts the current index so the same item stays current.
func (p *Playlist) Insert(position int, items []MediaItem) (loaded bool) {
	if len(items) == 0 {
		return false
	}
	if p.IsEmpty() {
		p.Load(items, 0)
		return true
	}
	position = min(max(position, 0), len(p.items))
	p.items = slices.Insert(p.items, position, items...)
	if position <= p.current {
		p.current += len(items)
	}
	for i, h := range p.history {
		if h >= position {
			p.history[i] = h + len(items)
		}
	}
	p.refresh()
	return false
}

// InsertNext adds items right after the current one.
func (p *Playlist) InsertNext(items []MediaItem) (loaded bool) {
	return p.Insert(p.current+1, items)
}

// Move moves the item at from to index to. Returns false if either index
// is out of bounds.
func (p *Playlist) Move(from, to int) bool {
	if from < 0 || from >= len(p.items) || to < 0 || to >= len(p.items) {
		return false
	}
	if from == to {
		return true
	}
	item := p.items[from]
	p.items = slices.Delete(p.items, from, from+1)
	p.items = slices.Insert(p.items, to, item)

	switch {
	case from == p.current:
		p.current = to
	case from < p.current && to >= p.current:
		p.current--
	case from > p.current && to <= p.current:
		p.current++
	}
	p.history = p.history[:0]
	p.refresh()
	return true
}

// RemoveAt removes the item at index. When the current item is removed the
// index keeps pointing at the following item, or is clamped to the last one.
func (p *Playlist) RemoveAt(index int) (removedCurrent, ok bool) {
	if index < 0 || index >= len(p.items) {
		return false, false
	}
	p.items = slices.Delete(p.items, index, index+1)

	history := p.history[:0]
	for _, h := range p.history {
		switch {
		case h < index:
			history = append(history, h)
		case h > index:
			history = append(history, h-1)
		}
	}
	p.history = history

	switch {
	case len(p.items) == 0:
		p.current = -1
		removedCurrent = true
	case index < p.current:
		p.current--
	case index == p.current:
		removedCurrent = true
		if p.current >= len(p.items) {
			if p.repeat == RepeatAll {
				p.current = 0
			} else {
				p.current = len(p.items) - 1
			}
		}
	}
	if !p.CanShuffle() {
		p.shuffle = false
	}
	p.refresh()
	return removedCurrent, true
}

// Clear removes all items.
func (p *Playlist) Clear() {
	p.Load(nil, 0)
}

// Replace swaps every item sharing item.ID for item and returns how many
// were replaced.
func (p *Playlist) Replace(item MediaItem) int {
	n := 0
	for i := range p.items {
		if p.items[i].ID == item.ID {
			p.items[i] = item
			n++
		}
	}
	return n
}

// Items returns a copy of all items.
func (p *Playlist) Items() []MediaItem {
	return slices.Clone(p.items)
}

// Item returns the item at index.
func (p *Playlist) Item(index int) (MediaItem, bool) {
	if index < 0 || index >= len(p.items) {
		return MediaItem{}, false
	}
	return p.items[index], true
}

// Current returns the current item.
func (p *Playlist) Current() (MediaItem, bool) {
	return p.Item(p.current)
}

// CurrentIndex returns the current index, -1 when empty.
func (p *Playlist) CurrentIndex() int {
	return p.current
}

// Len returns the number of items.
func (p *Playlist) Len() int {
	return len(p.items)
}

// IsEmpty reports whether the playlist has no items.
func (p *Playlist) IsEmpty() bool {
	return len(p.items) == 0
}
