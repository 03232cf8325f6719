package playlist

import (
	"slices"

	"github.com/samber/lo"
)

// Repeat returns the repeat mode.
func (p *Playlist) Repeat() RepeatMode {
	return p.repeat
}

// SetRepeat changes the repeat mode.
func (p *Playlist) SetRepeat(mode RepeatMode) {
	p.repeat = mode
	p.refresh()
}

// Shuffling reports whether shuffle is on.
func (p *Playlist) Shuffling() bool {
	return p.shuffle
}

// CanShuffle reports whether the playlist is long enough to shuffle.
func (p *Playlist) CanShuffle() bool {
	return len(p.items) > 2
}

// CanRepeat reports whether repeat modes make sense.
func (p *Playlist) CanRepeat() bool {
	return len(p.items) > 0
}

// SetShuffle turns shuffle on or off. Turning it on is refused for
// playlists of two items or less.
func (p *Playlist) SetShuffle(on bool) bool {
	if on && !p.CanShuffle() {
		return false
	}
	if p.shuffle == on {
		return true
	}
	p.shuffle = on
	p.history = p.history[:0]
	p.refresh()
	return true
}

// ToggleShuffle flips the shuffle flag and returns the new value.
func (p *Playlist) ToggleShuffle() bool {
	p.SetShuffle(!p.shuffle)
	return p.shuffle
}

// HasNext reports whether Next would move to an item.
func (p *Playlist) HasNext() bool {
	return p.next != -1
}

// HasPrevious reports whether Previous would move to an item.
func (p *Playlist) HasPrevious() bool {
	return p.prev != -1
}

// NextIndex returns the index Next would select, -1 if none.
func (p *Playlist) NextIndex() int {
	return p.next
}

// PreviousIndex returns the index Previous would select, -1 if none.
func (p *Playlist) PreviousIndex() int {
	return p.prev
}

// Next moves to the next item. In RepeatOne the current item stays selected.
func (p *Playlist) Next() (MediaItem, bool) {
	if p.next == -1 {
		return MediaItem{}, false
	}
	if p.shuffle && p.next != p.current {
		p.pushHistory(p.current)
	}
	p.current = p.next
	p.refresh()
	return p.Current()
}

// Previous moves to the previous item.
func (p *Playlist) Previous() (MediaItem, bool) {
	if p.prev == -1 {
		return MediaItem{}, false
	}
	if p.shuffle && len(p.history) > 0 {
		p.history = p.history[:len(p.history)-1]
	}
	p.current = p.prev
	p.refresh()
	return p.Current()
}

// JumpTo selects the item at index.
func (p *Playlist) JumpTo(index int) (MediaItem, bool) {
	if index < 0 || index >= len(p.items) {
		return MediaItem{}, false
	}
	if p.shuffle && index != p.current {
		p.pushHistory(p.current)
	}
	p.current = index
	p.refresh()
	return p.Current()
}

func (p *Playlist) pushHistory(index int) {
	if index < 0 || slices.Contains(p.history, index) {
		return
	}
	p.history = append(p.history, index)
}

// refresh recomputes the next and previous indices after every mutation so
// that HasNext and Next agree on the shuffled pick.
func (p *Playlist) refresh() {
	size := len(p.items)
	if size == 0 {
		p.current, p.next, p.prev = -1, -1, -1
		return
	}
	if p.repeat == RepeatOne {
		p.next, p.prev = p.current, p.current
		return
	}

	if p.shuffle {
		p.prev = -1
		if len(p.history) > 0 {
			p.prev = p.history[len(p.history)-1]
		}
		candidates := p.unplayed()
		if len(candidates) == 0 {
			if p.repeat == RepeatNone {
				p.next = -1
				return
			}
			p.history = p.history[:0]
			candidates = p.unplayed()
		}
		p.next = p.sample(candidates)
		return
	}

	p.prev = p.current - 1
	if p.prev < 0 {
		p.prev = -1
		if p.repeat == RepeatAll {
			p.prev = size - 1
		}
	}
	p.next = p.current + 1
	if p.next >= size {
		p.next = -1
		if p.repeat == RepeatAll {
			p.next = 0
		}
	}
}

func (p *Playlist) unplayed() []int {
	return lo.Filter(lo.Range(len(p.items)), func(i int, _ int) bool {
		return i != p.current && !slices.Contains(p.history, i)
	})
}
