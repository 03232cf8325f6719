package lastfm

import "time"

// Track is one play as Last.fm sees it.
type Track struct {
	Artist    string
	Title     string
	Album     string
	Length    time.Duration
	StartedAt time.Time
}

// ScrobbleState tracks the current item.
type ScrobbleState struct {
	ItemID         string
	StartedAt      time.Time
	Length         time.Duration
	Scrobbled      bool
	NowPlayingSent bool
}
