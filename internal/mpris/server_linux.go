//go:build linux

package mpris

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/session"
)

// New starts an MPRIS server named name that forwards client commands to
// ctrl.
func New(name string, ctrl Controller) (*Surface, error) {
	s := newSurface(ctrl)
	srv := server.NewServer(name, &rootAdapter{identity: name}, &playerAdapter{surface: s})
	s.signals = eventSignals{ev: events.NewEventHandler(srv)}
	s.closer = srv.Stop

	go func() {
		if err := srv.Listen(); err != nil {
			s.log.WithError(err).Warn("mpris server stopped")
		}
	}()
	return s, nil
}

type eventSignals struct {
	ev *events.EventHandler
}

func (e eventSignals) PlaybackChanged() error { return e.ev.Player.OnPlayPause() }
func (e eventSignals) MetadataChanged() error { return e.ev.Player.OnTitle() }
func (e eventSignals) OptionsChanged() error  { return e.ev.Player.OnOptions() }

func (e eventSignals) Seeked(pos time.Duration) error {
	return e.ev.Player.OnSeek(types.Microseconds(pos.Microseconds()))
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - the daemon manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/x-wav", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and optional interfaces.
type playerAdapter struct {
	surface *Surface
}

func (p *playerAdapter) ctrl() Controller { return p.surface.ctrl }

func (p *playerAdapter) Next() error {
	p.ctrl().SkipNext(false)
	return nil
}

func (p *playerAdapter) Previous() error {
	p.ctrl().SkipPrevious(false)
	return nil
}

func (p *playerAdapter) Pause() error {
	p.ctrl().Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.ctrl().TogglePlay()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.ctrl().Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	p.ctrl().Play()
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	p.ctrl().SeekBy(time.Duration(offset) * time.Microsecond)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.ctrl().Seek(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(uri string) error {
	p.ctrl().Load([]playlist.MediaItem{{ID: uri, URI: uri}}, 0)
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	_, st := p.surface.snapshot()
	switch st.Status {
	case session.StatusPlaying:
		return types.PlaybackStatusPlaying, nil
	case session.StatusPaused:
		return types.PlaybackStatusPaused, nil
	case session.StatusIdle, session.StatusStopped, session.StatusError:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	_, st := p.surface.snapshot()
	return st.Rate, nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	p.ctrl().SetRate(rate, false)
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	m, _ := p.surface.snapshot()
	if m.ID == "" {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(m.ID)),
		Length:  types.Microseconds(m.Duration.Microseconds()),
		Title:   m.Title,
		Album:   m.Album,
		ArtUrl:  m.ArtURL,
	}
	if m.Artist != "" {
		meta.Artist = []string{m.Artist}
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume is left to the system mixer
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return p.surface.position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 0.25, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 4.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	_, st := p.surface.snapshot()
	return st.Actions.Has(session.ActionSkipNext), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	_, st := p.surface.snapshot()
	return st.Actions.Has(session.ActionSkipPrevious), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	_, st := p.surface.snapshot()
	return st.ActiveIndex >= 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	_, st := p.surface.snapshot()
	return st.ActiveIndex >= 0, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	_, st := p.surface.snapshot()
	return st.CanSeek, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	_, st := p.surface.snapshot()
	switch st.Repeat {
	case playlist.RepeatOne:
		return types.LoopStatusTrack, nil
	case playlist.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case playlist.RepeatNone:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.ctrl().SetRepeatMode(playlist.RepeatNone)
	case types.LoopStatusTrack:
		p.ctrl().SetRepeatMode(playlist.RepeatOne)
	case types.LoopStatusPlaylist:
		p.ctrl().SetRepeatMode(playlist.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	_, st := p.surface.snapshot()
	return st.Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.ctrl().SetShuffle(shuffle)
	return nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
