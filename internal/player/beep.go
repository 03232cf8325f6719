package player

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
	extOpus = ".opus"

	speakerSampleRate = beep.SampleRate(44100)
	positionInterval  = 250 * time.Millisecond
	resampleQuality   = 4
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported format")

var speakerOnce struct {
	sync.Once
	err error
}

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerOnce.err = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	return speakerOnce.err
}

// transport is the engine's own state. Load leaves it paused at the start
// of the item; the end of the stream moves it back to stopped.
type transport int

const (
	transportStopped transport = iota
	transportPlaying
	transportPaused
)

// BeepEngine plays local files and HTTP streams through the beep speaker.
type BeepEngine struct {
	mu sync.Mutex

	state     transport
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	source    io.Closer
	seekable  bool
	rate      float64
	gen       int
	stopTick  chan struct{}

	onEvent func(Event)
	client  *http.Client
}

var _ Engine = (*BeepEngine)(nil)

// NewBeepEngine creates an engine. The speaker is initialized on first Load.
func NewBeepEngine() *BeepEngine {
	return &BeepEngine{
		rate:    1,
		onEvent: func(Event) {},
		client:  &http.Client{},
	}
}

// OnEvent sets the event handler.
func (e *BeepEngine) OnEvent(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn == nil {
		fn = func(Event) {}
	}
	e.onEvent = fn
}

// Load decodes uri and leaves the engine paused at its start.
func (e *BeepEngine) Load(uri string) error {
	e.Stop()

	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	src, ext, seekable, err := e.open(uri)
	if err != nil {
		return err
	}

	streamer, format, err := decode(src, ext)
	if err != nil {
		src.Close()
		return fmt.Errorf("decode %s: %w", uri, err)
	}

	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.streamer = streamer
	e.format = format
	e.source = src
	e.seekable = seekable
	ratio := float64(format.SampleRate) / float64(speakerSampleRate)
	e.resampler = beep.ResampleRatio(resampleQuality, ratio*e.rate, streamer)
	e.ctrl = &beep.Ctrl{Streamer: e.resampler, Paused: true}
	e.state = transportPaused
	volume := &effects.Volume{Streamer: e.ctrl, Base: 2}
	length := e.lengthLocked()
	emit := e.onEvent
	e.mu.Unlock()

	// the callback runs with the speaker lock held
	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		go e.finished(gen)
	})))

	emit(Event{Type: EventTrackAdded, TrackType: TrackAudio})
	emit(Event{Type: EventLengthChanged, Length: length})
	return nil
}

func (e *BeepEngine) open(uri string) (io.ReadCloser, string, bool, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", false, fmt.Errorf("parse uri: %w", err)
	}
	switch u.Scheme {
	case "", "file":
		p := uri
		if u.Scheme == "file" {
			p = u.Path
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, "", false, err
		}
		return f, strings.ToLower(path.Ext(p)), true, nil
	case "http", "https":
		resp, err := e.client.Get(uri) //nolint:noctx // stream lifetime is bound to the engine, not a request
		if err != nil {
			return nil, "", false, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, "", false, fmt.Errorf("fetch %s: %s", uri, resp.Status)
		}
		return resp.Body, streamExt(u, resp.Header.Get("Content-Type")), false, nil
	}
	return nil, "", false, fmt.Errorf("%w: scheme %q", ErrUnsupportedFormat, u.Scheme)
}

func streamExt(u *url.URL, contentType string) string {
	switch {
	case strings.Contains(contentType, "mpeg"):
		return extMP3
	case strings.Contains(contentType, "flac"):
		return extFLAC
	case strings.Contains(contentType, "opus"):
		return extOpus
	case strings.Contains(contentType, "ogg"):
		return extOGG
	case strings.Contains(contentType, "wav"):
		return extWAV
	}
	return strings.ToLower(path.Ext(u.Path))
}

func decode(src io.ReadCloser, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext {
	case extMP3:
		return mp3.Decode(src)
	case extFLAC:
		if rs, ok := src.(io.ReadSeeker); ok {
			if err := skipID3v2(rs); err != nil {
				return nil, beep.Format{}, err
			}
		}
		return flac.Decode(src)
	case extWAV:
		return wav.Decode(src)
	case extOGG, extOpus:
		// Ogg carries either codec; Opus needs a seekable source
		if rs, ok := src.(io.ReadSeekCloser); ok {
			streamer, format, err := decodeOpus(rs)
			if !errors.Is(err, errNotOpus) {
				return streamer, format, err
			}
			if _, err := rs.Seek(0, io.SeekStart); err != nil {
				return nil, beep.Format{}, err
			}
		}
		return vorbis.Decode(src)
	}
	return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// skipID3v2 skips an ID3v2 tag prepended to a FLAC stream.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}
	// syncsafe integer: 7 bits per byte
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

// Play resumes the loaded item.
func (e *BeepEngine) Play() {
	e.mu.Lock()
	if e.ctrl == nil || e.state == transportPlaying {
		e.mu.Unlock()
		return
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.state = transportPlaying
	e.stopTick = make(chan struct{})
	go e.tick(e.stopTick, e.gen)
	emit := e.onEvent
	e.mu.Unlock()

	emit(Event{Type: EventPlaying})
}

// Pause pauses playback.
func (e *BeepEngine) Pause() {
	e.mu.Lock()
	if e.ctrl == nil || e.state != transportPlaying {
		e.mu.Unlock()
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.state = transportPaused
	e.stopTickerLocked()
	emit := e.onEvent
	e.mu.Unlock()

	emit(Event{Type: EventPaused})
}

// Stop stops playback and releases the decoder.
func (e *BeepEngine) Stop() {
	e.mu.Lock()
	if e.state == transportStopped && e.streamer == nil {
		e.mu.Unlock()
		return
	}
	e.releaseLocked()
	emit := e.onEvent
	e.mu.Unlock()

	emit(Event{Type: EventStopped})
}

func (e *BeepEngine) releaseLocked() {
	e.gen++
	e.stopTickerLocked()
	speaker.Clear()
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	if e.source != nil {
		e.source.Close()
		e.source = nil
	}
	e.ctrl = nil
	e.resampler = nil
	e.state = transportStopped
}

func (e *BeepEngine) stopTickerLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

func (e *BeepEngine) tick(stop <-chan struct{}, gen int) {
	t := time.NewTicker(positionInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			e.mu.Lock()
			if gen != e.gen {
				e.mu.Unlock()
				return
			}
			pos := e.timeLocked()
			emit := e.onEvent
			e.mu.Unlock()
			emit(Event{Type: EventPositionChanged, Position: pos})
		}
	}
}

func (e *BeepEngine) finished(gen int) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	var err error
	if e.streamer != nil {
		err = e.streamer.Err()
	}
	e.stopTickerLocked()
	e.state = transportStopped
	emit := e.onEvent
	e.mu.Unlock()

	if err != nil {
		emit(Event{Type: EventError, Err: err})
		return
	}
	emit(Event{Type: EventEndReached})
}

// Seek moves to pos. Non-seekable streams ignore it. fast is accepted for
// interface compatibility; beep seeks are always sample accurate.
func (e *BeepEngine) Seek(pos time.Duration, _ bool) {
	e.mu.Lock()
	if e.streamer == nil || !e.seekable {
		e.mu.Unlock()
		return
	}
	speaker.Lock()
	n := e.format.SampleRate.N(max(pos, 0))
	n = min(n, e.streamer.Len())
	err := e.streamer.Seek(n)
	speaker.Unlock()
	emit := e.onEvent
	pos = e.timeLocked()
	e.mu.Unlock()

	if err != nil {
		emit(Event{Type: EventError, Err: fmt.Errorf("seek: %w", err)})
		return
	}
	emit(Event{Type: EventPositionChanged, Position: pos})
}

// Time returns the current position.
func (e *BeepEngine) Time() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeLocked()
}

func (e *BeepEngine) timeLocked() time.Duration {
	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return e.format.SampleRate.D(e.streamer.Position())
}

// Length returns the duration of the loaded item, 0 if unknown.
func (e *BeepEngine) Length() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lengthLocked()
}

func (e *BeepEngine) lengthLocked() time.Duration {
	if e.streamer == nil || !e.seekable {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len())
}

// SetRate changes the playback speed. Pitch follows the rate.
func (e *BeepEngine) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	if e.resampler == nil {
		return
	}
	speaker.Lock()
	e.resampler.SetRatio(float64(e.format.SampleRate) / float64(speakerSampleRate) * rate)
	speaker.Unlock()
}

// Seekable reports whether the loaded item supports Seek.
func (e *BeepEngine) Seekable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekable
}

// Close stops playback. The speaker itself stays initialized.
func (e *BeepEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
	return nil
}
