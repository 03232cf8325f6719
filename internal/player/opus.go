package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/jj11hh/opus"
)

const (
	opusSampleRate = 48000
	opusMaxFrame   = 5760 // 120ms at 48kHz
	opusPreroll    = 3840 // 80ms of decoder warm-up before a seek target
	oggMaxPage     = 65307
)

var (
	errNotOpus      = errors.New("ogg: not an Opus stream")
	errOggCapture   = errors.New("ogg: invalid capture pattern")
	errOggVersion   = errors.New("ogg: unsupported version")
	errOggNoGranule = errors.New("ogg: no page with a granule position")
)

// oggPage is one parsed Ogg page. A packet still running at the end of the
// page is kept in partial and completed by the next page.
type oggPage struct {
	granule   int64
	continued bool
	packets   [][]byte
	partial   []byte
}

// truncated maps io.EOF to io.ErrUnexpectedEOF for reads past a page
// header: the stream only ends cleanly between pages.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func readOggPage(r io.Reader) (*oggPage, error) {
	var hdr [27]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[:4]) != "OggS" {
		return nil, errOggCapture
	}
	if hdr[4] != 0 {
		return nil, errOggVersion
	}
	segments := make([]byte, hdr[26])
	if _, err := io.ReadFull(r, segments); err != nil {
		return nil, truncated(err)
	}
	size := 0
	for _, s := range segments {
		size += int(s)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, truncated(err)
	}

	page := &oggPage{
		granule:   int64(binary.LittleEndian.Uint64(hdr[6:14])), //nolint:gosec // -1 marks pages where no packet ends
		continued: hdr[5]&0x01 != 0,
	}
	start, end := 0, 0
	for _, s := range segments {
		end += int(s)
		if s < 255 {
			page.packets = append(page.packets, body[start:end])
			start = end
		}
	}
	if start < end {
		page.partial = body[start:end]
	}
	return page, nil
}

// oggPackets reassembles packets across page boundaries for a single
// logical stream.
type oggPackets struct {
	r     io.Reader
	queue [][]byte
	carry []byte
}

func (o *oggPackets) next() ([]byte, error) {
	for len(o.queue) == 0 {
		page, err := readOggPage(o.r)
		if err != nil {
			return nil, err
		}
		packets, partial := page.packets, page.partial
		switch {
		case o.carry != nil && page.continued && len(packets) > 0:
			packets[0] = append(o.carry, packets[0]...)
		case o.carry != nil && page.continued:
			partial = append(o.carry, partial...)
		case page.continued && len(packets) > 0:
			// tail of a packet whose start was never read
			packets = packets[1:]
		}
		o.queue = packets
		o.carry = partial
	}
	pkt := o.queue[0]
	o.queue = o.queue[1:]
	return pkt, nil
}

func (o *oggPackets) reset(queue [][]byte, carry []byte) {
	o.queue = queue
	o.carry = carry
}

// opusPacketSamples returns the duration of an Opus packet in 48kHz
// samples, from its TOC byte.
func opusPacketSamples(pkt []byte) int {
	if len(pkt) == 0 {
		return 0
	}
	toc := pkt[0]
	config := toc >> 3
	var frame int
	switch {
	case config < 12: // SILK: 10, 20, 40, 60ms
		frame = [...]int{480, 960, 1920, 2880}[config&3]
	case config < 16: // Hybrid: 10, 20ms
		frame = [...]int{480, 960}[config&1]
	default: // CELT: 2.5, 5, 10, 20ms
		frame = [...]int{120, 240, 480, 960}[config&3]
	}
	switch toc & 0x03 {
	case 0:
		return frame
	case 1, 2:
		return 2 * frame
	default:
		if len(pkt) < 2 {
			return 0
		}
		return int(pkt[1]&0x3f) * frame
	}
}

// lastGranule returns the granule position of the last page in r.
func lastGranule(r io.ReadSeeker) (int64, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(max(end-oggMaxPage, 0), io.SeekStart); err != nil {
		return 0, err
	}
	tail, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	for {
		i := bytes.LastIndex(tail, []byte("OggS"))
		if i < 0 {
			return 0, errOggNoGranule
		}
		if len(tail)-i >= 14 {
			granule := int64(binary.LittleEndian.Uint64(tail[i+6 : i+14])) //nolint:gosec // -1 is skipped below
			if granule >= 0 {
				return granule, nil
			}
		}
		tail = tail[:i]
	}
}

// opusStream decodes a seekable Ogg Opus file.
type opusStream struct {
	src      io.ReadSeekCloser
	packets  *oggPackets
	dec      *opus.Decoder
	channels int
	preSkip  int

	dataStart int64
	length    int
	pos       int
	skip      int
	pcm       []float32
	buf       []float32
	err       error
}

// decodeOpus opens an Ogg Opus stream. It returns errNotOpus, without
// closing src, when the first packet is not an Opus header.
func decodeOpus(src io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	packets := &oggPackets{r: src}
	head, err := packets.next()
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %w", errNotOpus, err)
	}
	if len(head) < 19 || string(head[:8]) != "OpusHead" {
		return nil, beep.Format{}, errNotOpus
	}
	if head[8]>>4 != 0 {
		return nil, beep.Format{}, fmt.Errorf("opus: unsupported version %d", head[8])
	}
	channels := int(head[9])
	if channels < 1 || channels > 2 {
		return nil, beep.Format{}, fmt.Errorf("opus: %d channels not supported", channels)
	}
	preSkip := int(binary.LittleEndian.Uint16(head[10:12]))

	// OpusTags; audio starts on the next page
	if _, err := packets.next(); err != nil {
		return nil, beep.Format{}, fmt.Errorf("opus tags: %w", err)
	}
	dataStart, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, beep.Format{}, err
	}
	granule, err := lastGranule(src)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if _, err := src.Seek(dataStart, io.SeekStart); err != nil {
		return nil, beep.Format{}, err
	}

	dec, err := opus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return nil, beep.Format{}, err
	}
	s := &opusStream{
		src:       src,
		packets:   packets,
		dec:       dec,
		channels:  channels,
		preSkip:   preSkip,
		dataStart: dataStart,
		length:    max(int(granule)-preSkip, 0),
		skip:      preSkip,
		pcm:       make([]float32, opusMaxFrame*channels),
	}
	packets.reset(nil, nil)
	format := beep.Format{SampleRate: opusSampleRate, NumChannels: channels, Precision: 2}
	return s, format, nil
}

func (s *opusStream) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if s.pos >= s.length {
			break
		}
		if len(s.buf) == 0 {
			if !s.refill() {
				break
			}
			continue
		}
		left := float64(s.buf[0])
		right := left
		if s.channels == 2 {
			right = float64(s.buf[1])
		}
		samples[n] = [2]float64{left, right}
		s.buf = s.buf[s.channels:]
		s.pos++
		n++
	}
	return n, n > 0
}

func (s *opusStream) refill() bool {
	if s.err != nil {
		return false
	}
	pkt, err := s.packets.next()
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			s.err = err
		}
		return false
	}
	frames, err := s.dec.DecodeFloat32(pkt, s.pcm)
	if err != nil {
		// corrupt packet, keep going
		return true
	}
	s.buf = s.pcm[:frames*s.channels]
	if s.skip > 0 {
		drop := min(s.skip, frames)
		s.buf = s.buf[drop*s.channels:]
		s.skip -= drop
	}
	return true
}

func (s *opusStream) Err() error    { return s.err }
func (s *opusStream) Len() int      { return s.length }
func (s *opusStream) Position() int { return s.pos }
func (s *opusStream) Close() error  { return s.src.Close() }

// Seek walks page headers to the first page ending past the pre-roll point
// and decodes from its first complete packet.
func (s *opusStream) Seek(p int) error {
	p = max(0, min(p, s.length))
	target := int64(max(p-opusPreroll, 0) + s.preSkip)

	if _, err := s.src.Seek(s.dataStart, io.SeekStart); err != nil {
		return err
	}
	var page *oggPage
	for {
		pg, err := readOggPage(s.src)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return err
		}
		if pg.granule > target && len(pg.packets) > 0 {
			page = pg
			break
		}
	}

	dec, err := opus.NewDecoder(opusSampleRate, s.channels)
	if err != nil {
		return err
	}
	s.dec = dec
	s.buf = nil
	s.err = nil

	if page == nil {
		s.packets.reset(nil, nil)
		s.pos, s.skip = s.length, 0
		return nil
	}

	packets := page.packets
	if page.continued {
		packets = packets[1:]
	}
	start := page.granule
	for _, pkt := range packets {
		start -= int64(opusPacketSamples(pkt))
	}
	s.packets.reset(packets, page.partial)

	startPos := int(start) - s.preSkip
	if startPos >= p {
		s.pos, s.skip = startPos, 0
		return nil
	}
	s.pos, s.skip = p, p-startPos
	return nil
}
