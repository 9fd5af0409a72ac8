package codec

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/milk9111/assetman/asset"
)

// Sound is a fully decoded audio clip.
type Sound struct {
	Format beep.Format
	Buffer *beep.Buffer
}

// Len returns the number of samples.
func (s *Sound) Len() int {
	if s == nil || s.Buffer == nil {
		return 0
	}
	return s.Buffer.Len()
}

func (s *Sound) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.Format.SampleRate.D(s.Len())
}

// Streamer returns a streamer over the whole clip.
func (s *Sound) Streamer() beep.StreamSeeker {
	return s.Buffer.Streamer(0, s.Len())
}

// SoundCodec reads and writes wav clips.
type SoundCodec struct{}

func (SoundCodec) Decode(name string, data []byte) (*Sound, error) {
	if Ext(name) != "wav" {
		return nil, asset.DecodeError(name, "unsupported audio format "+Ext(name), asset.ErrUnsupported)
	}
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, asset.DecodeError(name, "wav", err)
	}
	defer streamer.Close()
	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, asset.DecodeError(name, "wav", err)
	}
	return &Sound{Format: format, Buffer: buf}, nil
}

func (SoundCodec) Encode(name string, s *Sound) ([]byte, error) {
	if s == nil || s.Buffer == nil {
		return nil, asset.EncodeError(name, "nil sound", nil)
	}
	var w seekBuffer
	if err := wav.Encode(&w, s.Streamer(), s.Format); err != nil {
		return nil, asset.EncodeError(name, "wav", err)
	}
	return w.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.buf))
	default:
		return 0, errors.New("seek: bad whence")
	}
	next := base + offset
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	b.pos = int(next)
	return next, nil
}
