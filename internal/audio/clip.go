package audio

import (
	"errors"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// Clip is a captured phrase of 16-bit mono PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	samples := len(c.PCM) / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Empty reports whether the clip holds no audio.
func (c Clip) Empty() bool {
	return len(c.PCM) < BytesPerSample
}

// WAV encodes the clip as a 16-bit mono RIFF/WAV file.
func (c Clip) WAV() ([]byte, error) {
	samples := Samples(c.PCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: Channels,
			SampleRate:  c.SampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}

	out := &seekBuffer{}
	enc := wav.NewEncoder(out, c.SampleRate, 16, Channels, 1)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return nil, util.WrapError("encode wav", err)
	}
	if err := enc.Close(); err != nil {
		return nil, util.WrapError("finalize wav", err)
	}
	return out.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to patch chunk sizes.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.buf) {
		b.buf = append(b.buf, make([]byte, need-len(b.buf))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
