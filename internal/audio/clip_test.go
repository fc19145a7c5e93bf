package audio

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipWAV(t *testing.T) {
	pcm := PCM([]int16{0, 100, -100, 32767, -32768, 42})
	clip := Clip{PCM: pcm, SampleRate: SampleRate}

	data, err := clip.WAV()
	require.NoError(t, err)
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, SampleRate, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Equal(t, []int{0, 100, -100, 32767, -32768, 42}, buf.Data)
}

func TestClipDuration(t *testing.T) {
	assert.Equal(t, time.Second, Clip{PCM: make([]byte, 2*SampleRate), SampleRate: SampleRate}.Duration())
	assert.Equal(t, time.Duration(0), Clip{PCM: make([]byte, 10)}.Duration())
	assert.True(t, Clip{}.Empty())
}

func TestSeekBuffer(t *testing.T) {
	b := &seekBuffer{}
	_, _ = b.Write([]byte("hello world"))
	_, err := b.Seek(0, 0)
	require.NoError(t, err)
	_, _ = b.Write([]byte("J"))
	assert.Equal(t, "Jello world", string(b.buf))

	_, err = b.Seek(-1, 0)
	assert.Error(t, err)
}
