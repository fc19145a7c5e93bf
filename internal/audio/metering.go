// Package audio captures 16 kHz mono PCM from the microphone and provides
// loudness measurement, phrase endpointing and clip encoding.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// SampleRate is the capture rate in Hz.
	SampleRate = 16000
	// Channels is the capture channel count.
	Channels = 1
	// BytesPerSample is the size of one S16LE sample.
	BytesPerSample = 2
	// FrameSamples is the number of samples delivered per frame (20 ms).
	FrameSamples = 320
	// FrameBytes is the size of one frame in bytes.
	FrameBytes = FrameSamples * BytesPerSample * Channels
	// FrameDuration is the wall-clock length of one frame.
	FrameDuration = time.Second * FrameSamples / SampleRate

	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
	// VolumeGain scales the L2 norm into the animator's pixel range.
	VolumeGain = 8.0
)

// Samples decodes S16LE PCM into signed samples. A trailing odd byte is ignored.
func Samples(buf []byte) []int16 {
	out := make([]int16, len(buf)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*BytesPerSample:])) //nolint:gosec // two's complement reinterpretation
	}
	return out
}

// Volume returns the Euclidean norm of the buffer's samples, normalized to
// [-1, 1), multiplied by VolumeGain. Silence yields exactly 0.
func Volume(buf []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(buf); i += BytesPerSample {
		s := float64(int16(binary.LittleEndian.Uint16(buf[i:]))) / MaxSampleValue //nolint:gosec // two's complement reinterpretation
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares) * VolumeGain
}

// RMS returns the root-mean-square energy of the buffer in raw 16-bit units.
// Speech detection thresholds are expressed in the same unit.
func RMS(buf []byte) float64 {
	n := len(buf) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(buf); i += BytesPerSample {
		s := float64(int16(binary.LittleEndian.Uint16(buf[i:]))) //nolint:gosec // two's complement reinterpretation
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(n))
}

// PCM encodes samples as S16LE bytes.
func PCM(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s)) //nolint:gosec // two's complement reinterpretation
	}
	return out
}
