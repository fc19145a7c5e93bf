package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrWaitTimeout is returned when no speech starts within PhraseConfig.Timeout.
	ErrWaitTimeout = errors.New("listening timed out waiting for speech")
	// ErrStreamClosed is returned when the capture stream ends before a phrase is complete.
	ErrStreamClosed = errors.New("audio stream closed")
)

// PhraseConfig holds the endpointing knobs for phrase capture.
type PhraseConfig struct {
	// CalibrationDuration is the ambient noise window before listening.
	CalibrationDuration time.Duration
	// Timeout is the longest wait for speech to start.
	Timeout time.Duration
	// PhraseTimeLimit caps a phrase once speech has started.
	PhraseTimeLimit time.Duration
	// PauseThreshold is the non-speaking time that ends a phrase.
	PauseThreshold time.Duration
	// NonSpeakingDuration is the quiet audio kept on both sides of a phrase.
	NonSpeakingDuration time.Duration
	// PhraseThreshold is the minimum speech length; shorter bursts are dropped.
	PhraseThreshold time.Duration
	// EnergyThreshold is the initial RMS level separating speech from silence.
	EnergyThreshold float64
	// DynamicEnergy lets the threshold follow ambient noise while waiting.
	DynamicEnergy bool
	// DynamicDamping is the per-second decay applied when adjusting the threshold.
	DynamicDamping float64
	// DynamicRatio is the multiple of ambient energy the threshold moves toward.
	DynamicRatio float64
}

// DefaultPhraseConfig returns the endpointing defaults.
func DefaultPhraseConfig() PhraseConfig {
	return PhraseConfig{
		CalibrationDuration: 300 * time.Millisecond,
		Timeout:             3 * time.Second,
		PhraseTimeLimit:     4 * time.Second,
		PauseThreshold:      600 * time.Millisecond,
		NonSpeakingDuration: 500 * time.Millisecond,
		PhraseThreshold:     300 * time.Millisecond,
		EnergyThreshold:     300,
		DynamicEnergy:       true,
		DynamicDamping:      0.15,
		DynamicRatio:        1.5,
	}
}

// PhraseRecorder captures one spoken phrase from a Stream using an energy threshold.
// The threshold it learns carries over between recordings.
// It is safe for concurrent use, though a Stream should only be read by one recorder.
type PhraseRecorder struct {
	cfg PhraseConfig

	mu        sync.Mutex
	threshold float64
}

// NewPhraseRecorder creates a recorder with the given configuration.
//
//nolint:gocritic // hugeParam: constructed once
func NewPhraseRecorder(cfg PhraseConfig) *PhraseRecorder {
	return &PhraseRecorder{cfg: cfg, threshold: cfg.EnergyThreshold}
}

// Threshold returns the current energy threshold.
func (r *PhraseRecorder) Threshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Record calibrates against ambient noise, then captures a phrase.
func (r *PhraseRecorder) Record(ctx context.Context, stream Stream) (Clip, error) {
	if err := r.Calibrate(ctx, stream); err != nil {
		return Clip{}, err
	}
	return r.Listen(ctx, stream)
}

// Calibrate reads CalibrationDuration of audio and moves the threshold toward the ambient level.
func (r *PhraseRecorder) Calibrate(ctx context.Context, stream Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range frameCount(r.cfg.CalibrationDuration) {
		frame, err := readFrame(ctx, stream)
		if err != nil {
			return err
		}
		r.adjust(RMS(frame))
	}
	return nil
}

// Listen waits for speech and records until a pause or the phrase limit.
// Bursts shorter than PhraseThreshold are discarded and waiting resumes.
func (r *PhraseRecorder) Listen(ctx context.Context, stream Stream) (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timeoutFrames := frameCount(r.cfg.Timeout)
	limitFrames := frameCount(r.cfg.PhraseTimeLimit)
	pauseFrames := ceilFrames(r.cfg.PauseThreshold)
	phraseFrames := ceilFrames(r.cfg.PhraseThreshold)
	keepFrames := ceilFrames(r.cfg.NonSpeakingDuration)

	var (
		frames     [][]byte
		elapsed    int
		pauseCount int
	)

	for {
		frames = frames[:0]

		// Wait for the first frame above threshold, keeping a short lead-in.
		for {
			elapsed++
			if r.cfg.Timeout > 0 && elapsed > timeoutFrames {
				return Clip{}, ErrWaitTimeout
			}
			frame, err := readFrame(ctx, stream)
			if err != nil {
				return Clip{}, err
			}
			frames = append(frames, frame)
			if len(frames) > keepFrames {
				frames = frames[1:]
			}

			energy := RMS(frame)
			if energy > r.threshold {
				break
			}
			if r.cfg.DynamicEnergy {
				r.adjust(energy)
			}
		}

		phraseStart := elapsed
		phraseCount := 0
		pauseCount = 0
		for {
			elapsed++
			if r.cfg.PhraseTimeLimit > 0 && elapsed-phraseStart > limitFrames {
				break
			}
			frame, err := readFrame(ctx, stream)
			if err != nil {
				return Clip{}, err
			}
			frames = append(frames, frame)
			phraseCount++

			if RMS(frame) > r.threshold {
				pauseCount = 0
			} else {
				pauseCount++
			}
			if pauseCount > pauseFrames {
				break
			}
		}

		if phraseCount-pauseCount >= phraseFrames {
			break
		}
	}

	// Drop trailing silence beyond the kept margin.
	if trim := pauseCount - keepFrames; trim > 0 {
		frames = frames[:len(frames)-trim]
	}

	pcm := make([]byte, 0, len(frames)*FrameBytes)
	for _, f := range frames {
		pcm = append(pcm, f...)
	}
	return Clip{PCM: pcm, SampleRate: SampleRate}, nil
}

// adjust moves the threshold toward energy scaled by DynamicRatio. Callers hold r.mu.
func (r *PhraseRecorder) adjust(energy float64) {
	damping := math.Pow(r.cfg.DynamicDamping, FrameDuration.Seconds())
	target := energy * r.cfg.DynamicRatio
	r.threshold = r.threshold*damping + target*(1-damping)
}

func readFrame(ctx context.Context, stream Stream) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-stream.Frames():
		if !ok {
			if err := stream.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrStreamClosed, err)
			}
			return nil, ErrStreamClosed
		}
		return frame, nil
	}
}

func frameCount(d time.Duration) int {
	return int(d / FrameDuration)
}

func ceilFrames(d time.Duration) int {
	return int((d + FrameDuration - 1) / FrameDuration)
}
