// Package monitor keeps a microphone capture stream open and exposes its
// current loudness for the animator.
package monitor

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/types"
	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithBackoff sets the reopen delays.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(m *Monitor) {
		m.backoff = util.NewBackoff(initial, maxDelay)
	}
}

// WithMaxRetries sets how many consecutive reopen attempts are made before giving up.
func WithMaxRetries(n int) Option {
	return func(m *Monitor) {
		m.maxRetries = n
	}
}

// WithRestartHook registers fn to be called whenever the stream dies and a reopen is scheduled.
func WithRestartHook(fn func(err error)) Option {
	return func(m *Monitor) {
		m.onRestart = fn
	}
}

// Monitor owns the background capture stream and the latest volume value.
// Volume is last-write-wins with no smoothing. It is safe for concurrent use.
type Monitor struct {
	backoff          *util.Backoff
	maxRetries       int
	successThreshold time.Duration
	onRestart        func(error)

	volume atomic.Uint64 // math.Float64bits

	mu         sync.Mutex
	source     audio.Source
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	retryCount int
	lastError  string
	exhausted  bool
}

// New creates a stopped Monitor reading from source.
func New(source audio.Source, opts ...Option) *Monitor {
	m := &Monitor{
		source:           source,
		backoff:          util.NewBackoff(types.InitialRetryDelay, types.MaxRetryDelay),
		maxRetries:       types.MaxRetries,
		successThreshold: types.SuccessThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSource replaces the capture source. It takes effect on the next Start or reopen.
func (m *Monitor) SetSource(source audio.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = source
}

// Start opens the capture stream. It is a no-op if the monitor is already running.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := m.source.Open(ctx)
	if err != nil {
		cancel()
		m.lastError = err.Error()
		return util.WrapError("open capture stream", err)
	}

	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.retryCount = 0
	m.lastError = ""
	m.exhausted = false
	m.backoff.Reset()

	slog.Debug("volume monitor started")
	go m.run(ctx, stream, m.done)
	return nil
}

// Stop closes the capture stream and releases the device before returning.
// It is safe to call when not running.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.volume.Store(0)

	slog.Debug("volume monitor stopped")
	return nil
}

// Running reports whether the monitor holds the capture device.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Volume returns the most recent volume value; 0 while stopped.
func (m *Monitor) Volume() float64 {
	return math.Float64frombits(m.volume.Load())
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() types.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.MonitorStatus{
		Running:    m.running,
		Volume:     m.Volume(),
		RetryCount: m.retryCount,
		LastError:  m.lastError,
		Exhausted:  m.exhausted,
	}
}

// run consumes frames and reopens the stream with backoff if it dies.
func (m *Monitor) run(ctx context.Context, stream audio.Stream, done chan struct{}) {
	defer close(done)

	for {
		started := time.Now()
		err := m.consume(ctx, stream)
		if closeErr := stream.Close(); closeErr != nil {
			slog.Warn("failed to close capture stream", "error", closeErr)
		}
		m.volume.Store(0)

		if ctx.Err() != nil {
			return
		}

		for {
			delay, ok := m.recordFailure(err, time.Since(started))
			if !ok {
				return
			}

			slog.Info("capture stream stopped, waiting before reopen", "delay", delay, "error", err)
			if !util.Sleep(ctx, delay) {
				return
			}

			m.mu.Lock()
			source := m.source
			m.mu.Unlock()

			started = time.Now()
			stream, err = source.Open(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// consume stores the volume of each frame until the stream ends or ctx is done.
func (m *Monitor) consume(ctx context.Context, stream audio.Stream) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-stream.Frames():
			if !ok {
				if err := stream.Err(); err != nil {
					return err
				}
				return audio.ErrStreamClosed
			}
			m.volume.Store(math.Float64bits(audio.Volume(frame)))
		}
	}
}

// recordFailure updates retry state and returns the delay before the next attempt.
// It returns false when retries are exhausted.
func (m *Monitor) recordFailure(err error, ran time.Duration) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err.Error()
	slog.Error("capture stream error", "error", err)

	if ran >= m.successThreshold {
		m.retryCount = 0
		m.backoff.Reset()
	} else {
		m.retryCount++
	}

	if m.retryCount >= m.maxRetries {
		slog.Error("capture stream failed, giving up", "attempts", m.maxRetries)
		m.running = false
		m.exhausted = true
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return 0, false
	}

	if m.onRestart != nil {
		m.onRestart(err)
	}
	return m.backoff.Next(), true
}
