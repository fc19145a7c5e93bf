// Package controller runs listen cycles: release the microphone from the
// volume monitor, capture a phrase, recognize it and show the result.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/format"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
)

// State is the listen controller state.
type State string

const (
	// StateIdle means no cycle is running.
	StateIdle State = "idle"
	// StateListening means the microphone is capturing a phrase.
	StateListening State = "listening"
	// StateProcessing means the clip is with the recognizer.
	StateProcessing State = "processing"
	// StateDone means a transcript was produced.
	StateDone State = "done"
	// StateError means the cycle failed.
	StateError State = "error"
)

// Status label texts.
const (
	StatusReady      = "click start and speak"
	StatusListening  = "listening..."
	StatusProcessing = "processing..."
	StatusDone       = "done!"
	StatusError      = "error"
)

// NotRecognizedText replaces the transcript when a cycle fails.
const NotRecognizedText = "Speech not recognized."

// DefaultRecognizeTimeout bounds a recognition request.
const DefaultRecognizeTimeout = 15 * time.Second

var (
	// ErrBusy is returned when a cycle is requested while one is running.
	ErrBusy = errors.New("a listen cycle is already running")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("listen controller closed")
)

// VolumeMonitor is the background capture that must release the device during a cycle.
type VolumeMonitor interface {
	Start() error
	Stop() error
}

// Recorder captures one phrase from an open stream.
type Recorder interface {
	Record(ctx context.Context, stream audio.Stream) (audio.Clip, error)
}

// Display shows the status label and transcript.
type Display interface {
	SetStatus(status string)
	SetTranscript(text string)
}

// Observer receives cycle measurements.
type Observer interface {
	ObserveCycle(result recognizer.Result, elapsed time.Duration)
	ObserveRecognize(elapsed time.Duration)
}

// Config holds the collaborators of a Controller.
type Config struct {
	Monitor          VolumeMonitor
	Source           audio.Source
	Recorder         Recorder
	Recognizer       recognizer.Recognizer
	Display          Display
	RecognizeTimeout time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.onState = fn
	}
}

// WithObserver registers an Observer for cycle metrics.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// Controller runs at most one listen cycle at a time.
type Controller struct {
	monitor  VolumeMonitor
	recorder Recorder
	display  Display
	timeout  time.Duration
	onState  func(State)
	observer Observer

	inflight *semaphore.Weighted
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	state      State
	source     audio.Source
	recognizer recognizer.Recognizer
}

// New creates an idle Controller and shows the ready status.
//
//nolint:gocritic // hugeParam: constructed once
func New(cfg Config, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		monitor:    cfg.Monitor,
		recorder:   cfg.Recorder,
		display:    cfg.Display,
		timeout:    cfg.RecognizeTimeout,
		inflight:   semaphore.NewWeighted(1),
		ctx:        ctx,
		cancel:     cancel,
		state:      StateIdle,
		source:     cfg.Source,
		recognizer: cfg.Recognizer,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRecognizeTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	c.display.SetStatus(StatusReady)
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetSource replaces the capture source used by later cycles.
func (c *Controller) SetSource(source audio.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = source
}

// SetRecognizer replaces the recognizer used by later cycles.
func (c *Controller) SetRecognizer(r recognizer.Recognizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recognizer = r
}

// Trigger starts a cycle on a worker goroutine and returns immediately.
// It returns ErrBusy while another cycle is running.
func (c *Controller) Trigger() error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if !c.inflight.TryAcquire(1) {
		return ErrBusy
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Release(1)
		c.cycle(c.ctx)
	}()
	return nil
}

// Listen runs one cycle synchronously. It returns ErrBusy while another
// cycle is running. The cycle is aborted when ctx is done or on Close.
func (c *Controller) Listen(ctx context.Context) (recognizer.Result, error) {
	if c.ctx.Err() != nil {
		return recognizer.Result{}, ErrClosed
	}
	if !c.inflight.TryAcquire(1) {
		return recognizer.Result{}, ErrBusy
	}
	defer c.inflight.Release(1)

	c.wg.Add(1)
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	return c.cycle(ctx), nil
}

// Exclusive runs fn while holding the cycle guard, so no cycle can start
// until fn returns. It returns ErrBusy while a cycle is running.
func (c *Controller) Exclusive(fn func() error) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if !c.inflight.TryAcquire(1) {
		return ErrBusy
	}
	defer c.inflight.Release(1)
	return fn()
}

// Close aborts any running cycle and waits for it to finish.
func (c *Controller) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Controller) cycle(ctx context.Context) recognizer.Result {
	log := slog.With("cycle", uuid.NewString())
	started := time.Now()

	c.mu.Lock()
	source, rec := c.source, c.recognizer
	c.mu.Unlock()

	result := c.run(ctx, log, source, rec)

	if err := c.monitor.Start(); err != nil {
		log.Error("failed to restart volume monitor", "error", err)
	}
	c.setState(StateIdle)

	elapsed := time.Since(started)
	if c.observer != nil {
		c.observer.ObserveCycle(result, elapsed)
	}
	log.Info("listen cycle finished", "outcome", result.Outcome, "duration", elapsed)
	return result
}

func (c *Controller) run(ctx context.Context, log *slog.Logger, source audio.Source, rec recognizer.Recognizer) recognizer.Result {
	// The monitor releases the device before the cycle reports LISTENING.
	if err := c.monitor.Stop(); err != nil {
		return c.fail(log, err)
	}
	c.setState(StateListening)
	c.display.SetStatus(StatusListening)

	clip, err := c.capture(ctx, log, source)
	if err != nil {
		return c.fail(log, err)
	}
	log.Debug("phrase captured", "duration", clip.Duration())

	c.setState(StateProcessing)
	c.display.SetStatus(StatusProcessing)

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	recognizeStart := time.Now()
	raw, err := rec.Recognize(rctx, clip)
	cancel()
	if c.observer != nil {
		c.observer.ObserveRecognize(time.Since(recognizeStart))
	}
	if err != nil {
		return c.fail(log, err)
	}

	text := format.Sentence(raw)
	if text == "" {
		return c.fail(log, recognizer.ErrUnrecognized)
	}

	c.display.SetTranscript(text)
	c.display.SetStatus(StatusDone)
	c.setState(StateDone)
	return recognizer.Result{Outcome: recognizer.OutcomeSuccess, Text: text}
}

// capture opens a short-lived stream and records one phrase.
func (c *Controller) capture(ctx context.Context, log *slog.Logger, source audio.Source) (audio.Clip, error) {
	stream, err := source.Open(ctx)
	if err != nil {
		return audio.Clip{}, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn("failed to close capture stream", "error", err)
		}
	}()
	return c.recorder.Record(ctx, stream)
}

// fail shows the generic message; the outcome is kept for logs and metrics.
func (c *Controller) fail(log *slog.Logger, err error) recognizer.Result {
	result := recognizer.Failure(err)

	if result.Outcome == recognizer.OutcomeServiceError {
		log.Warn("listen cycle failed", "outcome", result.Outcome, "error", err)
	} else {
		log.Info("listen cycle failed", "outcome", result.Outcome, "error", err)
	}

	c.display.SetTranscript(NotRecognizedText)
	c.display.SetStatus(StatusError)
	c.setState(StateError)
	return result
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}
