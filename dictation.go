package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oszuidwest/zwfm-dictation/internal/animator"
	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/config"
	"github.com/oszuidwest/zwfm-dictation/internal/controller"
	"github.com/oszuidwest/zwfm-dictation/internal/metrics"
	"github.com/oszuidwest/zwfm-dictation/internal/monitor"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
	"github.com/oszuidwest/zwfm-dictation/internal/server"
	"github.com/oszuidwest/zwfm-dictation/internal/types"
)

// errListening is returned when the audio input is changed during a listen cycle.
var errListening = errors.New("cannot change audio input while listening")

// sourceFactory builds a capture source for a backend and device.
type sourceFactory func(backend audio.Backend, device string) (audio.Source, error)

// Dictation wires the volume monitor, listen controller and animator to the page hub.
// It is safe for concurrent use.
type Dictation struct {
	config     *config.Config
	ffmpegPath string
	newSource  sourceFactory

	hub        *server.Hub
	metrics    *metrics.Metrics
	monitor    *monitor.Monitor
	controller *controller.Controller
	animator   *animator.Animator
	closer     io.Closer

	mu     sync.Mutex // serializes audio updates and Start/Stop
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDictation builds the application around rec. closer is released on Stop.
func NewDictation(cfg *config.Config, ffmpegPath string, rec recognizer.Recognizer, closer io.Closer) (*Dictation, error) {
	return newDictation(cfg, ffmpegPath, rec, closer, func(backend audio.Backend, device string) (audio.Source, error) {
		return audio.NewSource(backend, device, ffmpegPath)
	})
}

func newDictation(cfg *config.Config, ffmpegPath string, rec recognizer.Recognizer, closer io.Closer, newSource sourceFactory) (*Dictation, error) {
	snap := cfg.Snapshot()

	source, err := newSource(snap.AudioBackend, snap.AudioInput)
	if err != nil {
		return nil, err
	}

	d := &Dictation{
		config:     cfg,
		ffmpegPath: ffmpegPath,
		newSource:  newSource,
		hub:        server.NewHub(),
		closer:     closer,
	}

	d.monitor = monitor.New(source, monitor.WithRestartHook(func(err error) {
		d.metrics.MonitorRestarts.Inc()
		slog.Warn("volume monitor reopening capture", "error", err)
	}))
	d.metrics = metrics.New(d.monitor.Volume)
	d.hub.OnClientsChanged(func(n int) {
		d.metrics.WSClients.Set(float64(n))
	})

	d.controller = controller.New(controller.Config{
		Monitor:          d.monitor,
		Source:           source,
		Recorder:         audio.NewPhraseRecorder(snap.Phrase),
		Recognizer:       rec,
		Display:          d.hub,
		RecognizeTimeout: snap.RecognizeTimeout,
	},
		controller.WithStateObserver(func(s controller.State) { d.hub.SetState(string(s)) }),
		controller.WithObserver(d.metrics),
	)
	d.animator = animator.New(d.monitor.Volume)

	return d, nil
}

// Start opens the volume monitor and begins animating.
// A microphone that cannot be opened is logged; the page still works.
func (d *Dictation) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return
	}

	if err := d.monitor.Start(); err != nil {
		slog.Error("failed to start volume monitor", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		d.animator.Run(ctx, func(f animator.Frame) { d.hub.PublishFrame(f) })
	}(d.done)
}

// Stop aborts any listen cycle and releases the microphone and recognizer.
func (d *Dictation) Stop() error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var errs []error
	if err := d.controller.Close(); err != nil {
		errs = append(errs, fmt.Errorf("listen controller: %w", err))
	}
	if err := d.monitor.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("volume monitor: %w", err))
	}
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("recognizer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Trigger implements server.App.
func (d *Dictation) Trigger() error {
	err := d.controller.Trigger()
	if errors.Is(err, controller.ErrBusy) {
		d.metrics.ListenBusyRejected.Inc()
	}
	return err
}

// UpdateAudio implements server.App. The new source replaces the old one in
// both the monitor and the controller, and the setting is persisted.
func (d *Dictation) UpdateAudio(input, backend string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if backend == "" {
		backend = string(d.config.Snapshot().AudioBackend)
	}
	if err := config.ValidateBackend(backend); err != nil {
		return err
	}
	// The cycle guard is held for the whole swap so a listen cycle can
	// never open the device while the monitor is being reopened.
	err := d.controller.Exclusive(func() error {
		source, err := d.newSource(audio.Backend(backend), input)
		if err != nil {
			return err
		}
		if err := d.config.SetAudio(input, backend); err != nil {
			return err
		}

		if err := d.monitor.Stop(); err != nil {
			return err
		}
		d.monitor.SetSource(source)
		d.controller.SetSource(source)
		return d.monitor.Start()
	})
	if errors.Is(err, controller.ErrBusy) {
		return errListening
	}
	return err
}

// AnnounceRelease tells connected pages about a newly seen release.
func (d *Dictation) AnnounceRelease(info types.VersionInfo) {
	d.hub.Publish(types.WSVersionResponse{Type: "version", Version: info})
}

// Devices implements server.App.
func (d *Dictation) Devices(ctx context.Context, backend string) ([]audio.Device, error) {
	if backend == "" {
		backend = string(d.config.Snapshot().AudioBackend)
	}
	return audio.ListDevices(ctx, audio.Backend(backend), d.ffmpegPath)
}

// Config implements server.App.
func (d *Dictation) Config() any {
	return d.config.Redacted()
}

var _ server.App = (*Dictation)(nil)
