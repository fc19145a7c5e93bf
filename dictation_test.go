package main

import (
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
	"github.com/oszuidwest/zwfm-dictation/internal/config"
	"github.com/oszuidwest/zwfm-dictation/internal/controller"
	"github.com/oszuidwest/zwfm-dictation/internal/recognizer"
	"github.com/oszuidwest/zwfm-dictation/internal/types"
)

var (
	silentFrame = make([]byte, audio.FrameBytes)
	speechFrame = func() []byte {
		f := make([]byte, audio.FrameBytes)
		for i := 0; i < len(f); i += audio.BytesPerSample {
			binary.LittleEndian.PutUint16(f[i:], 10000)
		}
		return f
	}()
)

// scriptedSource opens streams that play a short phrase and then stay quiet.
type scriptedSource struct {
	opens atomic.Int32

	mu      sync.Mutex
	active  int
	maxOpen int
}

func (s *scriptedSource) Open(ctx context.Context) (audio.Stream, error) {
	s.opens.Add(1)
	s.mu.Lock()
	s.active++
	s.maxOpen = max(s.maxOpen, s.active)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	st := &scriptedStream{
		source: s,
		frames: make(chan []byte),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go st.run(ctx)
	return st, nil
}

// peakOpen reports the most streams that were open at the same time.
func (s *scriptedSource) peakOpen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxOpen
}

type scriptedStream struct {
	source *scriptedSource
	frames chan []byte
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *scriptedStream) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.frames)
	for i := 0; ; i++ {
		frame := silentFrame
		if i >= 25 && i < 75 {
			frame = speechFrame
		}
		select {
		case <-ctx.Done():
			return
		case s.frames <- frame:
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *scriptedStream) Frames() <-chan []byte { return s.frames }
func (s *scriptedStream) Err() error            { return nil }

func (s *scriptedStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.source.mu.Lock()
		s.source.active--
		s.source.mu.Unlock()
	})
	return nil
}

type closeRecorder struct {
	closed atomic.Bool
}

func (c *closeRecorder) Close() error {
	c.closed.Store(true)
	return nil
}

type testDictation struct {
	*Dictation
	source  *scriptedSource
	closer  *closeRecorder
	cfgPath string
	built   []audio.Backend

	// beforeBuild, when set, runs inside the source factory.
	beforeBuild func()
}

func newTestDictation(t *testing.T, rec recognizer.Recognizer) *testDictation {
	t.Helper()

	td := &testDictation{
		source:  &scriptedSource{},
		closer:  &closeRecorder{},
		cfgPath: filepath.Join(t.TempDir(), "config.json"),
	}
	cfg := config.New(td.cfgPath)
	require.NoError(t, cfg.Load())

	d, err := newDictation(cfg, "", rec, td.closer, func(backend audio.Backend, _ string) (audio.Source, error) {
		if td.beforeBuild != nil {
			td.beforeBuild()
		}
		td.built = append(td.built, backend)
		return td.source, nil
	})
	require.NoError(t, err)
	td.Dictation = d
	t.Cleanup(func() { _ = d.Stop() })
	return td
}

func staticRecognizer(text string, err error) recognizer.Func {
	return func(context.Context, audio.Clip) (string, error) {
		return text, err
	}
}

func TestDictationListenCycle(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("hello world and more", nil))
	td.Start()
	require.True(t, td.monitor.Running())

	require.NoError(t, td.Trigger())

	success := td.metrics.ListenCycles.WithLabelValues(string(recognizer.OutcomeSuccess))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(success) == 1
	}, 5*time.Second, 10*time.Millisecond)

	listen := td.hub.Listen()
	assert.Equal(t, string(controller.StateIdle), listen.State)
	assert.Equal(t, controller.StatusDone, listen.Status)
	assert.Equal(t, "Hello world, and more.", listen.Transcript)
	assert.True(t, td.monitor.Running())
	// Monitor, capture, monitor again.
	assert.EqualValues(t, 3, td.source.opens.Load())
}

func TestDictationFailedCycleShowsGenericText(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("", errors.New("quota exceeded")))
	td.Start()

	require.NoError(t, td.Trigger())

	failed := td.metrics.ListenCycles.WithLabelValues(string(recognizer.OutcomeServiceError))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(failed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	listen := td.hub.Listen()
	assert.Equal(t, controller.StatusError, listen.Status)
	assert.Equal(t, controller.NotRecognizedText, listen.Transcript)
}

func TestDictationRejectsOverlappingTrigger(t *testing.T) {
	release := make(chan struct{})
	rec := recognizer.Func(func(ctx context.Context, _ audio.Clip) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "ok", nil
	})
	td := newTestDictation(t, rec)
	td.Start()

	require.NoError(t, td.Trigger())
	assert.ErrorIs(t, td.Trigger(), controller.ErrBusy)
	assert.InDelta(t, 1.0, testutil.ToFloat64(td.metrics.ListenBusyRejected), 1e-9)

	require.Eventually(t, func() bool {
		return td.controller.State() == controller.StateProcessing
	}, 5*time.Second, 10*time.Millisecond)
	require.ErrorIs(t, td.UpdateAudio("hw:1", "exec"), errListening)

	close(release)
}

func TestDictationUpdateAudio(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("ok", nil))
	td.Start()

	require.NoError(t, td.UpdateAudio("plughw:1,0", "malgo"))
	assert.Equal(t, []audio.Backend{audio.BackendExec, audio.BackendMalgo}, td.built)
	assert.True(t, td.monitor.Running())

	reloaded := config.New(td.cfgPath)
	require.NoError(t, reloaded.Load())
	snap := reloaded.Snapshot()
	assert.Equal(t, "plughw:1,0", snap.AudioInput)
	assert.Equal(t, audio.BackendMalgo, snap.AudioBackend)

	// An empty backend keeps the current one.
	require.NoError(t, td.UpdateAudio("default", ""))
	assert.Equal(t, audio.BackendMalgo, td.built[len(td.built)-1])

	assert.Error(t, td.UpdateAudio("default", "jack"))
}

func TestDictationUpdateAudioHoldsOffListening(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("ok", nil))
	td.Start()

	entered := make(chan struct{})
	release := make(chan struct{})
	td.beforeBuild = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() { done <- td.UpdateAudio("hw:1", "exec") }()
	<-entered

	// The swap is in progress, so a cycle must not start.
	assert.ErrorIs(t, td.Trigger(), controller.ErrBusy)
	assert.Equal(t, controller.StateIdle, td.controller.State())

	close(release)
	require.NoError(t, <-done)
	assert.True(t, td.monitor.Running())

	require.NoError(t, td.Trigger())
	success := td.metrics.ListenCycles.WithLabelValues(string(recognizer.OutcomeSuccess))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(success) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.LessOrEqual(t, td.source.peakOpen(), 1, "device opened twice concurrently")
}

func TestDictationStopReleasesEverything(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("ok", nil))
	td.Start()

	require.NoError(t, td.Stop())
	assert.False(t, td.monitor.Running())
	assert.True(t, td.closer.closed.Load())
	assert.ErrorIs(t, td.Trigger(), controller.ErrClosed)
}

func TestDictationAnnounceRelease(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("ok", nil))
	sub := td.hub.Subscribe()
	defer sub.Close()

	info := types.VersionInfo{Current: "1.0.0", Latest: "1.1.0", UpdateAvail: true}
	td.AnnounceRelease(info)

	assert.Equal(t, types.WSVersionResponse{Type: "version", Version: info}, <-sub.Updates())
}

func TestDictationConfigIsRedacted(t *testing.T) {
	td := newTestDictation(t, staticRecognizer("ok", nil))
	cfg, ok := td.Config().(config.Sections)
	require.True(t, ok)
	assert.Equal(t, config.DefaultTitle, cfg.Web.Title)
}
