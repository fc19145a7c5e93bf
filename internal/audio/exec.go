package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/oszuidwest/zwfm-dictation/internal/types"
	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// frameBuffer is how many frames a stream buffers for a slow reader.
const frameBuffer = 50

// ExecSource captures audio by running the platform capture tool
// (arecord on Linux, FFmpeg elsewhere) and reading raw PCM from its stdout.
type ExecSource struct {
	// Device is the input device ID; empty selects the platform default.
	Device string
	// FFmpegPath overrides the FFmpeg binary on FFmpeg platforms.
	FFmpegPath string
}

var _ Source = (*ExecSource)(nil)

// Open starts the capture process.
func (s *ExecSource) Open(ctx context.Context) (Stream, error) {
	name, args, err := BuildCaptureCommand(ctx, s.Device, s.FFmpegPath)
	if err != nil {
		return nil, err
	}
	return startExec(ctx, name, args)
}

// execStream is a running capture process.
type execStream struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	frames  chan []byte
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func startExec(ctx context.Context, name string, args []string) (*execStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, name, args...)

	// Declarative graceful shutdown: signal first, kill after WaitDelay.
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	s := &execStream{
		cmd:     cmd,
		cancel:  cancel,
		frames:  make(chan []byte, frameBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	cmd.Stderr = &s.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, util.WrapError("create stdin pipe", err)
	}
	s.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, util.WrapError("create stdout pipe", err)
	}
	s.stdout = stdout

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	slog.Debug("audio capture started", "command", name, "pid", cmd.Process.Pid)

	go s.run()
	return s, nil
}

func (s *execStream) run() {
	defer close(s.done)
	defer close(s.frames)

	var readErr error
	for {
		buf := make([]byte, FrameBytes)
		if _, err := io.ReadFull(s.stdout, buf); err != nil {
			readErr = err
			break
		}
		select {
		case s.frames <- buf:
		case <-s.closing:
			// Keep draining so the process is not blocked on a full pipe.
			continue
		}
	}

	waitErr := s.cmd.Wait()

	select {
	case <-s.closing:
		// Intentional stop.
		return
	default:
	}

	err := waitErr
	if err == nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		err = readErr
	}
	if err == nil {
		err = io.EOF
	}
	err = util.WithStderr(err, s.stderr.String())

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Frames implements Stream.
func (s *execStream) Frames() <-chan []byte {
	return s.frames
}

// Err implements Stream.
func (s *execStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements Stream. It returns once the capture process has exited.
func (s *execStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		if err := stopViaStdin(s.stdin); err != nil {
			slog.Debug("failed to stop capture via stdin", "error", err)
		}
		s.cancel()
	})
	<-s.done
	return nil
}
