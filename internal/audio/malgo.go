//go:build cgo

package audio

import (
	"context"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// MalgoSource captures audio in-process through miniaudio.
type MalgoSource struct {
	// DeviceName selects a capture device by name; empty selects the system default.
	DeviceName string
}

var _ Source = (*MalgoSource)(nil)

// Open initializes a miniaudio context and starts a 16 kHz mono S16 capture device.
func (s *MalgoSource) Open(ctx context.Context) (Stream, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, util.WrapError("initialize audio context", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.SampleRate = SampleRate
	deviceConfig.PeriodSizeInFrames = FrameSamples

	if s.DeviceName != "" {
		infos, err := mctx.Devices(malgo.Capture)
		if err != nil {
			freeContext(mctx)
			return nil, util.WrapError("list capture devices", err)
		}
		found := false
		for i := range infos {
			if infos[i].Name() == s.DeviceName {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			freeContext(mctx)
			return nil, ErrNoAudioDevice
		}
	}

	st := &malgoStream{
		mctx:   mctx,
		frames: make(chan []byte, frameBuffer),
		done:   make(chan struct{}),
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			st.push(input)
		},
	})
	if err != nil {
		freeContext(mctx)
		return nil, util.WrapError("initialize capture device", err)
	}
	st.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(mctx)
		return nil, util.WrapError("start capture device", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			st.shutdown(ctx.Err())
		case <-st.done:
		}
	}()

	return st, nil
}

// MalgoDevices lists capture devices known to miniaudio.
func MalgoDevices() ([]Device, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, util.WrapError("initialize audio context", err)
	}
	defer freeContext(mctx)

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, util.WrapError("list capture devices", err)
	}
	devices := make([]Device, 0, len(infos))
	for i := range infos {
		devices = append(devices, Device{ID: infos[i].Name(), Name: infos[i].Name()})
	}
	return devices, nil
}

func freeContext(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}

// malgoStream slices callback buffers into fixed frames.
type malgoStream struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	frames chan []byte

	done chan struct{}

	mu      sync.Mutex
	pending []byte
	ended   bool
	err     error
}

// push runs on the audio callback thread and must not block.
func (s *malgoStream) push(input []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.pending = append(s.pending, input...)
	for len(s.pending) >= FrameBytes {
		frame := make([]byte, FrameBytes)
		copy(frame, s.pending[:FrameBytes])
		s.pending = s.pending[FrameBytes:]
		select {
		case s.frames <- frame:
		default:
			// Reader fell behind; drop the frame.
		}
	}
}

// Frames implements Stream.
func (s *malgoStream) Frames() <-chan []byte {
	return s.frames
}

// Err implements Stream.
func (s *malgoStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements Stream.
func (s *malgoStream) Close() error {
	s.shutdown(nil)
	return nil
}

func (s *malgoStream) shutdown(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.err = err
	close(s.done)
	s.mu.Unlock()

	// Uninit waits for the callback, which takes s.mu, so it runs unlocked.
	s.device.Uninit()
	freeContext(s.mctx)
	close(s.frames)
}
