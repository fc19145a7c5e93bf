package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned when a capture backend is not compiled in.
var ErrBackendUnavailable = errors.New("audio backend unavailable in this build")

// NewSource returns the capture source for backend.
func NewSource(backend Backend, device, ffmpegPath string) (Source, error) {
	switch backend {
	case BackendExec, "":
		return &ExecSource{Device: device, FFmpegPath: ffmpegPath}, nil
	case BackendMalgo:
		return &MalgoSource{DeviceName: device}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// ListDevices returns input devices for backend.
func ListDevices(ctx context.Context, backend Backend, ffmpegPath string) ([]Device, error) {
	if backend == BackendMalgo {
		return MalgoDevices()
	}
	return Devices(ctx, ffmpegPath), nil
}
