package audio

import "context"

// Backend selects how microphone audio is captured.
type Backend string

const (
	// BackendExec captures through an external tool (arecord or FFmpeg).
	BackendExec Backend = "exec"
	// BackendMalgo captures in-process through miniaudio.
	BackendMalgo Backend = "malgo"
)

// Device represents an available audio input device.
type Device struct {
	// ID is the device identifier.
	ID string `json:"id"`
	// Name is the device display name.
	Name string `json:"name"`
}

// Source opens capture sessions on the audio input device.
// The device is exclusive: callers must close one Stream before opening the next.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture session delivering FrameBytes-sized frames.
type Stream interface {
	// Frames is closed when the session ends.
	Frames() <-chan []byte
	// Err reports why the session ended; nil after a clean Close.
	Err() error
	// Close stops capture and releases the device. It is safe to call more than once.
	Close() error
}
