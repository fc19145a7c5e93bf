//go:build !cgo

package audio

import "context"

// MalgoSource captures audio in-process through miniaudio.
// This build has no cgo, so opening always fails.
type MalgoSource struct {
	DeviceName string
}

var _ Source = (*MalgoSource)(nil)

// Open implements Source.
func (s *MalgoSource) Open(context.Context) (Stream, error) {
	return nil, ErrBackendUnavailable
}

// MalgoDevices reports ErrBackendUnavailable in builds without cgo.
func MalgoDevices() ([]Device, error) {
	return nil, ErrBackendUnavailable
}
