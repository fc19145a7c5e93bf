//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that stop the dictation server.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// GracefulSignal asks a capture process to exit with SIGINT, which lets
// arecord and FFmpeg flush and close the device.
func GracefulSignal(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
