//go:build windows

package util

import (
	"io"
	"os"
)

// ShutdownSignals returns the signals that stop the dictation server.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal is a no-op on Windows; capture processes are stopped with StopFFmpegViaStdin.
func GracefulSignal(*os.Process) error {
	return nil
}

// StopFFmpegViaStdin asks FFmpeg to quit by writing 'q' to its stdin.
func StopFFmpegViaStdin(stdin io.WriteCloser) error {
	if stdin == nil {
		return nil
	}
	_, _ = stdin.Write([]byte("q"))
	return stdin.Close()
}
