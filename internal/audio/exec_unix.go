//go:build !windows

package audio

import "io"

// stopViaStdin is a no-op; capture processes are stopped with SIGINT.
func stopViaStdin(io.WriteCloser) error {
	return nil
}
