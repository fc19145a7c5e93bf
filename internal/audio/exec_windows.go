//go:build windows

package audio

import (
	"io"

	"github.com/oszuidwest/zwfm-dictation/internal/util"
)

// stopViaStdin asks FFmpeg to quit, since Windows has no SIGINT for child processes.
func stopViaStdin(stdin io.WriteCloser) error {
	return util.StopFFmpegViaStdin(stdin)
}
