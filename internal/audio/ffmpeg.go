//go:build !linux && !windows

package audio

// buildFFmpegCaptureArgs constructs FFmpeg arguments for audio capture.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return append([]string{
		"-f", inputFormat,
		"-i", device,
		"-nostdin",
	}, ffmpegOutputArgs()...)
}
