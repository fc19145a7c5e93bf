//go:build windows

package audio

// buildFFmpegCaptureArgs constructs FFmpeg arguments for audio capture on Windows.
// -nostdin is omitted so FFmpeg can be stopped with a 'q' on stdin.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return append([]string{
		"-f", inputFormat,
		"-i", device,
	}, ffmpegOutputArgs()...)
}
