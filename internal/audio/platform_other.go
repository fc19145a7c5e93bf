//go:build !linux && !darwin && !windows

package audio

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:    "ffmpeg",
		UsesFFmpeg: true,
		BuildArgs: func(device string) []string {
			return buildFFmpegCaptureArgs("oss", device)
		},
		DefaultDevice: "/dev/dsp",
	}
}
