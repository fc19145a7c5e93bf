//go:build windows

package audio

import (
	"regexp"
	"strings"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:    "ffmpeg",
		UsesFFmpeg: true,
		BuildArgs: func(device string) []string {
			return buildFFmpegCaptureArgs("dshow", device)
		},
		List: DeviceListConfig{
			// FFmpeg versions differ on section headers, so filter on "(audio)" instead.
			Command:       []string{"ffmpeg", "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy"},
			DevicePattern: regexp.MustCompile(`\[dshow[^\]]*\]\s*"([^"]+)"\s*\(audio\)`),
			ParseDevice: func(matches []string) *Device {
				if len(matches) < 2 {
					return nil
				}
				name := strings.TrimSpace(matches[1])
				return &Device{ID: "audio=" + name, Name: name}
			},
		},
	}
}
