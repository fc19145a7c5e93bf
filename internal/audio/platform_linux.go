//go:build linux

package audio

import (
	"regexp"
	"strconv"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:       "arecord",
		DefaultDevice: "default",
		BuildArgs:     buildLinuxArgs,
		List: DeviceListConfig{
			Command:       []string{"arecord", "-l"},
			DevicePattern: regexp.MustCompile(`card\s+(\d+):\s+(\w+)\s+\[([^\]]+)\],\s+device\s+(\d+)`),
			ParseDevice: func(matches []string) *Device {
				if len(matches) < 5 {
					return nil
				}
				return &Device{
					ID:   "plughw:CARD=" + matches[2] + ",DEV=" + matches[4],
					Name: matches[3] + " (device " + matches[4] + ")",
				}
			},
			FallbackDevices: []Device{
				{ID: "default", Name: "System default"},
			},
		},
	}
}

func buildLinuxArgs(device string) []string {
	return []string{
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(SampleRate),
		"-c", strconv.Itoa(Channels),
		"-t", "raw",
		"-q",
		"-",
	}
}
