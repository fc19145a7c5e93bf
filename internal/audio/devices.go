package audio

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// listTimeout bounds how long a device listing command may run.
const listTimeout = 5 * time.Second

// Devices returns available audio input devices for the current platform.
// ffmpegPath overrides the FFmpeg binary on platforms that list through FFmpeg.
func Devices(ctx context.Context, ffmpegPath string) []Device {
	cfg := platformConfig(ffmpegPath)
	return cfg.List.Devices(ctx)
}

// DeviceListConfig defines how to list audio devices for a platform.
type DeviceListConfig struct {
	// Command and args to list devices.
	Command []string

	// AudioStartMarker indicates the start of audio devices section.
	AudioStartMarker string

	// AudioStopMarker indicates the end of audio devices section (optional).
	AudioStopMarker string

	// DevicePattern is the regex to extract device info.
	DevicePattern *regexp.Regexp

	// ParseDevice converts regex matches to a Device.
	ParseDevice func(matches []string) *Device

	// FallbackDevices are returned if detection fails.
	FallbackDevices []Device
}

// Devices runs the listing command and parses its combined output.
//
//nolint:gocritic // hugeParam: called rarely
func (cfg DeviceListConfig) Devices(ctx context.Context) []Device {
	if len(cfg.Command) == 0 {
		return cfg.FallbackDevices
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	// FFmpeg exits non-zero after listing, so output is parsed regardless of err.
	output, err := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...).CombinedOutput()
	if err != nil && len(output) == 0 {
		slog.Error("failed to list audio devices", "command", cfg.Command[0], "error", err)
		return cfg.FallbackDevices
	}

	return cfg.Parse(string(output))
}

// Parse extracts devices from listing output, falling back when none match.
//
//nolint:gocritic // hugeParam: called rarely
func (cfg DeviceListConfig) Parse(output string) []Device {
	var devices []Device
	inAudioSection := cfg.AudioStartMarker == ""

	for line := range strings.SplitSeq(output, "\n") {
		if cfg.AudioStartMarker != "" && strings.Contains(line, cfg.AudioStartMarker) {
			inAudioSection = true
			continue
		}
		if cfg.AudioStopMarker != "" && strings.Contains(line, cfg.AudioStopMarker) {
			inAudioSection = false
			continue
		}
		if !inAudioSection || cfg.DevicePattern == nil || cfg.ParseDevice == nil {
			continue
		}
		// DirectShow prints an alternative name line per device.
		if strings.Contains(line, "Alternative name") {
			continue
		}

		if matches := cfg.DevicePattern.FindStringSubmatch(line); len(matches) > 0 {
			if dev := cfg.ParseDevice(matches); dev != nil {
				devices = append(devices, *dev)
			}
		}
	}

	if len(devices) == 0 {
		return cfg.FallbackDevices
	}
	return devices
}
