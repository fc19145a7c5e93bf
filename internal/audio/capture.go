package audio

import (
	"context"
	"errors"
)

// ErrNoAudioDevice is returned when no audio input device is available.
var ErrNoAudioDevice = errors.New("no audio input device found")

// CaptureConfig defines platform-specific audio capture configuration.
type CaptureConfig struct {
	// Command is the executable name (e.g., "arecord", "ffmpeg").
	Command string

	// DefaultDevice is used when no device is configured.
	DefaultDevice string

	// UsesFFmpeg indicates if this platform uses FFmpeg for capture.
	UsesFFmpeg bool

	// BuildArgs returns arguments that write 16 kHz mono S16LE to stdout.
	BuildArgs func(device string) []string

	// List describes how to enumerate input devices.
	List DeviceListConfig
}

// BuildCaptureCommand returns the command and arguments for audio capture.
// If device is empty, it uses the platform default or the first listed device.
func BuildCaptureCommand(ctx context.Context, device, ffmpegPath string) (cmd string, args []string, err error) {
	cfg := platformConfig(ffmpegPath)

	if device == "" {
		device = cfg.DefaultDevice
	}

	// Windows has no safe default.
	if device == "" {
		devices := cfg.List.Devices(ctx)
		if len(devices) == 0 {
			return "", nil, ErrNoAudioDevice
		}
		device = devices[0].ID
	}

	return cfg.Command, cfg.BuildArgs(device), nil
}

// platformConfig resolves the capture tool, substituting a custom FFmpeg binary where used.
func platformConfig(ffmpegPath string) CaptureConfig {
	cfg := getPlatformConfig()
	if cfg.UsesFFmpeg && ffmpegPath != "" {
		cfg.Command = ffmpegPath
		if len(cfg.List.Command) > 0 {
			cfg.List.Command = append([]string{ffmpegPath}, cfg.List.Command[1:]...)
		}
	}
	return cfg
}
