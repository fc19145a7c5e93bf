package audio

import "strconv"

// ffmpegOutputArgs requests raw 16 kHz mono S16LE on stdout.
func ffmpegOutputArgs() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"pipe:1",
	}
}
