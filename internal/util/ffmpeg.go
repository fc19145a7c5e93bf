package util

import "os/exec"

// ResolveFFmpegPath returns the FFmpeg binary to capture with, or "" if none is usable.
// A configured customPath must itself be executable; otherwise PATH is searched.
func ResolveFFmpegPath(customPath string) string {
	return resolveExecutable(customPath, "ffmpeg")
}

func resolveExecutable(customPath, name string) string {
	candidate := name
	if customPath != "" {
		candidate = customPath
	}
	path, err := exec.LookPath(candidate)
	if err != nil {
		return ""
	}
	if customPath != "" {
		return customPath
	}
	return path
}
