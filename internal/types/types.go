// Package types provides shared type definitions used across the dictation tool.
package types

import "time"

const (
	// InitialRetryDelay is the starting delay before reopening a failed capture stream.
	InitialRetryDelay = 3000 * time.Millisecond
	// MaxRetryDelay is the maximum delay between reopen attempts.
	MaxRetryDelay = 60000 * time.Millisecond
	// MaxRetries is the maximum number of consecutive reopen attempts.
	MaxRetries = 10
	// SuccessThreshold is how long a stream must run before the retry count resets.
	SuccessThreshold = 30000 * time.Millisecond
)

const (
	// ShutdownTimeout is the duration to wait for graceful shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
)

// MonitorStatus describes the volume monitor.
type MonitorStatus struct {
	Running    bool    `json:"running"`              // Capture stream is open
	Volume     float64 `json:"volume"`               // Latest volume value
	RetryCount int     `json:"retry_count,omitzero"` // Consecutive reopen attempts
	LastError  string  `json:"last_error,omitzero"`  // Most recent capture error
	Exhausted  bool    `json:"exhausted,omitzero"`   // Gave up after MaxRetries
}

// ListenStatus describes the listen controller.
type ListenStatus struct {
	State      string `json:"state"`      // idle, listening, processing, done or error
	Status     string `json:"status"`     // Status label text
	Transcript string `json:"transcript"` // Text shown in the output box
}

// WSStatusResponse is sent to clients with the full application status.
type WSStatusResponse struct {
	Type            string        `json:"type"`             // Message type identifier
	Listen          ListenStatus  `json:"listen"`           // Listen cycle status
	Monitor         MonitorStatus `json:"monitor"`          // Volume monitor status
	FFmpegAvailable bool          `json:"ffmpeg_available"` // FFmpeg binary is available
	Settings        WSSettings    `json:"settings"`         // Current settings
	Version         VersionInfo   `json:"version"`          // Version information
}

// WSSettings contains the settings sub-object in status responses.
type WSSettings struct {
	AudioInput string `json:"audio_input"` // Selected audio input device
	Backend    string `json:"backend"`     // Capture backend
	Provider   string `json:"provider"`    // Recognizer provider
	Platform   string `json:"platform"`    // Operating system platform
}

// WSListenResponse is pushed when the listen status changes.
type WSListenResponse struct {
	Type   string       `json:"type"` // "listen"
	Listen ListenStatus `json:"listen"`
}

// WSVersionResponse is pushed when a newer release is seen.
type WSVersionResponse struct {
	Type    string      `json:"type"` // "version"
	Version VersionInfo `json:"version"`
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}
