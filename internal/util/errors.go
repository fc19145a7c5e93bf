// Package util holds small helpers shared by the capture and config layers.
package util

import (
	"fmt"
	"strings"
)

// maxErrorLineLength is the maximum length for extracted error messages.
const maxErrorLineLength = 200

// WrapError wraps an error with a descriptive operation context.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// ExtractLastError returns the last non-blank line of a capture process's
// stderr, truncated to maxErrorLineLength.
func ExtractLastError(stderr string) string {
	rest := strings.TrimSpace(stderr)
	for rest != "" {
		var line string
		if i := strings.LastIndexByte(rest, '\n'); i >= 0 {
			rest, line = rest[:i], rest[i+1:]
		} else {
			rest, line = "", rest
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxErrorLineLength {
			return line[:maxErrorLineLength] + "..."
		}
		return line
	}
	return ""
}

// WithStderr annotates err with the last stderr line of the process that caused it.
func WithStderr(err error, stderr string) error {
	if err == nil {
		return nil
	}
	if msg := ExtractLastError(stderr); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}
