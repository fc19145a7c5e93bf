//go:build !windows

package audio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecStreamDeliversFrames(t *testing.T) {
	s, err := startExec(context.Background(), "sh", []string{"-c", "head -c 1280 /dev/zero"})
	require.NoError(t, err)
	defer s.Close()

	var got int
	for frame := range s.Frames() {
		assert.Len(t, frame, FrameBytes)
		got++
	}
	assert.Equal(t, 2, got)
	assert.ErrorIs(t, s.Err(), io.EOF)
}

func TestExecStreamReportsStderr(t *testing.T) {
	s, err := startExec(context.Background(), "sh", []string{"-c", "echo 'no such card' >&2; exit 1"})
	require.NoError(t, err)
	defer s.Close()

	for range s.Frames() {
	}
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "no such card")
}

func TestExecStreamClose(t *testing.T) {
	s, err := startExec(context.Background(), "sh", []string{"-c", "exec cat /dev/zero"})
	require.NoError(t, err)

	<-s.Frames()

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.NoError(t, s.Err())
	assert.NoError(t, s.Close())
}
