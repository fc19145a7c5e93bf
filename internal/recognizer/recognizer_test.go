package recognizer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{name: "nil", err: nil, want: OutcomeSuccess},
		{name: "wait timeout", err: audio.ErrWaitTimeout, want: OutcomeTimeout},
		{name: "deadline", err: fmt.Errorf("recognize: %w", context.DeadlineExceeded), want: OutcomeTimeout},
		{name: "unrecognized", err: fmt.Errorf("google: %w", ErrUnrecognized), want: OutcomeUnrecognized},
		{name: "stream closed", err: audio.ErrStreamClosed, want: OutcomeServiceError},
		{name: "network", err: errors.New("connection refused"), want: OutcomeServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFailure(t *testing.T) {
	err := errors.New("boom")
	r := Failure(err)
	assert.False(t, r.OK())
	assert.Equal(t, OutcomeServiceError, r.Outcome)
	assert.Equal(t, err, r.Err)
	assert.Empty(t, r.Text)
}

func TestFunc(t *testing.T) {
	var r Recognizer = Func(func(context.Context, audio.Clip) (string, error) {
		return "hello", nil
	})
	text, err := r.Recognize(context.Background(), audio.Clip{})
	assert.NoError(t, err)
	assert.Equal(t, "hello", text)
}
