// Package recognizer defines the speech recognition contract and the
// outcome model for a recognition attempt.
package recognizer

import (
	"context"
	"errors"

	"github.com/oszuidwest/zwfm-dictation/internal/audio"
)

// Language is the only recognition language.
const Language = "en-US"

// ErrUnrecognized is returned when the service understood no speech in the clip.
var ErrUnrecognized = errors.New("speech not recognized")

// Recognizer turns a captured clip into a raw transcript.
// Implementations make one attempt with no retries.
type Recognizer interface {
	Recognize(ctx context.Context, clip audio.Clip) (string, error)
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, clip audio.Clip) (string, error)

// Recognize implements Recognizer.
func (f Func) Recognize(ctx context.Context, clip audio.Clip) (string, error) {
	return f(ctx, clip)
}

// Outcome classifies a listen cycle.
type Outcome string

const (
	// OutcomeSuccess means a transcript was produced.
	OutcomeSuccess Outcome = "success"
	// OutcomeTimeout means no speech started in time or the request deadline passed.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeUnrecognized means the service returned no transcript.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeServiceError covers capture, network and service failures.
	OutcomeServiceError Outcome = "service_error"
)

// Outcomes lists every outcome, for metric label initialization.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeTimeout, OutcomeUnrecognized, OutcomeServiceError}

// Result is the outcome of one listen cycle. Text holds the formatted
// transcript on success; Err holds the cause otherwise.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

// OK reports whether the cycle produced a transcript.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Classify maps an error to its outcome. A nil error is a success.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, audio.ErrWaitTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, ErrUnrecognized):
		return OutcomeUnrecognized
	default:
		return OutcomeServiceError
	}
}

// Failure builds the Result for err.
func Failure(err error) Result {
	return Result{Outcome: Classify(err), Err: err}
}
