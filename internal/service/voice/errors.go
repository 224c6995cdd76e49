package voice

import (
	"errors"
	"fmt"

	"github.com/Victorugws/swift/internal/service/ai"
)

// Terminal errors. Each aborts the pipeline and is reported to the caller.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidAudio     = errors.New("invalid audio")
	ErrEmptyCompletion  = errors.New("empty completion")
	ErrCompletionFailed = errors.New("completion failed")
	ErrSynthesisFailed  = errors.New("voice synthesis failed")
	ErrRateLimited      = errors.New("rate limited")
)

// Outcome names err for metrics and logs. A nil error is "ok".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty_completion"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCompletionFailed):
		return "completion_failed"
	case errors.Is(err, ErrSynthesisFailed):
		return "synthesis_failed"
	default:
		return "internal"
	}
}

func completionError(err error) error {
	switch {
	case errors.Is(err, ai.ErrEmptyCompletion):
		return ErrEmptyCompletion
	case errors.Is(err, ai.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
}
