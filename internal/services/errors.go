package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/draxon/pulse/internal/metrics"
)

// Pipeline failures. Every error returned by SubmissionPipeline matches
// exactly one of these with errors.Is, or none for unexpected failures.
var (
	ErrUnauthorized   = errors.New("submitter holds no authorized role")
	ErrNotConfigured  = errors.New("alert channel is not configured")
	ErrRateLimited    = errors.New("submitter is in cooldown")
	ErrInvalidInput   = errors.New("invalid alert form")
	ErrDeliveryFailed = errors.New("alert delivery failed")
	ErrStorage        = errors.New("alert storage failed")
)

// RateLimitedError carries the time left before the submitter may alert again
type RateLimitedError struct {
	Remaining time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: %d seconds remaining", ErrRateLimited, e.RemainingSeconds())
}

// Is lets errors.Is(err, ErrRateLimited) match
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RemainingSeconds rounds the remaining time up to whole seconds
func (e *RateLimitedError) RemainingSeconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// InvalidInputError maps form field IDs to what is wrong with them
type InvalidInputError struct {
	Fields map[string]string
}

func (e *InvalidInputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidInput, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrInvalidInput) match
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// User-facing responses
const (
	MsgUnauthorized   = ":warning: You must be an authorized member to use the emergency alert system."
	MsgNotConfigured  = ":warning: Alert channel has not been configured. Please contact a member of leadership."
	MsgInvalidInput   = ":warning: Invalid form submission. Please try again."
	MsgDeliveryFailed = ":warning: The alert channel could not be reached. Please contact an administrator."
	MsgStorage        = ":warning: Your alert was posted to the alert channel but could not be recorded. Please contact an administrator."
	MsgGenericFailure = "An error occurred while processing your emergency alert. Please try again or contact an administrator."
)

// UserMessage translates a pipeline error into the ephemeral text shown to
// the submitter.
func UserMessage(err error) string {
	var rl *RateLimitedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rl):
		return fmt.Sprintf(":warning: Please wait %d seconds before sending another alert.", rl.RemainingSeconds())
	case errors.Is(err, ErrUnauthorized):
		return MsgUnauthorized
	case errors.Is(err, ErrNotConfigured):
		return MsgNotConfigured
	case errors.Is(err, ErrInvalidInput):
		return MsgInvalidInput
	case errors.Is(err, ErrDeliveryFailed):
		return MsgDeliveryFailed
	case errors.Is(err, ErrStorage):
		return MsgStorage
	default:
		return MsgGenericFailure
	}
}

// outcome returns the metrics label for a pipeline result
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrNotConfigured):
		return metrics.OutcomeNotConfigured
	case errors.Is(err, ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, ErrDeliveryFailed):
		return metrics.OutcomeDelivery
	case errors.Is(err, ErrStorage):
		return metrics.OutcomeStorage
	default:
		return metrics.OutcomeError
	}
}
