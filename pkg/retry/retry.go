// Package retry runs idempotent calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// NonRetryableCodes are error codes that describe the request rather than a
// transient condition. Retrying them cannot succeed.
var NonRetryableCodes = map[string]bool{
	"VALIDATION_ERROR":         true,
	"INSUFFICIENT_PERMISSIONS": true,
	"EMAIL_ALREADY_EXISTS":     true,
	"USER_NOT_FOUND":           true,
	"CANNOT_DELETE_SELF":       true,
	"CANNOT_BAN_SELF":          true,
}

// Classified is implemented by errors that carry an HTTP status and a stable code.
type Classified interface {
	error
	StatusCode() int
	ErrorCode() string
}

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy makes up to three attempts starting at 200ms.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// Retryable reports whether err is worth another attempt. Classified errors
// with a non-retryable code or a 4xx status are final, as is cancellation.
// Anything else, including transport errors, is retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ce Classified
	if errors.As(err, &ce) {
		if NonRetryableCodes[ce.ErrorCode()] {
			return false
		}
		if s := ce.StatusCode(); s >= 400 && s < 500 {
			return false
		}
	}
	return true
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}

	b := goretry.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	b = goretry.WithMaxRetries(uint64(p.MaxAttempts-1), b)

	return goretry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && Retryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}
