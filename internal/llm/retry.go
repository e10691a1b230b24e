package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryPolicy bounds retries of a single model call. Rate limiting and
// unavailability (429/503) back off for (n+1)*BackoffStep before the n-th
// retry; an attempt that outlives AttemptTimeout is retried immediately.
type RetryPolicy struct {
	MaxStatusRetries  int
	MaxTimeoutRetries int
	AttemptTimeout    time.Duration
	BackoffStep       time.Duration

	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// DefaultRetryPolicy is used for the translation step of prompt generation.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxStatusRetries:  3,
		MaxTimeoutRetries: 2,
		AttemptTimeout:    30 * time.Second,
		BackoffStep:       2 * time.Second,
		Sleep:             sleepContext,
	}
}

// Do calls fn until it succeeds, fails permanently or exhausts the policy.
// The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	statusRetries, timeoutRetries := 0, 0
	for {
		out, err := p.attempt(ctx, fn)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.IsRetryable() && statusRetries < p.MaxStatusRetries:
			delay := time.Duration(statusRetries+1) * p.BackoffStep
			statusRetries++
			p.log("retrying llm call", "status", apiErr.StatusCode, "attempt", statusRetries, "delay", delay)
			if serr := sleep(ctx, delay); serr != nil {
				return "", err
			}
		case errors.Is(err, context.DeadlineExceeded) && timeoutRetries < p.MaxTimeoutRetries:
			timeoutRetries++
			p.log("retrying llm call after timeout", "attempt", timeoutRetries)
		default:
			return "", err
		}
	}
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(actx)
}

func (p RetryPolicy) log(msg string, args ...any) {
	if p.Logger != nil {
		p.Logger.Warn(msg, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
