// Package retry applies one bounded retry policy to outbound operations.
//
// Every network call in the pipeline (listing fetch, detail fetch, login,
// provider search) shares this policy so attempt counts and delays are tuned
// in one place. Errors wrapped with Permanent stop the loop immediately.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values below
	// one are treated as one.
	Attempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// DefaultPolicy matches the sync defaults: three attempts, two seconds apart.
var DefaultPolicy = Policy{Attempts: 3, Delay: 2 * time.Second}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, returns a permanent error, the context ends,
// or the policy's attempts are exhausted. The last error is returned with any
// permanent marker removed.
func Do(ctx context.Context, policy Policy, op func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		var p *permanentError
		if errors.As(lastErr, &p) {
			return p.err
		}
		if attempt == attempts {
			break
		}
		if err := Sleep(ctx, policy.Delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient reports whether err is worth another attempt. Cancellation and
// errors marked Permanent are not.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
