// SPDX-License-Identifier: MPL-2.0

package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/podstrap/podstrap/internal/issue"
)

// Policy bounds a retried operation. The wait strictly grows each attempt,
// so Multiplier must exceed 1.
type Policy struct {
	MaxAttempts int
	InitialWait time.Duration
	Multiplier  float64
}

func (p Policy) validate() error {
	if p.MaxAttempts < 1 || p.InitialWait <= 0 || p.Multiplier <= 1 {
		return fmt.Errorf("attempts %d, initial wait %v, multiplier %v: attempts >= 1, wait > 0, multiplier > 1 required",
			p.MaxAttempts, p.InitialWait, p.Multiplier)
	}
	return nil
}

// Op is one attempt of a retryable operation. Return Permanent(err) to stop
// retrying a terminal failure early.
type Op func(ctx context.Context) error

// Permanent marks err as terminal: Retry returns it immediately instead of
// burning the remaining attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op with exponential backoff until it succeeds, fails
// terminally, or p.MaxAttempts attempts have been spent. Exhaustion yields
// an ErrRetriesExhausted-class error wrapping the last failure. Intended for
// transient network operations; idempotent local work should rely on phase
// re-runs instead.
func Retry(ctx context.Context, what string, op Op, p Policy) error {
	if err := p.validate(); err != nil {
		return issue.NewContext(issue.ErrInternal).
			Operation("configure retry policy").
			Resource(what).
			Wrap(err).
			Err()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialWait
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0 // deterministic growth, required by the policy contract
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0 // bounded by attempts, not wall clock

	terminal := false
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		var pe *backoff.PermanentError
		if errors.As(err, &pe) {
			terminal = true
		}
		return err
	}, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(p.MaxAttempts-1)))

	switch {
	case err == nil:
		return nil
	case terminal:
		return err
	case ctx.Err() != nil:
		return err
	default:
		return issue.NewContext(issue.ErrRetriesExhausted).
			Operation(what).
			Suggestion(fmt.Sprintf("All %d attempts failed; check network connectivity and retry", p.MaxAttempts)).
			Wrap(fmt.Errorf("after %d attempts: %w", attempts, err)).
			Err()
	}
}
