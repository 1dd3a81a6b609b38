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

// Probe is a side-effect-free observation of an external condition. It must
// be repeatable: the poller calls it until it reports true or time runs out.
type Probe func(ctx context.Context) bool

// errNotReady drives the backoff loop; it never escapes PollUntil.
var errNotReady = errors.New("not ready")

// PollUntil calls probe every interval until it returns true or timeout
// elapses. The first probe happens immediately. Returns nil on readiness and
// an ErrTimeout-class error once the bound is exceeded.
func PollUntil(ctx context.Context, what string, probe Probe, interval, timeout time.Duration) error {
	if interval <= 0 || timeout < interval {
		return issue.NewContext(issue.ErrInternal).
			Operation("configure readiness poll").
			Resource(what).
			Wrap(fmt.Errorf("timeout %v must be >= interval %v (both positive)", timeout, interval)).
			Err()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	err := backoff.Retry(func() error {
		if probe(ctx) {
			return nil
		}
		return errNotReady
	}, bo)
	if err != nil {
		return issue.NewContext(issue.ErrTimeout).
			Operation("wait for " + what).
			Suggestion(fmt.Sprintf("Condition did not hold within %v; inspect the service logs", timeout)).
			Wrap(err).
			Err()
	}
	return nil
}
