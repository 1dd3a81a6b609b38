// SPDX-License-Identifier: MPL-2.0

// Package readiness converts asynchronous external conditions into
// synchronous pass/fail decisions: a bounded fixed-interval poller for
// observing service startup, and a bounded exponential-backoff retrier for
// flaky network operations. Both block cooperatively between attempts and
// report only boolean outcome; diagnosing why a probe failed is the
// caller's concern.
package readiness
