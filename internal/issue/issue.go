// SPDX-License-Identifier: MPL-2.0

package issue

import "errors"

// Sentinel error kinds. Every failure surfaced by podstrap wraps exactly one
// of these so callers (and tests) can assert on the class of a failure with
// errors.Is rather than matching message text or exit codes.
var (
	// ErrInvalidArgument marks bad flag syntax or a malformed flag value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownAccount marks a target account that does not exist in the
	// system account database.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrNoHomeDirectory marks an account whose home directory is missing,
	// unset, or the filesystem root.
	ErrNoHomeDirectory = errors.New("no usable home directory")

	// ErrInsufficientPrivilege marks an operator that is root, lacks the
	// elevated group membership, or a target below the rootless uid floor.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrPathEscape marks a caller-supplied path fragment that resolves
	// outside its expected root.
	ErrPathEscape = errors.New("path escapes root")

	// ErrExternalCommand marks a non-zero exit from a collaborator command.
	ErrExternalCommand = errors.New("external command failed")

	// ErrTimeout marks a readiness poll that exceeded its bound.
	ErrTimeout = errors.New("timed out")

	// ErrRetriesExhausted marks a retried operation that failed every attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrPhaseAborted marks a fatal-policy phase failure or a declined
	// confirmation gate.
	ErrPhaseAborted = errors.New("phase aborted")

	// ErrHelpShown signals that usage text was displayed and no work should
	// happen. It is not a user error; callers normalize it to exit code 0.
	ErrHelpShown = errors.New("help shown")

	// ErrInternal marks a programming-error-class inconsistency (for example
	// a flag cross-check mismatch). Distinct from user-caused errors so test
	// suites can tell the two apart.
	ErrInternal = errors.New("internal consistency error")
)

// UserCaused reports whether err belongs to the user-facing side of the
// taxonomy, as opposed to an internal consistency failure.
func UserCaused(err error) bool {
	return err != nil && !errors.Is(err, ErrInternal)
}
