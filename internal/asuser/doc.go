// SPDX-License-Identifier: MPL-2.0

// Package asuser is the single seam through which podstrap crosses privilege
// boundaries. A Capability, built once from a resolved target identity,
// runs commands as the target (or as root) via per-command elevation, guards
// every home-relative path against directory traversal, and tracks created
// paths for a deferred ownership finalization pass that reconciles
// everything to the target identity after all phases complete.
package asuser
