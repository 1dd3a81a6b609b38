// SPDX-License-Identifier: MPL-2.0

// Package stack defines the container runtime stack podstrap manages: the
// Podman engine, crun OCI runtime, conmon monitor, slirp4netns network
// helper, and the podman-compose orchestration CLI. It turns that stack
// into the ordered idempotent phase lists consumed by the orchestrator,
// one for install and a reversed mirror for uninstall.
package stack
