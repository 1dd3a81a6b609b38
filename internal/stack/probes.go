// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"context"
	"strings"
)

// Readiness probes. Each is a side-effect-free observation suitable for the
// poller: enablement exit codes are not trusted, only observed state is.

// engineRunning reports whether the engine answers at all.
func (s *Stack) engineRunning(ctx context.Context) bool {
	return s.priv.Command(ctx, "podman", "version", "--format", "{{.Client.Version}}").Run() == nil
}

// engineHealthy reports whether the engine describes a working host.
func (s *Stack) engineHealthy(ctx context.Context) bool {
	out, err := s.priv.Run("probe engine health",
		s.priv.Command(ctx, "podman", "info", "--format", "{{.Host.Os}}"))
	return err == nil && strings.TrimSpace(out) == "linux"
}

// serviceActive reports whether the user-level API socket unit is active.
func (s *Stack) serviceActive(ctx context.Context) bool {
	out, err := s.priv.Run("probe socket unit",
		s.priv.Command(ctx, "systemctl", "--user", "is-active", "podman.socket"))
	return err == nil && strings.TrimSpace(out) == "active"
}
