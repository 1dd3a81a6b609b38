// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"context"
	"fmt"

	"github.com/podstrap/podstrap/internal/orchestrate"
	"github.com/podstrap/podstrap/internal/readiness"
)

// InstallPhases returns the ordered install phase list. Ordering is a hard
// dependency chain: the OCI runtime and monitor must exist before the engine
// is built, and the engine must exist before its service is enabled and
// verified.
func (s *Stack) InstallPhases() []orchestrate.Phase {
	phases := []orchestrate.Phase{
		{
			Name:       "remove-conflicting-packages",
			Policy:     orchestrate.PolicyWarn,
			Gate:       true,
			GatePrompt: "Remove distro-packaged container tools before the from-source install?",
			Run:        s.removeConflictingPackages,
		},
		{
			Name:   "install-build-dependencies",
			Policy: orchestrate.PolicyFatal,
			Run:    s.installBuildDependencies,
		},
		{
			Name:   "create-directory-layout",
			Policy: orchestrate.PolicyFatal,
			Run:    s.createLayout,
		},
	}

	for _, c := range s.components() {
		phases = append(phases, orchestrate.Phase{
			Name:   "build-" + c.Name,
			Policy: orchestrate.PolicyFatal,
			Run:    s.buildComponentPhase(c),
		})
	}

	phases = append(phases,
		orchestrate.Phase{
			Name:   "write-configuration",
			Policy: orchestrate.PolicyFatal,
			Run:    s.writeConfigDocuments,
		},
		orchestrate.Phase{
			Name:   "install-orchestration-cli",
			Policy: orchestrate.PolicyWarn,
			Run:    s.installOrchestrationCLI,
		},
		orchestrate.Phase{
			Name:       "enable-user-service",
			Policy:     orchestrate.PolicyFatal,
			Gate:       true,
			GatePrompt: "Enable and start the engine API socket for the target user?",
			Run:        s.enableUserService,
		},
		orchestrate.Phase{
			Name:   "verify-engine",
			Policy: orchestrate.PolicyFatal,
			Run:    s.verifyEngine,
		},
	)
	return phases
}

func (s *Stack) buildComponentPhase(c Component) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := s.fetchSource(ctx, c); err != nil {
			return err
		}
		return s.buildAndInstall(ctx, c)
	}
}

func (s *Stack) createLayout(ctx context.Context) error {
	for _, fragment := range []string{
		s.set.BuildDir,
		s.set.BinDir,
		containersConfFragment,
		systemdUserFragment,
		storageFragment + "/storage",
	} {
		if err := s.priv.EnsureDir(ctx, fragment, "0755"); err != nil {
			return err
		}
	}
	return nil
}

// installOrchestrationCLI installs podman-compose into the target's user
// site. A pip index outage is transient, so the fetch retry policy applies.
func (s *Stack) installOrchestrationCLI(ctx context.Context) error {
	return readiness.Retry(ctx, "install podman-compose", func(ctx context.Context) error {
		_, err := s.priv.Run("install orchestration CLI",
			s.priv.Command(ctx, "pip3", "install", "--user", "podman-compose"))
		return err
	}, s.set.Fetch)
}

// enableUserService turns on lingering, loads the generated units, and
// starts the socket. The service manager's exit codes only gate the attempt;
// actual readiness is established by polling, because enablement and
// readiness are decoupled in practice.
func (s *Stack) enableUserService(ctx context.Context) error {
	id := s.priv.Identity()

	if _, err := s.priv.Run("enable lingering",
		s.priv.RootCommand(ctx, "loginctl", "enable-linger", id.Name)); err != nil {
		return err
	}
	if _, err := s.priv.Run("reload user service manager",
		s.priv.Command(ctx, "systemctl", "--user", "daemon-reload")); err != nil {
		return err
	}
	if _, err := s.priv.Run("enable engine socket",
		s.priv.Command(ctx, "systemctl", "--user", "enable", "--now", "podman.socket")); err != nil {
		return err
	}

	return readiness.PollUntil(ctx, "engine socket activation", s.serviceActive,
		s.set.ServicePoll.Interval, s.set.ServicePoll.Timeout)
}

// verifyEngine converts asynchronous engine startup into a pass/fail
// decision: first that the engine answers, then that it reports a healthy
// host.
func (s *Stack) verifyEngine(ctx context.Context) error {
	if err := readiness.PollUntil(ctx, "engine response", s.engineRunning,
		s.set.EnginePoll.Interval, s.set.EnginePoll.Timeout); err != nil {
		return err
	}
	if err := readiness.PollUntil(ctx, "engine health", s.engineHealthy,
		s.set.EnginePoll.Interval, s.set.EnginePoll.Timeout); err != nil {
		return err
	}
	s.logger.Info("engine verified", "user", s.priv.Identity().Name, "runtime", s.opts.Runtime)
	return nil
}

// Summary renders a short human-readable description of what an install run
// will do, shown before the first gate.
func (s *Stack) Summary() string {
	id := s.priv.Identity()
	return fmt.Sprintf("install %d components for %s (runtime=%s subnet=%s jobs=%d)",
		len(s.components()), id.Name, s.opts.Runtime, s.opts.Subnet, s.opts.Jobs)
}
