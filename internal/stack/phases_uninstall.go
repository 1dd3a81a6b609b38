// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"context"

	"github.com/podstrap/podstrap/internal/orchestrate"
)

// UninstallPhases mirrors the install list in reverse order. Every step
// checks existence before acting and never fails merely because its target
// is already absent, so the mirror succeeds even when install never ran or
// stopped partway.
func (s *Stack) UninstallPhases() []orchestrate.Phase {
	return []orchestrate.Phase{
		{
			Name:   "disable-user-service",
			Policy: orchestrate.PolicyWarn,
			Run:    s.disableUserService,
		},
		{
			Name:   "remove-orchestration-cli",
			Policy: orchestrate.PolicyWarn,
			Run:    s.removeOrchestrationCLI,
		},
		{
			Name:   "remove-configuration",
			Policy: orchestrate.PolicyFatal,
			Run:    s.removeConfiguration,
		},
		{
			Name:   "remove-binaries",
			Policy: orchestrate.PolicyFatal,
			Run:    s.removeBinaries,
		},
		{
			Name:   "remove-build-tree",
			Policy: orchestrate.PolicyFatal,
			Run:    s.removeBuildTree,
		},
		{
			Name:       "remove-storage",
			Policy:     orchestrate.PolicyFatal,
			Gate:       true,
			GatePrompt: "Delete the target's container storage (all images and containers)?",
			Run:        s.removeStorage,
		},
	}
}

// disableUserService stops the socket only when its unit file exists. On a
// system where install never ran there is nothing to stop and the step is a
// no-op.
func (s *Stack) disableUserService(ctx context.Context) error {
	unit, err := s.priv.HomePath(systemdUserFragment + "/podman.socket")
	if err != nil {
		return err
	}
	present, err := s.priv.Exists(ctx, unit)
	if err != nil {
		return err
	}
	if !present {
		s.logger.Debug("socket unit already absent", "unit", unit)
		return nil
	}
	if _, err := s.priv.Run("disable engine socket",
		s.priv.Command(ctx, "systemctl", "--user", "disable", "--now", "podman.socket")); err != nil {
		return err
	}
	_, err = s.priv.Run("reload user service manager",
		s.priv.Command(ctx, "systemctl", "--user", "daemon-reload"))
	return err
}

// removeOrchestrationCLI uninstalls podman-compose if pip knows about it.
func (s *Stack) removeOrchestrationCLI(ctx context.Context) error {
	if s.priv.Command(ctx, "pip3", "show", "--quiet", "podman-compose").Run() != nil {
		s.logger.Debug("orchestration CLI already absent")
		return nil
	}
	_, err := s.priv.Run("remove orchestration CLI",
		s.priv.Command(ctx, "pip3", "uninstall", "-y", "podman-compose"))
	return err
}

func (s *Stack) removeConfiguration(ctx context.Context) error {
	for _, fragment := range configFragments() {
		path, err := s.priv.HomePath(fragment)
		if err != nil {
			return err
		}
		if err := s.priv.RemoveIfPresent(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stack) removeBinaries(ctx context.Context) error {
	names := make([]string, 0, len(s.components())+1)
	for _, c := range s.components() {
		names = append(names, c.Binary)
	}
	names = append(names, "podman-remote")
	for _, name := range names {
		path, err := s.priv.HomePath(s.binFragment(name))
		if err != nil {
			return err
		}
		if err := s.priv.RemoveIfPresent(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stack) removeBuildTree(ctx context.Context) error {
	path, err := s.priv.HomePath(s.set.BuildDir)
	if err != nil {
		return err
	}
	return s.priv.RemoveIfPresent(ctx, path)
}

func (s *Stack) removeStorage(ctx context.Context) error {
	path, err := s.priv.HomePath(storageFragment)
	if err != nil {
		return err
	}
	return s.priv.RemoveIfPresent(ctx, path)
}
