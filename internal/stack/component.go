// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"context"
	"strconv"

	"github.com/podstrap/podstrap/internal/config"
	"github.com/podstrap/podstrap/internal/readiness"
)

// Component is one native piece of the stack built from source.
type Component struct {
	// Name is the component (and source directory) name.
	Name string
	// Pin is the repository and tag to build.
	Pin config.ComponentRef
	// Prepare are the one-time source tree preparation commands (autogen,
	// configure). Each is run in the source directory as the target.
	Prepare [][]string
	// Build is the compile command; "-j <jobs>" is appended.
	Build []string
	// Artifact is the built binary's path relative to the source tree.
	Artifact string
	// Binary is the name installed into the target's bin directory.
	Binary string
}

// components returns the native build list in dependency order: the OCI
// runtime and monitor must exist before the engine that is configured to
// use them is verified.
func (s *Stack) components() []Component {
	return []Component{
		{
			Name:     "crun",
			Pin:      s.set.Crun,
			Prepare:  [][]string{{"./autogen.sh"}, {"./configure", "--prefix=/usr/local"}},
			Build:    []string{"make"},
			Artifact: "crun",
			Binary:   "crun",
		},
		{
			Name:     "conmon",
			Pin:      s.set.Conmon,
			Build:    []string{"make"},
			Artifact: "bin/conmon",
			Binary:   "conmon",
		},
		{
			Name:     "slirp4netns",
			Pin:      s.set.Slirp4netns,
			Prepare:  [][]string{{"./autogen.sh"}, {"./configure", "--prefix=/usr/local"}},
			Build:    []string{"make"},
			Artifact: "slirp4netns",
			Binary:   "slirp4netns",
		},
		{
			Name:     "podman",
			Pin:      s.set.Podman,
			Build:    []string{"make", "binaries"},
			Artifact: "bin/podman",
			Binary:   "podman",
		},
	}
}

// fetchSource clones or refreshes the component's pinned source tree as the
// target. The network operations run under the fetch retry policy; the
// checkout of the pinned ref does not, because it is local and idempotent.
func (s *Stack) fetchSource(ctx context.Context, c Component) error {
	dir, err := s.priv.HomePath(s.buildFragment(c.Name))
	if err != nil {
		return err
	}

	cloned, err := s.priv.Exists(ctx, dir+"/.git")
	if err != nil {
		return err
	}

	if !cloned {
		err = readiness.Retry(ctx, "clone "+c.Pin.Repo, func(ctx context.Context) error {
			_, err := s.priv.Run("fetch "+c.Name+" sources",
				s.priv.Command(ctx, "git", "clone", c.Pin.Repo, dir))
			return err
		}, s.set.Fetch)
	} else {
		err = readiness.Retry(ctx, "refresh "+c.Pin.Repo, func(ctx context.Context) error {
			_, err := s.priv.Run("refresh "+c.Name+" sources",
				s.priv.CommandIn(ctx, dir, "git", "fetch", "--tags", "origin"))
			return err
		}, s.set.Fetch)
	}
	if err != nil {
		return err
	}

	_, err = s.priv.Run("pin "+c.Name+" to "+c.Pin.Ref,
		s.priv.CommandIn(ctx, dir, "git", "checkout", c.Pin.Ref))
	return err
}

// buildAndInstall compiles the component in its source tree and installs the
// artifact into the target's bin directory. Re-running over an existing
// build is a cheap incremental rebuild, keeping the phase idempotent.
func (s *Stack) buildAndInstall(ctx context.Context, c Component) error {
	dir, err := s.priv.HomePath(s.buildFragment(c.Name))
	if err != nil {
		return err
	}

	for _, step := range c.Prepare {
		if _, err := s.priv.Run("prepare "+c.Name+" build",
			s.priv.CommandIn(ctx, dir, step[0], step[1:]...)); err != nil {
			return err
		}
	}

	build := append(append([]string{}, c.Build...), "-j", strconv.Itoa(s.opts.Jobs))
	if _, err := s.priv.Run("build "+c.Name,
		s.priv.CommandIn(ctx, dir, build[0], build[1:]...)); err != nil {
		return err
	}

	dst, err := s.priv.HomePath(s.binFragment(c.Binary))
	if err != nil {
		return err
	}
	if _, err := s.priv.Run("install "+c.Name+" binary",
		s.priv.CommandIn(ctx, dir, "install", "-m", "0755", c.Artifact, dst)); err != nil {
		return err
	}
	s.priv.DeferOwnership(dst)
	s.logger.Info("component installed", "component", c.Name, "ref", c.Pin.Ref, "binary", dst)
	return nil
}
