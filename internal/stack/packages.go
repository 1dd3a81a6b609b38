// SPDX-License-Identifier: MPL-2.0

package stack

import "context"

// conflictingPackages are the distro-packaged pieces of the stack that would
// shadow the from-source build on PATH or fight over configuration.
var conflictingPackages = []string{
	"podman",
	"conmon",
	"crun",
	"slirp4netns",
	"buildah",
	"podman-compose",
}

// buildDependencies is everything the native builds need on a Debian-family
// host.
var buildDependencies = []string{
	"git",
	"make",
	"gcc",
	"pkg-config",
	"autoconf",
	"automake",
	"libtool",
	"golang-go",
	"go-md2man",
	"libseccomp-dev",
	"libyajl-dev",
	"libcap-dev",
	"libsystemd-dev",
	"libglib2.0-dev",
	"libslirp-dev",
	"libgpgme-dev",
	"libbtrfs-dev",
	"uidmap",
	"python3-pip",
}

// removeConflictingPackages asks the package manager to drop the distro
// stack. Callers run this under warn policy: a non-zero exit (most commonly
// "package not installed") is tolerated because absence is the goal.
func (s *Stack) removeConflictingPackages(ctx context.Context) error {
	args := append([]string{"remove", "-y"}, conflictingPackages...)
	_, err := s.priv.Run("remove conflicting distro packages",
		s.priv.RootCommand(ctx, "apt-get", args...))
	return err
}

// installBuildDependencies installs the compile-time dependency set. apt-get
// install is idempotent over already-installed packages.
func (s *Stack) installBuildDependencies(ctx context.Context) error {
	args := append([]string{"install", "-y", "--no-install-recommends"}, buildDependencies...)
	_, err := s.priv.Run("install build dependencies",
		s.priv.RootCommand(ctx, "apt-get", args...))
	return err
}
