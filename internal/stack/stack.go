// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/podstrap/podstrap/internal/asuser"
	"github.com/podstrap/podstrap/internal/config"
)

// Options are the per-invocation choices layered over Settings defaults.
type Options struct {
	// Runtime is the OCI runtime selection written into the engine config
	// (crun or runc).
	Runtime string
	// Subnet is the container network range in dotted-quad/prefix form.
	Subnet string
	// Jobs is the parallel build job count.
	Jobs int
}

// Stack wires the component definitions to a target capability and the
// process settings. One Stack serves one target identity for one run.
type Stack struct {
	priv   *asuser.Capability
	set    config.Settings
	opts   Options
	logger *log.Logger
}

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithLogger sets the logger used for phase detail lines.
func WithLogger(l *log.Logger) StackOption {
	return func(s *Stack) { s.logger = l }
}

// New builds a Stack for one target. Zero-valued Options fields fall back to
// the Settings defaults.
func New(priv *asuser.Capability, set config.Settings, opts Options, sopts ...StackOption) *Stack {
	if opts.Runtime == "" {
		opts.Runtime = set.DefaultRuntime
	}
	if opts.Subnet == "" {
		opts.Subnet = set.DefaultSubnet
	}
	if opts.Jobs <= 0 {
		opts.Jobs = set.Jobs
	}
	s := &Stack{
		priv:   priv,
		set:    set,
		opts:   opts,
		logger: log.New(io.Discard),
	}
	for _, o := range sopts {
		o(s)
	}
	return s
}

// Capability returns the privilege seam, for the ownership finalization the
// CLI layer runs after the phases complete.
func (s *Stack) Capability() *asuser.Capability { return s.priv }

// Home-relative layout fragments.

func (s *Stack) buildFragment(parts ...string) string {
	return filepath.Join(append([]string{s.set.BuildDir}, parts...)...)
}

func (s *Stack) binFragment(name string) string {
	return filepath.Join(s.set.BinDir, name)
}

const (
	containersConfFragment = ".config/containers"
	systemdUserFragment    = ".config/systemd/user"
	storageFragment        = ".local/share/containers"
)
