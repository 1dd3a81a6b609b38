// SPDX-License-Identifier: MPL-2.0

package asuser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/podstrap/podstrap/internal/identity"
	"github.com/podstrap/podstrap/internal/issue"
)

// ExecCommandFunc is the function signature for creating exec.Cmd. It allows
// injection of fake implementations for testing.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Option configures a Capability.
type Option func(*Capability)

// WithExecCommand injects a command factory (tests).
func WithExecCommand(f ExecCommandFunc) Option {
	return func(c *Capability) { c.execCommand = f }
}

// WithLogger sets the logger for mutation tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Capability) { c.logger = l }
}

// Capability performs mutations whose results must belong to the target
// identity even though the operator identity executes them. All privilege
// elevation happens here and nowhere else.
type Capability struct {
	id          identity.Identity
	sudoPath    string
	execCommand ExecCommandFunc
	logger      *log.Logger

	// deferred collects absolute paths awaiting the end-of-run ownership
	// finalization pass.
	deferred []string
}

// New builds the capability for one target identity. The sudo binary is
// resolved once at construction.
func New(id identity.Identity, opts ...Option) *Capability {
	path, err := exec.LookPath("sudo")
	if err != nil {
		path = "sudo" // resolved again through PATH at run time
	}
	c := &Capability{
		id:          id,
		sudoPath:    path,
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the target identity this capability acts for.
func (c *Capability) Identity() identity.Identity { return c.id }

// HomePath resolves a relative fragment under the target's home directory,
// rejecting traversal escapes.
func (c *Capability) HomePath(fragment string) (string, error) {
	return ResolveUnder(c.id.Home, fragment)
}

// targetEnv is the minimal environment a command needs to behave as a login
// session of the target (user-level systemd and XDG lookups depend on it).
func (c *Capability) targetEnv() []string {
	return []string{
		"HOME=" + c.id.Home,
		"USER=" + c.id.Name,
		"LOGNAME=" + c.id.Name,
		fmt.Sprintf("XDG_RUNTIME_DIR=/run/user/%d", c.id.UID),
		"PATH=" + strings.Join([]string{
			filepath.Join(c.id.Home, ".local", "bin"),
			"/usr/local/bin", "/usr/bin", "/bin", "/usr/sbin", "/sbin",
		}, ":"),
	}
}

// Command builds a command that runs as the target identity.
func (c *Capability) Command(ctx context.Context, name string, arg ...string) *exec.Cmd {
	argv := append([]string{"-u", c.id.Name, "env"}, c.targetEnv()...)
	argv = append(argv, name)
	argv = append(argv, arg...)
	return c.execCommand(ctx, c.sudoPath, argv...)
}

// CommandIn is Command with a working directory inside the target's tree.
// The chdir happens after the identity switch so operator-inaccessible
// directories still work.
func (c *Capability) CommandIn(ctx context.Context, dir, name string, arg ...string) *exec.Cmd {
	argv := append([]string{"-u", c.id.Name, "env", "--chdir=" + dir}, c.targetEnv()...)
	argv = append(argv, name)
	argv = append(argv, arg...)
	return c.execCommand(ctx, c.sudoPath, argv...)
}

// RootCommand builds a command that runs with full elevation.
func (c *Capability) RootCommand(ctx context.Context, name string, arg ...string) *exec.Cmd {
	argv := append([]string{name}, arg...)
	return c.execCommand(ctx, c.sudoPath, argv...)
}

// Run executes cmd, capturing combined output. A non-zero exit becomes an
// ErrExternalCommand-class error carrying the collaborator's output for
// diagnosis.
func (c *Capability) Run(what string, cmd *exec.Cmd) (string, error) {
	c.logger.Debug("exec", "what", what, "argv", strings.Join(cmd.Args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), issue.NewContext(issue.ErrExternalCommand).
			Operation(what).
			Identity(c.id.Name).
			Resource(strings.Join(cmd.Args, " ")).
			Wrap(fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))).
			Err()
	}
	return string(out), nil
}

// Exists reports whether path exists, checked with elevation because the
// operator typically cannot read the target's home tree.
func (c *Capability) Exists(ctx context.Context, path string) (bool, error) {
	cmd := c.RootCommand(ctx, "test", "-e", path)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, issue.NewContext(issue.ErrExternalCommand).
		Operation("check existence of " + path).
		Identity(c.id.Name).
		Wrap(err).
		Err()
}

// EnsureDir creates a directory (and parents) under the target's home. A
// directory that already exists is a no-op. The path is registered for
// ownership finalization.
func (c *Capability) EnsureDir(ctx context.Context, fragment, mode string) error {
	path, err := c.HomePath(fragment)
	if err != nil {
		return err
	}
	if _, err := c.Run("create directory "+path, c.RootCommand(ctx, "install", "-d", "-m", mode, path)); err != nil {
		return err
	}
	c.DeferOwnership(path)
	return nil
}

// InstallFile lands content at a home-relative path with the given mode.
// The write is staged to a sibling temp name and renamed into place so a
// half-written document is never observable.
func (c *Capability) InstallFile(ctx context.Context, fragment string, content []byte, mode string) error {
	path, err := c.HomePath(fragment)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "podstrap-*")
	if err != nil {
		return issue.NewContext(issue.ErrExternalCommand).
			Operation("stage file " + path).
			Identity(c.id.Name).
			Wrap(err).
			Err()
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return issue.NewContext(issue.ErrExternalCommand).
			Operation("stage file " + path).
			Identity(c.id.Name).
			Wrap(err).
			Err()
	}
	if err := tmp.Close(); err != nil {
		return issue.NewContext(issue.ErrExternalCommand).
			Operation("stage file " + path).
			Identity(c.id.Name).
			Wrap(err).
			Err()
	}

	staged := path + ".podstrap-tmp"
	if _, err := c.Run("install file "+path, c.RootCommand(ctx, "install", "-m", mode, tmp.Name(), staged)); err != nil {
		return err
	}
	if _, err := c.Run("finalize file "+path, c.RootCommand(ctx, "mv", "-f", staged, path)); err != nil {
		return err
	}
	c.DeferOwnership(path)
	return nil
}

// RemoveIfPresent deletes a path if it exists; absence is success. Used by
// the uninstall mirror, which must tolerate a system where install never
// ran.
func (c *Capability) RemoveIfPresent(ctx context.Context, path string) error {
	present, err := c.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !present {
		c.logger.Debug("already absent", "path", path)
		return nil
	}
	_, err = c.Run("remove "+path, c.RootCommand(ctx, "rm", "-rf", path))
	return err
}

// DeferOwnership registers an absolute path for the finalization pass.
func (c *Capability) DeferOwnership(path string) {
	c.deferred = append(c.deferred, path)
}

// Deferred returns the paths currently awaiting finalization.
func (c *Capability) Deferred() []string {
	out := make([]string, len(c.deferred))
	copy(out, c.deferred)
	return out
}

// FinalizeOwnership reconciles every registered path to the target identity
// and clears the set. Re-entrant: reapplying ownership to an already-owned
// or since-removed path is a no-op, not an error.
func (c *Capability) FinalizeOwnership(ctx context.Context) error {
	owner := fmt.Sprintf("%d:%d", c.id.UID, c.id.GID)
	for _, path := range c.deferred {
		present, err := c.Exists(ctx, path)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if _, err := c.Run("finalize ownership of "+path, c.RootCommand(ctx, "chown", "-R", owner, path)); err != nil {
			return err
		}
	}
	c.logger.Info("ownership finalized", "user", c.id.Name, "paths", len(c.deferred))
	c.deferred = c.deferred[:0]
	return nil
}
