// SPDX-License-Identifier: MPL-2.0

package asuser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/podstrap/podstrap/internal/identity"
	"github.com/podstrap/podstrap/internal/issue"
	"github.com/podstrap/podstrap/internal/testutil"
)

// TestHelperProcess backs the fake exec seam; see testutil.RunHelperProcess.
func TestHelperProcess(t *testing.T) {
	testutil.RunHelperProcess()
}

func testIdentity() identity.Identity {
	return identity.Identity{Name: "podman", Home: "/home/podman", UID: 1001, GID: 1001}
}

func newTestCapability(t *testing.T) (*Capability, *testutil.CommandRecorder) {
	t.Helper()
	rec := testutil.NewCommandRecorder()
	c := New(testIdentity(), WithExecCommand(rec.CommandFunc(t)))
	return c, rec
}

func TestCommandRunsAsTarget(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	cmd := c.Command(context.Background(), "git", "clone", "https://example.com/crun.git")
	if err := cmd.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := rec.Joined()[0]
	for _, want := range []string{"-u podman", "env", "HOME=/home/podman", "XDG_RUNTIME_DIR=/run/user/1001", "git clone"} {
		if !strings.Contains(line, want) {
			t.Errorf("argv %q missing %q", line, want)
		}
	}
}

func TestCommandInChangesDirectoryAfterIdentitySwitch(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	cmd := c.CommandIn(context.Background(), "/home/podman/.local/src/crun", "make")
	if err := cmd.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := rec.Joined()[0]
	if !strings.Contains(line, "--chdir=/home/podman/.local/src/crun") {
		t.Errorf("argv %q missing chdir", line)
	}
	// The chdir must come after sudo -u, not apply to sudo itself.
	if strings.Index(line, "-u podman") > strings.Index(line, "--chdir=") {
		t.Errorf("chdir applied before identity switch: %q", line)
	}
}

func TestRunWrapsNonZeroExit(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)
	rec.SetScript(func(name string, args []string) testutil.Outcome {
		return testutil.Outcome{Stderr: "make: *** [all] Error 2", ExitCode: 2}
	})

	_, err := c.Run("build crun", c.Command(context.Background(), "make"))
	if !errors.Is(err, issue.ErrExternalCommand) {
		t.Fatalf("want ErrExternalCommand, got %v", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("want ActionableError, got %T", err)
	}
	if ae.Who != "podman" {
		t.Errorf("error must name the target identity, got %q", ae.Who)
	}
	if !strings.Contains(ae.Cause.Error(), "Error 2") {
		t.Errorf("error must carry collaborator output, got %q", ae.Cause)
	}
}

func TestExistsDistinguishesAbsenceFromFailure(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	present, err := c.Exists(context.Background(), "/home/podman/.local/bin/crun")
	if err != nil || !present {
		t.Fatalf("want present, got present=%v err=%v", present, err)
	}

	rec.SetScript(func(string, []string) testutil.Outcome {
		return testutil.Outcome{ExitCode: 1}
	})
	present, err = c.Exists(context.Background(), "/home/podman/.local/bin/crun")
	if err != nil {
		t.Fatalf("absence is not an error: %v", err)
	}
	if present {
		t.Fatal("want absent")
	}
}

func TestEnsureDirRegistersOwnership(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	if err := c.EnsureDir(context.Background(), ".config/containers", "0755"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := rec.CountContaining("install -d -m 0755 /home/podman/.config/containers"); n != 1 {
		t.Fatalf("expected one mkdir invocation, lines: %v", rec.Joined())
	}
	deferred := c.Deferred()
	if len(deferred) != 1 || deferred[0] != "/home/podman/.config/containers" {
		t.Fatalf("deferred = %v", deferred)
	}
}

func TestEnsureDirRejectsTraversal(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	err := c.EnsureDir(context.Background(), "../../etc/passwd", "0755")
	if !errors.Is(err, issue.ErrPathEscape) {
		t.Fatalf("want ErrPathEscape, got %v", err)
	}
	if len(rec.Invocations()) != 0 {
		t.Fatal("escaping path must never reach a mutation command")
	}
}

func TestInstallFileStagesThenRenames(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	err := c.InstallFile(context.Background(), ".config/containers/containers.conf", []byte("[engine]\n"), "0644")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := rec.Joined()
	if len(lines) != 2 {
		t.Fatalf("expected stage + rename, got %v", lines)
	}
	if !strings.Contains(lines[0], "install -m 0644") || !strings.Contains(lines[0], ".podstrap-tmp") {
		t.Errorf("first step must install to the staged name: %q", lines[0])
	}
	if !strings.Contains(lines[1], "mv -f") || !strings.HasSuffix(lines[1], "/home/podman/.config/containers/containers.conf") {
		t.Errorf("second step must rename into place: %q", lines[1])
	}
}

func TestRemoveIfPresentToleratesAbsence(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)
	rec.SetScript(func(name string, args []string) testutil.Outcome {
		if len(args) > 0 && args[0] == "test" {
			return testutil.Outcome{ExitCode: 1} // nothing exists
		}
		return testutil.Outcome{}
	})

	if err := c.RemoveIfPresent(context.Background(), "/home/podman/.local/bin/crun"); err != nil {
		t.Fatalf("absence must be success: %v", err)
	}
	if n := rec.CountContaining("rm -rf"); n != 0 {
		t.Fatal("no removal may run when the target is absent")
	}
}

func TestFinalizeOwnershipIsIdempotent(t *testing.T) {
	t.Parallel()
	c, rec := newTestCapability(t)

	if err := c.EnsureDir(context.Background(), ".local/bin", "0755"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.FinalizeOwnership(context.Background()); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if n := rec.CountContaining("chown -R 1001:1001 /home/podman/.local/bin"); n != 1 {
		t.Fatalf("expected one chown, lines: %v", rec.Joined())
	}

	// Second pass over a cleared set performs no further mutation.
	if err := c.FinalizeOwnership(context.Background()); err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if n := rec.CountContaining("chown"); n != 1 {
		t.Fatalf("finalize reapplied ownership, lines: %v", rec.Joined())
	}
}
