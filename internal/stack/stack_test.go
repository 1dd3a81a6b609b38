// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/podstrap/podstrap/internal/asuser"
	"github.com/podstrap/podstrap/internal/config"
	"github.com/podstrap/podstrap/internal/identity"
	"github.com/podstrap/podstrap/internal/orchestrate"
	"github.com/podstrap/podstrap/internal/readiness"
	"github.com/podstrap/podstrap/internal/testutil"
)

// TestHelperProcess backs the fake exec seam; see testutil.RunHelperProcess.
func TestHelperProcess(t *testing.T) {
	testutil.RunHelperProcess()
}

func testSettings() config.Settings {
	return config.Settings{
		DefaultUser:    "podman",
		DefaultRuntime: "crun",
		DefaultSubnet:  "10.88.64.0/24",
		Jobs:           2,
		BuildDir:       ".local/src/podstrap",
		BinDir:         ".local/bin",
		Registries:     []string{"docker.io", "quay.io"},
		Crun:           config.ComponentRef{Repo: "https://example.com/crun.git", Ref: "1.16.1"},
		Conmon:         config.ComponentRef{Repo: "https://example.com/conmon.git", Ref: "v2.1.12"},
		Slirp4netns:    config.ComponentRef{Repo: "https://example.com/slirp4netns.git", Ref: "v1.3.1"},
		Podman:         config.ComponentRef{Repo: "https://example.com/podman.git", Ref: "v5.2.2"},
		ServicePoll:    config.Poll{Interval: time.Millisecond, Timeout: 50 * time.Millisecond},
		EnginePoll:     config.Poll{Interval: time.Millisecond, Timeout: 50 * time.Millisecond},
		Fetch:          readiness.Policy{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 2},
	}
}

// healthyHost scripts a host where every collaborator succeeds and the
// engine comes up ready.
func healthyHost(name string, args []string) testutil.Outcome {
	line := strings.Join(args, " ")
	switch {
	case strings.Contains(line, "is-active podman.socket"):
		return testutil.Outcome{Stdout: "active"}
	case strings.Contains(line, "podman info"):
		return testutil.Outcome{Stdout: "linux"}
	default:
		return testutil.Outcome{}
	}
}

// bareHost scripts a host where install never ran: nothing exists, pip has
// no packages, but commands themselves work.
func bareHost(name string, args []string) testutil.Outcome {
	line := strings.Join(args, " ")
	switch {
	case len(args) > 0 && args[0] == "test":
		return testutil.Outcome{ExitCode: 1}
	case strings.Contains(line, "pip3 show"):
		return testutil.Outcome{ExitCode: 1}
	default:
		return testutil.Outcome{}
	}
}

func newTestStack(t *testing.T, script testutil.Script) (*Stack, *testutil.CommandRecorder) {
	t.Helper()
	rec := testutil.NewCommandRecorder()
	rec.SetScript(script)
	id := identity.Identity{Name: "podman", Home: "/home/podman", UID: 1001, GID: 1001}
	priv := asuser.New(id, asuser.WithExecCommand(rec.CommandFunc(t)))
	return New(priv, testSettings(), Options{}), rec
}

func TestInstallPhaseOrder(t *testing.T) {
	t.Parallel()
	s, _ := newTestStack(t, healthyHost)

	var names []string
	for _, p := range s.InstallPhases() {
		names = append(names, p.Name)
	}
	want := []string{
		"remove-conflicting-packages",
		"install-build-dependencies",
		"create-directory-layout",
		"build-crun",
		"build-conmon",
		"build-slirp4netns",
		"build-podman",
		"write-configuration",
		"install-orchestration-cli",
		"enable-user-service",
		"verify-engine",
	}
	if len(names) != len(want) {
		t.Fatalf("phases = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("phase %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestInstallRunCompletesTwice(t *testing.T) {
	t.Parallel()
	s, rec := newTestStack(t, healthyHost)

	for run := 0; run < 2; run++ {
		report, err := orchestrate.NewRunner(s.InstallPhases(), orchestrate.WithAssumeYes(true)).
			Execute(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if report.Status != orchestrate.StatusCompleted {
			t.Fatalf("run %d status = %q", run, report.Status)
		}
		if len(report.Warnings) != 0 {
			t.Fatalf("run %d warnings = %+v", run, report.Warnings)
		}
		if err := s.Capability().FinalizeOwnership(context.Background()); err != nil {
			t.Fatalf("run %d finalize: %v", run, err)
		}
	}

	// The dependency chain must be visible in the command stream: the OCI
	// runtime builds before the engine.
	lines := rec.Joined()
	crunBuild, podmanBuild := -1, -1
	for i, line := range lines {
		if strings.Contains(line, "podstrap/crun") && crunBuild == -1 {
			crunBuild = i
		}
		if strings.Contains(line, "podstrap/podman") && podmanBuild == -1 {
			podmanBuild = i
		}
	}
	if crunBuild == -1 || podmanBuild == -1 || crunBuild > podmanBuild {
		t.Fatalf("runtime must be fetched before the engine (crun=%d podman=%d)", crunBuild, podmanBuild)
	}
}

func TestInstallChecksOutPinnedRefs(t *testing.T) {
	t.Parallel()
	s, rec := newTestStack(t, healthyHost)

	_, err := orchestrate.NewRunner(s.InstallPhases(), orchestrate.WithAssumeYes(true)).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, ref := range []string{"1.16.1", "v2.1.12", "v1.3.1", "v5.2.2"} {
		if rec.CountContaining("git checkout "+ref) != 1 {
			t.Errorf("missing checkout of pinned ref %s", ref)
		}
	}
}

func TestInstallWritesRuntimeSelection(t *testing.T) {
	t.Parallel()
	rec := testutil.NewCommandRecorder()
	rec.SetScript(healthyHost)
	id := identity.Identity{Name: "podman", Home: "/home/podman", UID: 1001, GID: 1001}
	priv := asuser.New(id, asuser.WithExecCommand(rec.CommandFunc(t)))
	s := New(priv, testSettings(), Options{Runtime: "runc", Subnet: "10.99.0.0/16"})

	docs, err := s.configDocuments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engineConf := string(docs[".config/containers/containers.conf"])
	if !strings.Contains(engineConf, `runtime = "runc"`) {
		t.Errorf("runtime selection missing:\n%s", engineConf)
	}
	if !strings.Contains(engineConf, `default_subnet = "10.99.0.0/16"`) {
		t.Errorf("subnet missing:\n%s", engineConf)
	}
	if !strings.Contains(engineConf, "/home/podman/.local/bin/conmon") {
		t.Errorf("monitor path missing:\n%s", engineConf)
	}

	registries := string(docs[".config/containers/registries.conf"])
	if !strings.Contains(registries, `"docker.io", "quay.io"`) {
		t.Errorf("registry policy missing:\n%s", registries)
	}

	storage := string(docs[".config/containers/storage.conf"])
	if !strings.Contains(storage, "/run/user/1001/containers") {
		t.Errorf("runroot must use the target uid:\n%s", storage)
	}
}

func TestUninstallOnBareSystemCompletes(t *testing.T) {
	t.Parallel()
	s, rec := newTestStack(t, bareHost)

	report, err := orchestrate.NewRunner(s.UninstallPhases(), orchestrate.WithAssumeYes(true)).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("uninstall on a bare system must succeed: %v", err)
	}
	if report.Status != orchestrate.StatusCompleted {
		t.Fatalf("status = %q", report.Status)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("bare uninstall produced warnings: %+v", report.Warnings)
	}
	if n := rec.CountContaining("rm -rf"); n != 0 {
		t.Fatalf("nothing may be removed on a bare system, lines: %v", rec.Joined())
	}
	if n := rec.CountContaining("pip3 uninstall"); n != 0 {
		t.Fatal("pip uninstall must not run when the package is absent")
	}
}

func TestUninstallRemovesInstalledArtifacts(t *testing.T) {
	t.Parallel()
	s, rec := newTestStack(t, healthyHost) // everything exists

	report, err := orchestrate.NewRunner(s.UninstallPhases(), orchestrate.WithAssumeYes(true)).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != orchestrate.StatusCompleted {
		t.Fatalf("status = %q", report.Status)
	}

	for _, path := range []string{
		"/home/podman/.config/containers/containers.conf",
		"/home/podman/.local/bin/podman",
		"/home/podman/.local/src/podstrap",
		"/home/podman/.local/share/containers",
	} {
		if rec.CountContaining("rm -rf "+path) == 0 {
			t.Errorf("missing removal of %s", path)
		}
	}
	if rec.CountContaining("disable --now podman.socket") != 1 {
		t.Error("socket unit was not disabled")
	}
}

func TestVerifyEngineTimesOutWhenUnhealthy(t *testing.T) {
	t.Parallel()
	s, _ := newTestStack(t, func(name string, args []string) testutil.Outcome {
		line := strings.Join(args, " ")
		if strings.Contains(line, "podman") {
			return testutil.Outcome{ExitCode: 1}
		}
		return testutil.Outcome{}
	})

	if err := s.verifyEngine(context.Background()); err == nil {
		t.Fatal("expected timeout against an unresponsive engine")
	}
}
