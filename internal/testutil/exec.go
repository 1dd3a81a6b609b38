// SPDX-License-Identifier: MPL-2.0

// Package testutil provides the fake-exec plumbing shared by packages that
// shell out through an injectable ExecCommandFunc seam. Commands are
// simulated with the helper-process pattern: the recorder rewrites each
// invocation into a re-exec of the test binary, and the consuming test
// package forwards to RunHelperProcess from its own TestHelperProcess.
package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
)

// Invocation is one recorded call through the exec seam.
type Invocation struct {
	Name string
	Args []string
}

// Outcome is what a simulated command produces.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Script decides the outcome for an invocation. The default script succeeds
// silently.
type Script func(name string, args []string) Outcome

// CommandRecorder captures invocations through an ExecCommandFunc seam and
// replays scripted outcomes via the helper process.
type CommandRecorder struct {
	mu          sync.Mutex
	invocations []Invocation
	script      Script
}

// NewCommandRecorder returns a recorder whose commands all succeed with no
// output until a script is installed.
func NewCommandRecorder() *CommandRecorder {
	return &CommandRecorder{}
}

// SetScript installs the outcome function.
func (r *CommandRecorder) SetScript(s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = s
}

// CommandFunc returns a drop-in replacement for exec.CommandContext that
// records the invocation and runs the test binary's helper process with the
// scripted outcome.
func (r *CommandRecorder) CommandFunc(t *testing.T) func(ctx context.Context, name string, arg ...string) *exec.Cmd {
	t.Helper()
	return func(_ context.Context, name string, arg ...string) *exec.Cmd {
		r.mu.Lock()
		r.invocations = append(r.invocations, Invocation{Name: name, Args: arg})
		script := r.script
		r.mu.Unlock()

		out := Outcome{}
		if script != nil {
			out = script(name, arg)
		}

		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, arg...)
		cmd := exec.Command(os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			"GO_HELPER_STDOUT=" + out.Stdout,
			"GO_HELPER_STDERR=" + out.Stderr,
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", out.ExitCode),
		}
		return cmd
	}
}

// Invocations returns a copy of everything recorded so far.
func (r *CommandRecorder) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Invocation, len(r.invocations))
	copy(out, r.invocations)
	return out
}

// Joined returns each invocation flattened to a single space-joined line,
// convenient for substring assertions.
func (r *CommandRecorder) Joined() []string {
	invs := r.Invocations()
	lines := make([]string, len(invs))
	for i, inv := range invs {
		lines[i] = strings.TrimSpace(inv.Name + " " + strings.Join(inv.Args, " "))
	}
	return lines
}

// CountContaining reports how many recorded invocations contain substr.
func (r *CommandRecorder) CountContaining(substr string) int {
	n := 0
	for _, line := range r.Joined() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// RunHelperProcess implements the helper-process side. Consuming test
// packages must declare:
//
//	func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }
func RunHelperProcess() {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}
	code := 0
	fmt.Sscanf(os.Getenv("GO_HELPER_EXIT_CODE"), "%d", &code)
	os.Exit(code)
}
