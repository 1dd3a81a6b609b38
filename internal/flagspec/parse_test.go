// SPDX-License-Identifier: MPL-2.0

package flagspec

import (
	"errors"
	"testing"

	"github.com/podstrap/podstrap/internal/issue"
)

func testSet(t *testing.T) *Set {
	t.Helper()
	set, err := Compile(
		"--user|-u:value:target account name",
		"--yes|-y:bool:skip confirmation gates",
		"--subnet|-s:cidr:container network range",
		"--jobs|-j:int:parallel build jobs",
		"--help|-h:help:show usage",
	)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return set
}

func TestParseValidArguments(t *testing.T) {
	t.Parallel()
	set := testSet(t)

	p, err := set.Parse([]string{"--user", "podman", "-y", "--subnet", "10.88.64.0/24", "-j", "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := p.Populated()
	want := []string{"user", "yes", "subnet", "jobs"}
	if len(got) != len(want) {
		t.Fatalf("populated = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("populated = %v, want %v", got, want)
		}
	}

	// Round trip: every populated variable must have been declared.
	for _, name := range got {
		if !set.Declared(name) {
			t.Errorf("populated variable %q was never declared", name)
		}
	}

	if v, _ := p.String("user", ""); v != "podman" {
		t.Errorf("user = %q, want podman", v)
	}
	if ok, _ := p.Bool("yes"); !ok {
		t.Error("yes flag not seen")
	}
	if n, _ := p.Int("jobs", 1); n != 4 {
		t.Errorf("jobs = %d, want 4", n)
	}
}

func TestParseDefaultsWhenUnset(t *testing.T) {
	t.Parallel()
	set := testSet(t)

	p, err := set.Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("expected no populated variables, got %d", p.Len())
	}
	if v, _ := p.String("user", "podman"); v != "podman" {
		t.Errorf("default not applied, got %q", v)
	}
	if n, _ := p.Int("jobs", 2); n != 2 {
		t.Errorf("default not applied, got %d", n)
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"cidr without prefix", []string{"--subnet", "10.88.64.0"}},
		{"cidr octet out of range", []string{"--subnet", "10.88.300.0/24"}},
		{"cidr prefix out of range", []string{"--subnet", "10.88.64.0/40"}},
		{"cidr three octets", []string{"--subnet", "10.88.64/24"}},
		{"int with sign", []string{"--jobs", "-4"}},
		{"int with letters", []string{"--jobs", "4x"}},
		{"value flag missing token", []string{"--user"}},
		{"unknown flag", []string{"--frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			set := testSet(t)
			_, err := set.Parse(tt.args)
			if err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
			if !errors.Is(err, issue.ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestParseHelpIsDistinctSignal(t *testing.T) {
	t.Parallel()
	set := testSet(t)

	_, err := set.Parse([]string{"--help"})
	if !errors.Is(err, issue.ErrHelpShown) {
		t.Fatalf("want ErrHelpShown, got %v", err)
	}
	if errors.Is(err, issue.ErrInvalidArgument) {
		t.Fatal("help must not be conflated with a parse error")
	}
}

func TestRequireCatchesUndeclaredReads(t *testing.T) {
	t.Parallel()
	set := testSet(t)

	p, err := set.Parse([]string{"--user", "podman"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := p.Require("user", "yes", "subnet"); err != nil {
		t.Fatalf("declared names must pass: %v", err)
	}

	err = p.Require("registry_policy")
	if err == nil {
		t.Fatal("expected cross-check failure")
	}
	if !errors.Is(err, issue.ErrInternal) {
		t.Fatalf("cross-check failures are internal class, got %v", err)
	}
	if issue.UserCaused(err) {
		t.Fatal("cross-check failure misclassified as user-caused")
	}
}
