// SPDX-License-Identifier: MPL-2.0

package asuser

import (
	"errors"
	"testing"

	"github.com/podstrap/podstrap/internal/issue"
)

func TestResolveUnder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		root     string
		fragment string
		want     string
		escape   bool
	}{
		{"plain child", "/home/podman", ".config/containers", "/home/podman/.config/containers", false},
		{"dot segments collapsing inside", "/home/podman", ".config/./containers", "/home/podman/.config/containers", false},
		{"root itself", "/home/podman", ".", "/home/podman", false},
		{"classic traversal", "/home/podman", "../../etc/passwd", "", true},
		{"traversal hidden mid-path", "/home/podman", ".config/../../other", "", true},
		{"absolute fragment", "/home/podman", "/etc/passwd", "", true},
		{"bare parent", "/home/podman", "..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveUnder(tt.root, tt.fragment)
			if tt.escape {
				if !errors.Is(err, issue.ErrPathEscape) {
					t.Fatalf("want ErrPathEscape, got path=%q err=%v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("resolved %q, want %q", got, tt.want)
			}
		})
	}
}
