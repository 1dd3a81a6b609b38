// SPDX-License-Identifier: MPL-2.0

package sessionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenWritesTimestampNamedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	logger, closeLog := Open(dir, now)
	logger.Info("install started", "user", "podman")
	closeLog()

	path := filepath.Join(dir, "podstrap-20240601-123045.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("session log not created: %v", err)
	}
	if !strings.Contains(string(data), "install started") {
		t.Fatalf("log content missing entry: %q", data)
	}
}

func TestOpenUnwritableDirIsSilentNoop(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(dir, 0o500); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	logger, closeLog := Open(dir, time.Now())
	defer closeLog()
	logger.Info("dropped on the floor") // must not panic or error

	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) != 0 {
		t.Fatalf("no file may be created in an unwritable dir, got %v", entries)
	}
}
