// SPDX-License-Identifier: MPL-2.0

// Package sessionlog opens the per-run append-only diagnostic file. Writing
// the session log is best-effort: if the directory cannot be created or is
// not writable, callers get a discarding logger and the run proceeds.
package sessionlog

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

const timestampLayout = "20060102-150405"

// Open creates a logger writing to dir/podstrap-<timestamp>.log and returns
// it with a close function. Any failure yields a silent no-op logger; the
// session log never blocks the run.
func Open(dir string, now time.Time) (*log.Logger, func()) {
	nop := log.New(io.Discard)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nop, func() {}
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return nop, func() {}
	}

	path := filepath.Join(dir, "podstrap-"+now.Format(timestampLayout)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nop, func() {}
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Prefix:          "session",
	})
	return logger, func() { f.Close() }
}

// DefaultDir is the operator-local state directory for session logs
// ($XDG_STATE_HOME/podstrap/logs or ~/.local/state/podstrap/logs).
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "podstrap", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "podstrap", "logs")
}
