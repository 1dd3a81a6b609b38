// SPDX-License-Identifier: MPL-2.0

// Package orchestrate runs a fixed, ordered list of named idempotent phases
// as a strictly forward state machine. Each phase logs entry and exit,
// failures follow a per-phase policy (fatal aborts the run, warn logs and
// continues), and risk-bearing phases can demand explicit confirmation
// before running unless a non-interactive override is set.
package orchestrate
