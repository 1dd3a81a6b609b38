// SPDX-License-Identifier: MPL-2.0

package orchestrate

import "context"

// Policy decides what a phase failure does to the rest of the run.
type Policy string

const (
	// PolicyFatal aborts the whole run at the failing phase.
	PolicyFatal Policy = "fatal"
	// PolicyWarn records the failure and advances anyway.
	PolicyWarn Policy = "warn"
)

// Phase is one ordered, idempotent unit of orchestrated work. Bodies must
// tolerate being invoked when their target state already exists; that is
// what allows a run to be repeated after a partial failure without manual
// cleanup.
type Phase struct {
	// Name identifies the phase in logs and failure reports.
	Name string
	// Policy is the failure policy; the zero value behaves as PolicyFatal.
	Policy Policy
	// Gate demands confirmation before this phase runs.
	Gate bool
	// GatePrompt is the question shown at the gate; defaults to the name.
	GatePrompt string
	// Run does the work. It may call external commands.
	Run func(ctx context.Context) error
}

// Status is the terminal state of a run.
type Status string

const (
	// StatusCompleted means every phase ran (warn failures permitted).
	StatusCompleted Status = "completed"
	// StatusAborted means the run stopped at a fatal failure or a declined
	// gate.
	StatusAborted Status = "aborted"
)

// Warning records a warn-policy failure that the run advanced past.
type Warning struct {
	Ordinal int
	Phase   string
	Err     error
}

// Report summarizes a finished run.
type Report struct {
	Status Status
	// FailedOrdinal and FailedPhase identify where an aborted run stopped.
	FailedOrdinal int
	FailedPhase   string
	// Warnings lists warn-policy failures, in phase order.
	Warnings []Warning
	// Ran counts phases whose bodies executed.
	Ran int
}
