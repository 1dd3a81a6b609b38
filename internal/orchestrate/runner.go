// SPDX-License-Identifier: MPL-2.0

package orchestrate

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/podstrap/podstrap/internal/issue"
)

// ConfirmFunc asks the user a yes/no question. The default implementation is
// an interactive terminal prompt; tests and --yes runs replace it.
type ConfirmFunc func(prompt, description string) (bool, error)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the run logger.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithConfirm injects the confirmation prompt.
func WithConfirm(f ConfirmFunc) RunnerOption {
	return func(r *Runner) { r.confirm = f }
}

// WithAssumeYes skips every confirmation gate.
func WithAssumeYes(yes bool) RunnerOption {
	return func(r *Runner) { r.assumeYes = yes }
}

// Runner executes phases strictly in order. It owns no phase state beyond
// the report it builds; re-running is safe because phases are idempotent.
type Runner struct {
	phases    []Phase
	logger    *log.Logger
	confirm   ConfirmFunc
	assumeYes bool
}

// NewRunner builds a runner over an ordered phase list.
func NewRunner(phases []Phase, opts ...RunnerOption) *Runner {
	r := &Runner{
		phases:  phases,
		logger:  log.New(io.Discard),
		confirm: TerminalConfirm,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs the phases. On a fatal failure or declined gate it returns an
// aborted report plus an ErrPhaseAborted-class error naming the phase
// ordinal and name; warn failures are collected into the report and the run
// continues.
func (r *Runner) Execute(ctx context.Context) (Report, error) {
	report := Report{Status: StatusCompleted}

	for ordinal, phase := range r.phases {
		if err := ctx.Err(); err != nil {
			return r.abort(report, ordinal, phase, err)
		}

		if phase.Gate && !r.assumeYes {
			prompt := phase.GatePrompt
			if prompt == "" {
				prompt = fmt.Sprintf("Continue with %q?", phase.Name)
			}
			ok, err := r.confirm(prompt, fmt.Sprintf("Phase %d of %d", ordinal+1, len(r.phases)))
			if err != nil {
				return r.abort(report, ordinal, phase, fmt.Errorf("confirmation prompt: %w", err))
			}
			if !ok {
				r.logger.Info("run aborted at gate", "ordinal", ordinal, "phase", phase.Name)
				return r.abort(report, ordinal, phase, fmt.Errorf("declined at confirmation gate"))
			}
		}

		r.logger.Info("phase started", "ordinal", ordinal, "phase", phase.Name)
		err := phase.Run(ctx)
		report.Ran++
		if err == nil {
			r.logger.Info("phase completed", "ordinal", ordinal, "phase", phase.Name)
			continue
		}

		if phase.Policy == PolicyWarn {
			r.logger.Warn("phase failed, continuing", "ordinal", ordinal, "phase", phase.Name, "err", err)
			report.Warnings = append(report.Warnings, Warning{Ordinal: ordinal, Phase: phase.Name, Err: err})
			continue
		}

		r.logger.Error("phase failed", "ordinal", ordinal, "phase", phase.Name, "err", err)
		return r.abort(report, ordinal, phase, err)
	}

	return report, nil
}

func (r *Runner) abort(report Report, ordinal int, phase Phase, cause error) (Report, error) {
	report.Status = StatusAborted
	report.FailedOrdinal = ordinal
	report.FailedPhase = phase.Name
	return report, issue.NewContext(issue.ErrPhaseAborted).
		Operation(fmt.Sprintf("run phase %d (%s)", ordinal, phase.Name)).
		Suggestion("Fix the underlying failure and re-run; completed phases are idempotent and will no-op").
		Wrap(cause).
		Err()
}
