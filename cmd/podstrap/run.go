// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/podstrap/podstrap/internal/asuser"
	"github.com/podstrap/podstrap/internal/config"
	"github.com/podstrap/podstrap/internal/flagspec"
	"github.com/podstrap/podstrap/internal/identity"
	"github.com/podstrap/podstrap/internal/orchestrate"
	"github.com/podstrap/podstrap/internal/sessionlog"
	"github.com/podstrap/podstrap/internal/stack"
)

// session holds everything a command needs once the operator and target
// have been validated. Building one performs no mutation: every check in
// newSession happens before any phase runs, so a bad invocation aborts
// with zero side effects.
type session struct {
	settings config.Settings
	target   identity.Identity
	stack    *stack.Stack
	console  *log.Logger
	closeLog func()
}

// newSession loads settings, asserts the operator contract, resolves the
// target account and wires the privilege seam. The session log is
// best-effort; the console logger honors --verbose.
func newSession(parsed flagspec.Parsed, opts stack.Options) (*session, error) {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	resolver := identity.NewResolver()
	if _, err := resolver.AssertOperator(); err != nil {
		return nil, err
	}

	name, err := parsed.String("user", settings.DefaultUser)
	if err != nil {
		return nil, err
	}
	target, err := resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	console := log.New(os.Stderr)
	if verbose {
		console.SetLevel(log.DebugLevel)
	}
	detail, closeLog := sessionlog.Open(sessionlog.DefaultDir(), time.Now())

	priv := asuser.New(target, asuser.WithLogger(detail))
	return &session{
		settings: settings,
		target:   target,
		stack:    stack.New(priv, settings, opts, stack.WithLogger(detail)),
		console:  console,
		closeLog: closeLog,
	}, nil
}

func (s *session) close() {
	s.closeLog()
}

// reportOutcome surfaces warn-policy failures and the final verdict. An
// aborted run has already produced an error from the runner; this handles
// the completed-with-warnings shape.
func reportOutcome(verb string, target identity.Identity, report orchestrate.Report) {
	for _, w := range report.Warnings {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("warning: ")+
			"phase "+PathStyle.Render(w.Phase)+": "+formatErrorForDisplay(w.Err, verbose))
	}
	if report.Status == orchestrate.StatusCompleted {
		suffix := ""
		if n := len(report.Warnings); n > 0 {
			suffix = fmt.Sprintf(" (%d warning(s), see above)", n)
		}
		fmt.Println(SuccessStyle.Render("✓") + " " + verb + " completed for " +
			PathStyle.Render(target.Name) + suffix)
	}
}
