// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podstrap/podstrap/internal/flagspec"
	"github.com/podstrap/podstrap/internal/issue"
	"github.com/podstrap/podstrap/internal/orchestrate"
	"github.com/podstrap/podstrap/internal/stack"
)

// installFlags is the declared flag contract for install. Every variable
// the handler reads must appear here; Require below asserts that.
var installFlags = flagspec.MustCompile(
	"user|u:value:target account that will own the stack",
	"runtime:value:OCI runtime written into the engine config (crun or runc)",
	"subnet|s:cidr:container network range in a.b.c.d/len form",
	"jobs|j:int:parallel build jobs",
	"yes|y:bool:answer yes to all confirmation gates",
	"help|h:help:show usage",
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Build and install the container stack for a target user",
	Long: `Build Podman, crun, conmon and slirp4netns from their pinned source
releases and install them into the target account's home, together with
generated engine configuration and a user-level API socket unit.

The run is a fixed sequence of idempotent phases; a failed run can be
re-executed and picks up where the previous one left off.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installFlags.Register(installCmd.Flags())
}

func runInstall(cmd *cobra.Command, args []string) error {
	parsed := installFlags.Collect(cmd.Flags())
	if err := parsed.Require("user", "runtime", "subnet", "jobs", "yes"); err != nil {
		return err
	}

	runtime, err := parsed.String("runtime", "")
	if err != nil {
		return err
	}
	if runtime != "" && runtime != "crun" && runtime != "runc" {
		return issue.NewContext(issue.ErrInvalidArgument).
			Operation("select OCI runtime").
			Resource(runtime).
			Suggestion("Use --runtime crun or --runtime runc.").
			Err()
	}
	subnet, err := parsed.String("subnet", "")
	if err != nil {
		return err
	}
	jobs, err := parsed.Int("jobs", 0)
	if err != nil {
		return err
	}
	assumeYes, err := parsed.Bool("yes")
	if err != nil {
		return err
	}

	s, err := newSession(parsed, stack.Options{Runtime: runtime, Subnet: subnet, Jobs: jobs})
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println(SubtitleStyle.Render(s.stack.Summary()))

	runner := orchestrate.NewRunner(s.stack.InstallPhases(),
		orchestrate.WithLogger(s.console),
		orchestrate.WithAssumeYes(assumeYes))
	report, runErr := runner.Execute(cmd.Context())

	// Files land root-owned and are reconciled here, even after an abort,
	// so a partial tree never blocks the next run.
	if ferr := s.stack.Capability().FinalizeOwnership(cmd.Context()); ferr != nil && runErr == nil {
		runErr = ferr
	}
	if runErr != nil {
		return runErr
	}

	reportOutcome("install", s.target, report)
	return nil
}
