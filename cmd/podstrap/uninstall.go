// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/podstrap/podstrap/internal/flagspec"
	"github.com/podstrap/podstrap/internal/orchestrate"
	"github.com/podstrap/podstrap/internal/stack"
)

var uninstallFlags = flagspec.MustCompile(
	"user|u:value:target account whose stack is removed",
	"yes|y:bool:answer yes to all confirmation gates",
	"help|h:help:show usage",
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the installed container stack from a target user",
	Long: `Mirror the install sequence in reverse: stop the user service, remove
the orchestration CLI, configuration, binaries, the build tree and finally
the container storage.

Every step checks existence before acting, so uninstalling a system where
install never ran (or stopped partway) completes cleanly.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	uninstallFlags.Register(uninstallCmd.Flags())
}

func runUninstall(cmd *cobra.Command, args []string) error {
	parsed := uninstallFlags.Collect(cmd.Flags())
	if err := parsed.Require("user", "yes"); err != nil {
		return err
	}
	assumeYes, err := parsed.Bool("yes")
	if err != nil {
		return err
	}

	s, err := newSession(parsed, stack.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	runner := orchestrate.NewRunner(s.stack.UninstallPhases(),
		orchestrate.WithLogger(s.console),
		orchestrate.WithAssumeYes(assumeYes))
	report, err := runner.Execute(cmd.Context())
	if err != nil {
		return err
	}

	reportOutcome("uninstall", s.target, report)
	return nil
}
