// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/podstrap/podstrap/internal/flagspec"
	"github.com/podstrap/podstrap/internal/stack"
)

var statusFlags = flagspec.MustCompile(
	"user|u:value:target account to inspect",
	"help|h:help:show usage",
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect the installed stack for a target user",
	Long: `Observe without mutating: which component binaries are present, whether
the engine configuration exists, whether the API socket unit is active and
whether the engine responds and reports a healthy host.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusFlags.Register(statusCmd.Flags())
}

func runStatus(cmd *cobra.Command, args []string) error {
	parsed := statusFlags.Collect(cmd.Flags())
	if err := parsed.Require("user"); err != nil {
		return err
	}

	s, err := newSession(parsed, stack.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	in, err := s.stack.Inspect(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("podstrap status") + SubtitleStyle.Render(" for "+s.target.Name))

	names := make([]string, 0, len(in.Binaries))
	for name := range in.Binaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s %s\n", mark(in.Binaries[name]), PathStyle.Render(name))
	}
	fmt.Printf("  %s engine configuration\n", mark(in.ConfigPresent))
	fmt.Printf("  %s API socket unit active\n", mark(in.ServiceActive))
	fmt.Printf("  %s engine responding\n", mark(in.EngineResponding))
	fmt.Printf("  %s engine healthy\n", mark(in.EngineHealthy))

	if !in.Installed() {
		fmt.Println(SubtitleStyle.Render("not fully installed; run 'podstrap install -u " + s.target.Name + "'"))
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return SuccessStyle.Render("✓")
	}
	return ErrorStyle.Render("✗")
}
