// SPDX-License-Identifier: MPL-2.0

package orchestrate

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// TerminalConfirm prompts on the controlling terminal. Ctrl-C/Esc count as a
// decline rather than an error so the runner aborts cleanly.
func TerminalConfirm(prompt, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Description(description).
			Affirmative("Continue").
			Negative("Abort").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
