package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// confirm asks a yes/no question on the terminal.
func confirm(title, description, affirmative string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative(affirmative).
				Negative("Cancel").
				Value(&ok),
		),
	).WithShowHelp(false)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation cancelled: %w", err)
	}
	return ok, nil
}
