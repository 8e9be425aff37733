package tui

import (
	"charm.land/huh/v2"
)

// HuhUI implements UI using charm.land/huh.
type HuhUI struct{}

// NewHuhUI creates a new HuhUI instance.
func NewHuhUI() *HuhUI {
	return &HuhUI{}
}

// IsInteractive returns true as HuhUI is for interactive terminals.
func (*HuhUI) IsInteractive() bool {
	return true
}

// Confirm asks a yes/no question as a single-field huh form.
func (*HuhUI) Confirm(title, description string, defaultValue bool) (bool, error) {
	answer := defaultValue

	confirm := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)

	form := huh.NewForm(huh.NewGroup(confirm))

	if err := form.Run(); err != nil {
		return false, err
	}

	return answer, nil
}
