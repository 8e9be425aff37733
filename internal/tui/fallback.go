package tui

import (
	"fmt"

	"github.com/joulelab/jouleup/internal/prompt"
)

// FallbackUI implements UI using simple stdin/stdout prompts.
// This is used when the terminal is not interactive (CI, piped input, etc.).
type FallbackUI struct {
	prompter prompt.Prompter
}

// NewFallbackUI creates a new FallbackUI instance.
func NewFallbackUI() *FallbackUI {
	return &FallbackUI{
		prompter: prompt.NewStdPrompter(),
	}
}

// NewFallbackUIWithPrompter creates a FallbackUI with a custom prompter.
func NewFallbackUIWithPrompter(p prompt.Prompter) *FallbackUI {
	return &FallbackUI{
		prompter: p,
	}
}

// IsInteractive returns false as FallbackUI is for non-interactive terminals.
func (*FallbackUI) IsInteractive() bool {
	return false
}

// Confirm asks a yes/no question on the plain prompter.
func (f *FallbackUI) Confirm(title, description string, defaultValue bool) (bool, error) {
	if description != "" {
		fmt.Println(description)
	}

	return f.prompter.Confirm(title, defaultValue)
}
