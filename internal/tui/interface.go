// Package tui provides terminal user interface components.
package tui

// UI defines the interface for terminal confirmation prompts.
// This interface abstracts the TUI implementation to allow for both
// interactive (huh) and fallback (simple prompt) implementations.
type UI interface {
	// Confirm asks the user a yes/no question and returns the answer.
	// The description may be empty.
	Confirm(title, description string, defaultValue bool) (bool, error)

	// IsInteractive returns true if running in an interactive terminal.
	IsInteractive() bool
}
