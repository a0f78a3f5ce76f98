// Package ui provides the user-interaction surface for refract:
// severity-styled messages, consent choices, and text prompts.
//
// Cancellation is a value, not an error: every awaited method returns
// (result, ok) where ok=false means the user dismissed or cancelled.
// Callers branch on ok; nothing here ever panics or throws to signal a
// dismissed prompt.
package ui

// Interactor is the user-interaction collaborator injected into the
// refactoring flow. Implementations: Terminal (interactive),
// NonInteractive (scripted), and test fakes.
type Interactor interface {
	// ShowError displays an error-level message. Fire-and-forget.
	ShowError(msg string)

	// ShowWarning displays a warning-level message. Fire-and-forget.
	ShowWarning(msg string)

	// ShowErrorWithChoice displays an error-level message with choice
	// buttons and waits. Returns the chosen label, or ok=false when the
	// user dismissed the prompt.
	ShowErrorWithChoice(msg string, choices ...string) (string, bool)

	// ShowWarningWithChoice is ShowErrorWithChoice at warning level.
	ShowWarningWithChoice(msg string, choices ...string) (string, bool)

	// PromptText asks for a line of text seeded with a default value.
	// Returns ok=false when the user cancelled the prompt.
	PromptText(prompt, defaultValue string) (string, bool)
}
