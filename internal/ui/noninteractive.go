package ui

import (
	"fmt"
	"io"
	"os"
)

// NonInteractive is an Interactor for scripted runs: messages print
// plainly, and prompts resolve without a user. With AssumeYes, choice
// prompts pick the first offered choice and text prompts accept their
// default; otherwise every prompt cancels.
type NonInteractive struct {
	out       io.Writer
	assumeYes bool
}

// NewNonInteractive creates a scripted interactor writing to out
// (stderr when nil).
func NewNonInteractive(out io.Writer, assumeYes bool) *NonInteractive {
	if out == nil {
		out = os.Stderr
	}
	return &NonInteractive{out: out, assumeYes: assumeYes}
}

// ShowError implements Interactor.
func (n *NonInteractive) ShowError(msg string) {
	fmt.Fprintf(n.out, "error: %s\n", msg)
}

// ShowWarning implements Interactor.
func (n *NonInteractive) ShowWarning(msg string) {
	fmt.Fprintf(n.out, "warning: %s\n", msg)
}

// ShowErrorWithChoice implements Interactor.
func (n *NonInteractive) ShowErrorWithChoice(msg string, choices ...string) (string, bool) {
	n.ShowError(msg)
	return n.pick(choices)
}

// ShowWarningWithChoice implements Interactor.
func (n *NonInteractive) ShowWarningWithChoice(msg string, choices ...string) (string, bool) {
	n.ShowWarning(msg)
	return n.pick(choices)
}

func (n *NonInteractive) pick(choices []string) (string, bool) {
	if !n.assumeYes || len(choices) == 0 {
		return "", false
	}
	return choices[0], true
}

// PromptText implements Interactor. An empty default still cancels:
// there is no sensible unattended answer to an open question.
func (n *NonInteractive) PromptText(prompt, defaultValue string) (string, bool) {
	if !n.assumeYes || defaultValue == "" {
		return "", false
	}
	return defaultValue, true
}
