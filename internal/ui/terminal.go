package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Terminal is the interactive Interactor. Messages go to stderr with
// colored severity prefixes; choices and prompts run as inline
// bubbletea programs. When the session has no TTY every choice and
// prompt auto-cancels, so a piped refract never hangs waiting for keys.
type Terminal struct {
	out         io.Writer
	interactive bool
	width       int

	errLabel  *color.Color
	warnLabel *color.Color
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithOutput redirects message output (stderr by default).
func WithOutput(w io.Writer) TerminalOption {
	return func(t *Terminal) {
		t.out = w
	}
}

// WithNoColor disables colored severity prefixes.
func WithNoColor() TerminalOption {
	return func(t *Terminal) {
		t.errLabel.DisableColor()
		t.warnLabel.DisableColor()
	}
}

// WithInteractive overrides TTY detection. Tests use it; so does
// --yes-style scripting where prompts must not appear.
func WithInteractive(interactive bool) TerminalOption {
	return func(t *Terminal) {
		t.interactive = interactive
	}
}

// WithWidth fixes the wrap width instead of asking the terminal.
func WithWidth(width int) TerminalOption {
	return func(t *Terminal) {
		t.width = width
	}
}

// NewTerminal creates a Terminal, detecting TTY state and width from
// the process's standard streams.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:         os.Stderr,
		interactive: isTerminal(os.Stdin) && isTerminal(os.Stdout),
		width:       80,
		errLabel:    color.New(color.FgRed, color.Bold),
		warnLabel:   color.New(color.FgYellow, color.Bold),
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		t.width = w
	}

	for _, opt := range opts {
		opt(t)
	}
	return t
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ShowError implements Interactor.
func (t *Terminal) ShowError(msg string) {
	t.show(t.errLabel.Sprint("error:"), msg)
}

// ShowWarning implements Interactor.
func (t *Terminal) ShowWarning(msg string) {
	t.show(t.warnLabel.Sprint("warning:"), msg)
}

func (t *Terminal) show(label, msg string) {
	fmt.Fprintf(t.out, "%s %s\n", label, wrapText(msg, t.width-len("warning: ")))
}

// ShowErrorWithChoice implements Interactor.
func (t *Terminal) ShowErrorWithChoice(msg string, choices ...string) (string, bool) {
	return t.choose(t.errLabel.Sprint("error:"), msg, choices)
}

// ShowWarningWithChoice implements Interactor.
func (t *Terminal) ShowWarningWithChoice(msg string, choices ...string) (string, bool) {
	return t.choose(t.warnLabel.Sprint("warning:"), msg, choices)
}

func (t *Terminal) choose(label, msg string, choices []string) (string, bool) {
	if !t.interactive || len(choices) == 0 {
		t.show(label, msg)
		return "", false
	}
	return runChoice(label, wrapText(msg, t.width-len("warning: ")), choices)
}

// PromptText implements Interactor.
func (t *Terminal) PromptText(prompt, defaultValue string) (string, bool) {
	if !t.interactive {
		return "", false
	}
	return runTextPrompt(prompt, defaultValue)
}

// wrapText wraps words to width display cells per line, preserving
// existing line breaks. Width accounting is runewidth-based so CJK and
// emoji don't overflow the terminal.
func wrapText(text string, width int) string {
	if width < 20 {
		width = 20
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}

	var wrapped []string
	var current string
	currentWidth := 0
	for _, word := range strings.Fields(line) {
		w := runewidth.StringWidth(word)
		if currentWidth > 0 && currentWidth+1+w > width {
			wrapped = append(wrapped, current)
			current = word
			currentWidth = w
			continue
		}
		if currentWidth > 0 {
			current += " "
			currentWidth++
		}
		current += word
		currentWidth += w
	}
	if current != "" {
		wrapped = append(wrapped, current)
	}
	if len(wrapped) == 0 {
		return []string{""}
	}
	return wrapped
}
