package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	choiceStyle   = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Padding(0, 1).Reverse(true).Bold(true)
	hintStyle     = lipgloss.NewStyle().Faint(true)
	promptStyle   = lipgloss.NewStyle().Bold(true)
)

// choiceModel renders a message with a row of choice buttons. Enter
// picks the highlighted choice; esc dismisses.
type choiceModel struct {
	label     string
	message   string
	choices   []string
	cursor    int
	chosen    bool
	cancelled bool
}

func (m choiceModel) Init() tea.Cmd { return nil }

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		case "left", "h", "shift+tab":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l", "tab":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m choiceModel) View() string {
	if m.chosen || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.label + " " + m.message + "\n\n")
	for i, choice := range m.choices {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(choice))
		} else {
			b.WriteString(choiceStyle.Render(choice))
		}
	}
	b.WriteString("\n" + hintStyle.Render("enter to select, esc to dismiss") + "\n")
	return b.String()
}

func runChoice(label, message string, choices []string) (string, bool) {
	p := tea.NewProgram(choiceModel{label: label, message: message, choices: choices}, tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", false
	}

	m, ok := final.(choiceModel)
	if !ok || !m.chosen {
		return "", false
	}
	return m.choices[m.cursor], true
}

// textModel is a one-line text prompt seeded with a default value.
type textModel struct {
	prompt    string
	input     textinput.Model
	accepted  bool
	cancelled bool
}

func newTextModel(prompt, defaultValue string) textModel {
	ti := textinput.New()
	ti.SetValue(defaultValue)
	ti.CursorEnd()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 48
	return textModel{prompt: prompt, input: ti}
}

func (m textModel) Init() tea.Cmd { return textinput.Blink }

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			m.accepted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textModel) View() string {
	if m.accepted || m.cancelled {
		return ""
	}
	return promptStyle.Render(m.prompt) + "\n" + m.input.View() + "\n" +
		hintStyle.Render("enter to accept, esc to cancel") + "\n"
}

func runTextPrompt(prompt, defaultValue string) (string, bool) {
	p := tea.NewProgram(newTextModel(prompt, defaultValue), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", false
	}

	m, ok := final.(textModel)
	if !ok || !m.accepted {
		return "", false
	}
	return strings.TrimSpace(m.input.Value()), true
}
