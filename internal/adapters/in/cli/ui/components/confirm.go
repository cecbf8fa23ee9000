// Package components provides the interactive and rendered pieces of the
// envrefresh terminal output.
package components

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/envrefresh/internal/adapters/in/cli/ui/styles"
)

// ConfirmResult represents the result of a confirmation dialog.
type ConfirmResult int

const (
	ConfirmPending ConfirmResult = iota
	ConfirmYes
	ConfirmNo
	ConfirmCancelled
)

type confirmKeys struct {
	Toggle key.Binding
	Yes    key.Binding
	No     key.Binding
	Submit key.Binding
	Cancel key.Binding
}

var defaultConfirmKeys = confirmKeys{
	Toggle: key.NewBinding(key.WithKeys("left", "right", "h", "l", "tab", "shift+tab"), key.WithHelp("←/→", "switch")),
	Yes:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y/n", "select")),
	No:     key.NewBinding(key.WithKeys("n", "N")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c", "q"), key.WithHelp("esc", "cancel")),
}

// ConfirmModel is a Yes/No confirmation dialog. No is focused initially.
type ConfirmModel struct {
	question    string
	description string
	focused     bool // true = Yes is focused
	result      ConfirmResult
	keys        confirmKeys

	questionStyle    lipgloss.Style
	descriptionStyle lipgloss.Style
	buttonStyle      lipgloss.Style
	focusedStyle     lipgloss.Style
}

// ConfirmOption configures a ConfirmModel.
type ConfirmOption func(*ConfirmModel)

// NewConfirm creates a new confirmation dialog.
func NewConfirm(question string, opts ...ConfirmOption) ConfirmModel {
	m := ConfirmModel{
		question:         question,
		result:           ConfirmPending,
		keys:             defaultConfirmKeys,
		questionStyle:    styles.Theme.Bold,
		descriptionStyle: styles.Theme.Muted,
		buttonStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(styles.ColorText),
		focusedStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(styles.ColorBg).
			Background(styles.ColorPrimary),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// WithDescription adds a description to the confirmation.
func WithDescription(desc string) ConfirmOption {
	return func(m *ConfirmModel) {
		m.description = desc
	}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Toggle):
		m.focused = !m.focused
	case key.Matches(keyMsg, m.keys.Yes):
		m.result = ConfirmYes
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.No):
		m.result = ConfirmNo
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Submit):
		if m.focused {
			m.result = ConfirmYes
		} else {
			m.result = ConfirmNo
		}
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Cancel):
		m.result = ConfirmCancelled
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(m.questionStyle.Render(m.question))
	b.WriteString("\n")
	if m.description != "" {
		b.WriteString(m.descriptionStyle.Render(m.description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	yes, no := m.buttonStyle.Render("Yes"), m.focusedStyle.Render("No")
	if m.focused {
		yes, no = m.focusedStyle.Render("Yes"), m.buttonStyle.Render("No")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, yes, "  ", no))
	b.WriteString("\n\n")

	var help []string
	for _, binding := range []key.Binding{m.keys.Yes, m.keys.Toggle, m.keys.Submit, m.keys.Cancel} {
		h := binding.Help()
		help = append(help, styles.RenderKeyHelp(h.Key, h.Desc))
	}
	b.WriteString(strings.Join(help, "  "))

	return b.String()
}

// Result returns the confirmation result.
func (m ConfirmModel) Result() ConfirmResult {
	return m.result
}

// Confirmed returns true if the user confirmed.
func (m ConfirmModel) Confirmed() bool {
	return m.result == ConfirmYes
}

// RunConfirm runs a confirmation dialog on in/out. Cancelling counts as a
// refusal.
func RunConfirm(in io.Reader, out io.Writer, question string, opts ...ConfirmOption) (bool, error) {
	m := NewConfirm(question, opts...)
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out))
	finalModel, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("error running confirmation: %w", err)
	}
	return finalModel.(ConfirmModel).Confirmed(), nil
}
