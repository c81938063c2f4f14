// Package confirm is a yes/no question shown in place of the tree.
package confirm

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AnsweredMsg is sent once the question is answered. Action is the value
// passed to Ask.
type AnsweredMsg struct {
	Action string
	Yes    bool
}

// Model is a pending question. The zero value is inactive.
type Model struct {
	Active   bool
	Action   string
	Question string
	Detail   string
}

// New returns an inactive dialog.
func New() Model {
	return Model{}
}

// Ask activates the dialog. action identifies the question in AnsweredMsg.
func (m *Model) Ask(action, question, detail string) {
	m.Active = true
	m.Action = action
	m.Question = question
	m.Detail = detail
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !m.Active || !ok {
		return m, nil
	}

	var yes bool
	switch {
	case key.Matches(keyMsg, keys.Yes):
		yes = true
	case key.Matches(keyMsg, keys.No):
	default:
		return m, nil
	}

	answered := AnsweredMsg{Action: m.Action, Yes: yes}
	m = New()
	return m, func() tea.Msg { return answered }
}

func (m Model) View() string {
	if !m.Active {
		return ""
	}

	content := m.Question
	if m.Detail != "" {
		content += "\n" + lipgloss.NewStyle().Faint(true).Render(m.Detail)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(1, 2).
		Render(content)

	hint := lipgloss.NewStyle().
		Faint(true).
		Width(lipgloss.Width(box)).
		Align(lipgloss.Center).
		Render(keys.Yes.Help().Key + " yes · " + keys.No.Help().Key + " no")

	return lipgloss.JoinVertical(lipgloss.Left, box, hint)
}

var keys = struct {
	Yes key.Binding
	No  key.Binding
}{
	Yes: key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y/enter", "yes")),
	No:  key.NewBinding(key.WithKeys("n", "esc", "q"), key.WithHelp("n/esc", "no")),
}
