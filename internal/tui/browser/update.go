package browser

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-workitems/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
)

const actionRefresh = "refresh"

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TreeChangedMsg:
		// Every cached node is gone with the old roots.
		m.expanded = make(map[*tree.Node]bool)
		m.loading = make(map[*tree.Node]bool)
		m.rebuildRows()
		return m, waitForChange(m.changes)

	case refreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.setStatus("Refresh failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus("", false)
		return m, nil

	case childrenLoadedMsg:
		delete(m.loading, msg.node)
		if msg.err != nil {
			m.setStatus("Could not load "+msg.node.Title+": "+msg.err.Error(), true)
			return m, nil
		}
		if !m.contains(msg.node) {
			// A refresh replaced the tree while this load was running.
			return m, nil
		}
		m.expanded[msg.node] = true
		m.setStatus("", false)
		m.rebuildRows()
		return m, nil

	case confirm.AnsweredMsg:
		if msg.Action == actionRefresh && msg.Yes {
			return m.startRefresh()
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirm.Active {
			var cmd tea.Cmd
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
			m.help.ShowAll = false
			return m, nil
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.viewportHeight() / 2)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.viewportHeight() / 2)
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.clampCursor()
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = len(m.rows) - 1
		m.clampCursor()
	case key.Matches(msg, m.keys.Expand):
		return m.expand()
	case key.Matches(msg, m.keys.Collapse):
		m.collapse()
	case key.Matches(msg, m.keys.Toggle):
		if r, ok := m.selected(); ok && m.expanded[r.node] {
			m.collapse()
			return m, nil
		}
		return m.expand()
	case key.Matches(msg, m.keys.Refresh):
		if m.refreshing {
			return m, nil
		}
		m.confirm.Ask(actionRefresh, "Discard all loaded work items and reload?",
			fmt.Sprintf("%d expanded nodes will be collapsed.", len(m.expanded)))
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m Model) expand() (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok || m.expanded[r.node] || m.loading[r.node] {
		return m, nil
	}
	if m.backend.Tree().DisplayRecord(r.node).State == tree.None {
		return m, nil
	}

	if r.node.Loaded() {
		m.expanded[r.node] = true
		m.rebuildRows()
		return m, nil
	}

	m.loading[r.node] = true
	m.setStatus("", false)
	return m, tea.Batch(loadChildrenCmd(m.ctx, m.backend.Tree(), r.node), m.spinner.Tick)
}

// collapse folds the selected node, or moves to its parent when it is folded.
func (m *Model) collapse() {
	r, ok := m.selected()
	if !ok {
		return
	}
	if m.expanded[r.node] {
		delete(m.expanded, r.node)
		m.rebuildRows()
		return
	}
	if r.parent >= 0 {
		m.cursor = r.parent
		m.clampCursor()
	}
}

func (m Model) startRefresh() (tea.Model, tea.Cmd) {
	m.refreshing = true
	m.setStatus("Refreshing...", false)
	return m, tea.Batch(refreshCmd(m.ctx, m.backend), m.spinner.Tick)
}

func (m *Model) busy() bool {
	return m.refreshing || len(m.loading) > 0
}

func (m *Model) contains(n *tree.Node) bool {
	for _, r := range m.rows {
		if r.node == n {
			return true
		}
	}
	return false
}
