package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-workitems/pkg/tree"
	"github.com/mattsolo1/grove-workitems/pkg/workitems"
)

func (m Model) View() string {
	if m.help.ShowAll {
		return "\n" + headerStyle.Render("Work Items - Help") + "\n\n" + m.help.View(m.keys)
	}

	header := headerStyle.Render("Azure DevOps Work Items")

	var body string
	switch {
	case m.confirm.Active:
		body = m.confirm.View()
	case len(m.rows) == 0 && m.refreshing:
		body = m.spinner.View() + " Loading sources..."
	case len(m.rows) == 0:
		body = mutedStyle.Render("No sources configured. Add one with 'wi source add'.")
	default:
		body = m.renderTree()
	}

	status := ""
	if m.statusMessage != "" {
		if m.statusIsError {
			status = errorStyle.Render(m.statusMessage)
		} else {
			status = infoStyle.Render(m.statusMessage)
		}
	}

	fullView := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		body,
		"",
		status,
		m.help.View(m.keys),
	)
	return fullView
}

func (m Model) renderTree() string {
	var b strings.Builder
	p := m.backend.Tree()

	height := m.viewportHeight()
	start := m.scrollOffset
	end := start + height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := start; i < end; i++ {
		r := m.rows[i]
		record := p.DisplayRecord(r.node)

		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("▶ ")
		}

		line := strings.Repeat("  ", r.depth) + m.foldGlyph(r.node, record) + " "
		if g, ok := themeGlyphs[record.Icon.Theme]; ok {
			line += g + " "
		}
		line += record.Title
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}

		if record.Kind == workitems.KindWorkItem {
			line += mutedStyle.Render(" #" + record.Description)
			if record.Tooltip != "" {
				line += " " + stateStyle.Render(record.Tooltip)
			}
		}

		b.WriteString(cursor + line + "\n")
	}

	if len(m.rows) > height {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d-%d of %d)", start+1, end, len(m.rows))))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) foldGlyph(n *tree.Node, record tree.DisplayRecord) string {
	switch {
	case m.loading[n]:
		return m.spinner.View()
	case record.State == tree.None:
		return "•"
	case m.expanded[n]:
		return "▾"
	default:
		return "▸"
	}
}
