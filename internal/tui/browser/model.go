package browser

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-workitems/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
)

// Backend is what the browser needs from the service.
type Backend interface {
	Tree() *tree.Provider
	Refresh(ctx context.Context) error
}

// row is a single visible line of the tree.
type row struct {
	node   *tree.Node
	depth  int
	parent int // index of the parent row, -1 for roots
}

// Model is the main model for the work item browser TUI
type Model struct {
	ctx     context.Context
	backend Backend

	rows     []row
	expanded map[*tree.Node]bool
	loading  map[*tree.Node]bool

	cursor       int
	scrollOffset int
	width        int
	height       int

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	confirm confirm.Model

	refreshing    bool
	statusMessage string
	statusIsError bool

	changes     chan struct{}
	unsubscribe func()
}

// New creates a new TUI model.
func New(ctx context.Context, backend Backend) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))

	// Coalesce change notifications; the browser only needs to know that
	// something changed since it last looked.
	changes := make(chan struct{}, 1)
	unsubscribe := backend.Tree().OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	return Model{
		ctx:      ctx,
		backend:  backend,
		expanded: make(map[*tree.Node]bool),
		loading:  make(map[*tree.Node]bool),
		keys:     keys,
		help:     help.New(),
		spinner:  sp,
		confirm:  confirm.New(),
		// Init starts the first refresh.
		refreshing:  true,
		changes:     changes,
		unsubscribe: unsubscribe,
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.ctx, m.backend), waitForChange(m.changes), m.spinner.Tick)
}

// Close stops listening for tree changes.
func (m Model) Close() {
	m.unsubscribe()
}

// rebuildRows flattens the expanded part of the tree. Expanded nodes are
// always loaded, so reading their children does not block.
func (m *Model) rebuildRows() {
	p := m.backend.Tree()
	var rows []row

	var walk func(nodes []*tree.Node, depth, parent int)
	walk = func(nodes []*tree.Node, depth, parent int) {
		for _, n := range nodes {
			rows = append(rows, row{node: n, depth: depth, parent: parent})
			if !m.expanded[n] || !n.Loaded() {
				continue
			}
			children, err := p.Children(m.ctx, n)
			if err != nil {
				continue
			}
			walk(children, depth+1, len(rows)-1)
		}
	}
	walk(p.Roots(), 0, -1)

	m.rows = rows
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	height := m.viewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	} else if m.cursor >= m.scrollOffset+height {
		m.scrollOffset = m.cursor - height + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) viewportHeight() int {
	// Account for:
	// - Header and blank line: 2 lines
	// - Blank line, status and help: 3 lines
	const fixedLines = 5
	if m.height == 0 {
		return 20
	}
	availableHeight := m.height - fixedLines
	if availableHeight < 1 {
		return 1
	}
	return availableHeight
}

func (m *Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) setStatus(msg string, isError bool) {
	m.statusMessage = msg
	m.statusIsError = isError
}
