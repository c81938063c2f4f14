package browser

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-workitems/pkg/tree"
)

// TreeChangedMsg tells the browser the roots were replaced.
type TreeChangedMsg struct{}

type refreshedMsg struct {
	err error
}

type childrenLoadedMsg struct {
	node     *tree.Node
	children []*tree.Node
	err      error
}

func refreshCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: b.Refresh(ctx)}
	}
}

func loadChildrenCmd(ctx context.Context, p *tree.Provider, node *tree.Node) tea.Cmd {
	return func() tea.Msg {
		children, err := p.Children(ctx, node)
		return childrenLoadedMsg{node: node, children: children, err: err}
	}
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return TreeChangedMsg{}
	}
}
