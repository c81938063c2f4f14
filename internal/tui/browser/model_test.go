package browser

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-workitems/internal/tui/browser/components/confirm"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
)

type fakeBackend struct {
	provider *tree.Provider
	build    func() []*tree.Node
	err      error
	calls    int
}

func (b *fakeBackend) Tree() *tree.Provider { return b.provider }

func (b *fakeBackend) Refresh(ctx context.Context) error {
	b.calls++
	if b.err != nil {
		return b.err
	}
	b.provider.Refresh(b.build())
	return nil
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func rowTitles(m Model) []string {
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.node.Title
	}
	return out
}

func sampleTree() []*tree.Node {
	a := tree.NewNode("item", "a", "1", "Active", nil)
	b := tree.NewNode("item", "b", "2", "New", nil)
	return []*tree.Node{
		tree.NewNode("source", "contoso", "", "", tree.Static(a, b)),
		tree.NewNode("source", "fabrikam", "", "", func(ctx context.Context) ([]*tree.Node, error) {
			return nil, errors.New("offline")
		}),
	}
}

// started returns a model that has completed its first refresh.
func started(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := New(context.Background(), backend)
	t.Cleanup(m.Close)

	m, _ = update(t, m, refreshCmd(m.ctx, backend)())
	m, _ = update(t, m, waitForChange(m.changes)())
	return m
}

func TestBrowserShowsRootsAfterRefresh(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: sampleTree}
	m := started(t, backend)

	assert.Equal(t, 1, backend.calls)
	assert.False(t, m.refreshing)
	assert.Equal(t, []string{"contoso", "fabrikam"}, rowTitles(m))
	assert.Contains(t, m.View(), "contoso")
}

func TestBrowserExpandAndCollapse(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: sampleTree}
	m := started(t, backend)
	root := m.rows[0].node

	m, cmd := update(t, m, keyMsg("l"))
	require.NotNil(t, cmd)
	assert.True(t, m.loading[root])

	m, _ = update(t, m, loadChildrenCmd(m.ctx, backend.Tree(), root)())
	assert.False(t, m.loading[root])
	assert.Equal(t, []string{"contoso", "a", "b", "fabrikam"}, rowTitles(m))
	assert.Equal(t, 1, m.rows[1].depth)

	m, _ = update(t, m, keyMsg("j"))
	assert.Equal(t, 1, m.cursor)

	// h on a folded child jumps to its parent, then folds the parent.
	m, _ = update(t, m, keyMsg("h"))
	assert.Equal(t, 0, m.cursor)
	m, _ = update(t, m, keyMsg("h"))
	assert.Equal(t, []string{"contoso", "fabrikam"}, rowTitles(m))

	// Children are cached: expanding again needs no load.
	m, cmd = update(t, m, keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"contoso", "a", "b", "fabrikam"}, rowTitles(m))
}

func TestBrowserLoadError(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: sampleTree}
	m := started(t, backend)

	m, _ = update(t, m, keyMsg("G"))
	failing := m.rows[m.cursor].node
	require.Equal(t, "fabrikam", failing.Title)

	m, _ = update(t, m, keyMsg("l"))
	m, _ = update(t, m, loadChildrenCmd(m.ctx, backend.Tree(), failing)())

	assert.True(t, m.statusIsError)
	assert.Contains(t, m.statusMessage, "offline")
	assert.False(t, m.expanded[failing])
	assert.Contains(t, m.View(), "offline")
}

func TestBrowserRefreshConfirmation(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: sampleTree}
	m := started(t, backend)

	m, _ = update(t, m, keyMsg("r"))
	require.True(t, m.confirm.Active)

	m, cmd := update(t, m, keyMsg("y"))
	require.NotNil(t, cmd)
	answered, ok := cmd().(confirm.AnsweredMsg)
	require.True(t, ok)
	assert.Equal(t, confirm.AnsweredMsg{Action: actionRefresh, Yes: true}, answered)

	m, _ = update(t, m, answered)
	assert.True(t, m.refreshing)

	backend.err = errors.New("bad config")
	m, _ = update(t, m, refreshCmd(m.ctx, backend)())
	assert.False(t, m.refreshing)
	assert.True(t, m.statusIsError)
	assert.Equal(t, []string{"contoso", "fabrikam"}, rowTitles(m), "failed refresh keeps the tree")
}

func TestBrowserRefreshDeclined(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: sampleTree}
	m := started(t, backend)

	m, _ = update(t, m, keyMsg("r"))
	require.True(t, m.confirm.Active)
	assert.Contains(t, m.View(), "reload?")

	m, cmd := update(t, m, keyMsg("n"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.False(t, m.confirm.Active)
	assert.False(t, m.refreshing)
	assert.Equal(t, []string{"contoso", "fabrikam"}, rowTitles(m))
}

func TestBrowserTreeChangeResetsExpansion(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: sampleTree}
	m := started(t, backend)
	root := m.rows[0].node

	m, _ = update(t, m, keyMsg("l"))
	m, _ = update(t, m, loadChildrenCmd(m.ctx, backend.Tree(), root)())
	require.Len(t, m.rows, 4)

	require.NoError(t, backend.Refresh(context.Background()))
	m, _ = update(t, m, waitForChange(m.changes)())
	assert.Equal(t, []string{"contoso", "fabrikam"}, rowTitles(m))
	assert.Empty(t, m.expanded)
}

func TestBrowserEmpty(t *testing.T) {
	backend := &fakeBackend{provider: tree.NewProvider(nil), build: func() []*tree.Node { return nil }}
	m := started(t, backend)
	assert.Contains(t, m.View(), "No sources configured")

	m, _ = update(t, m, keyMsg("j"))
	assert.Equal(t, 0, m.cursor)
}
