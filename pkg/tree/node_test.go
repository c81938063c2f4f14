package tree

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(title string) *Node {
	return NewNode("leaf", title, "", "", nil)
}

func titles(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Title
	}
	return out
}

func TestNodeLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	n := NewNode("k", "parent", "", "", func(ctx context.Context) ([]*Node, error) {
		calls.Add(1)
		return []*Node{leaf("a"), leaf("b")}, nil
	})

	assert.False(t, n.Loaded())
	assert.Equal(t, Collapsed, n.DisplayRecord().State, "unloaded nodes look expandable")

	first, err := n.Children(context.Background())
	require.NoError(t, err)
	second, err := n.Children(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, titles(first))
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
	assert.True(t, n.Loaded())
}

func TestNodeChildrenAreCopies(t *testing.T) {
	n := NewNode("k", "parent", "", "", Static(leaf("a")))
	children, err := n.Children(context.Background())
	require.NoError(t, err)

	children[0] = leaf("mutated")
	again, err := n.Children(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(again))
}

func TestNodeConcurrentFirstLoadSharesOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	n := NewNode("k", "parent", "", "", func(ctx context.Context) ([]*Node, error) {
		calls.Add(1)
		<-release
		return []*Node{leaf("a")}, nil
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]*Node, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			children, err := n.Children(context.Background())
			assert.NoError(t, err)
			results[i] = children
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, results[0], r, "every caller sees the same children")
	}
}

func TestNodeWaiterRespectsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	n := NewNode("k", "parent", "", "", func(ctx context.Context) ([]*Node, error) {
		close(started)
		<-release
		return nil, nil
	})

	go n.Children(context.Background())
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := n.Children(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNodeWaiterOutlivesCancelledLoader(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	n := NewNode("k", "parent", "", "", func(ctx context.Context) ([]*Node, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []*Node{leaf("a")}, nil
	})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := n.Children(leaderCtx)
		leaderErr <- err
	}()
	<-started

	waiter := make(chan []*Node, 1)
	go func() {
		children, err := n.Children(context.Background())
		assert.NoError(t, err)
		waiter <- children
	}()

	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	assert.Equal(t, []string{"a"}, titles(<-waiter))
	assert.EqualValues(t, 2, calls.Load())
	assert.True(t, n.Loaded())
}

func TestNodeFailedLoadRetries(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	n := NewNode("k", "parent", "", "", func(ctx context.Context) ([]*Node, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return []*Node{leaf("a")}, nil
	})

	_, err := n.Children(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, n.Loaded())
	assert.Equal(t, Collapsed, n.DisplayRecord().State)

	children, err := n.Children(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(children))
	assert.EqualValues(t, 2, calls.Load())
}

func TestNodeDisplayRecord(t *testing.T) {
	t.Run("loaded without children is a leaf", func(t *testing.T) {
		n := NewNode("k", "t", "d", "tip", nil)
		_, err := n.Children(context.Background())
		require.NoError(t, err)

		r := n.DisplayRecord()
		assert.Equal(t, None, r.State)
		assert.Equal(t, "k", r.Kind)
		assert.Equal(t, "t", r.Title)
		assert.Equal(t, "d", r.Description)
		assert.Equal(t, "tip", r.Tooltip)
	})

	t.Run("preloaded children", func(t *testing.T) {
		parent := NewNode("k", "p", "", "", nil, WithChildren(leaf("a")))
		assert.True(t, parent.Loaded())
		assert.Equal(t, Collapsed, parent.DisplayRecord().State)

		empty := NewNode("k", "e", "", "", nil, WithChildren())
		assert.Equal(t, None, empty.DisplayRecord().State, "known leaves render as leaves right away")
	})

	t.Run("icon is resolved on every call", func(t *testing.T) {
		uri := ""
		n := NewNode("k", "t", "", "", nil, WithIcon(func() Icon { return Icon{URI: uri} }))
		assert.Empty(t, n.DisplayRecord().Icon.URI)

		uri = "data:image/svg+xml;utf8,<svg/>"
		assert.Equal(t, uri, n.DisplayRecord().Icon.URI)
	})
}

func TestCollapsibleStateString(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "collapsed", Collapsed.String())
}
