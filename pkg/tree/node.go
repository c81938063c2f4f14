// Package tree models a hierarchy whose children are computed on first access
// and cached until the whole tree is replaced.
package tree

import (
	"context"
	"errors"
	"sync"
)

// CollapsibleState is the expand affordance a host shows for a node.
type CollapsibleState int

const (
	// None marks a leaf.
	None CollapsibleState = iota
	// Collapsed marks a node that can be expanded.
	Collapsed
)

func (s CollapsibleState) String() string {
	if s == Collapsed {
		return "collapsed"
	}
	return "none"
}

// Icon is what a host draws next to a node. Theme names a built-in glyph
// ("cloud", "server"); URI carries image data. Both may be empty.
type Icon struct {
	Theme string
	URI   string
}

// DisplayRecord is everything a host needs to draw one node.
type DisplayRecord struct {
	Kind        string
	Title       string
	Description string
	Tooltip     string
	Icon        Icon
	State       CollapsibleState
}

// Loader computes the children of a node.
type Loader func(ctx context.Context) ([]*Node, error)

// IconResolver derives the icon of a node. It is called on every render so it
// can pick up icons that became available later.
type IconResolver func() Icon

// Static is a Loader for children known at construction time.
func Static(children ...*Node) Loader {
	return func(context.Context) ([]*Node, error) {
		return children, nil
	}
}

// Node is a tree node with fixed display metadata and lazily loaded children.
type Node struct {
	Kind        string
	Title       string
	Description string
	Tooltip     string

	load Loader
	icon IconResolver

	mu       sync.Mutex
	loaded   bool
	children []*Node
	inflight *loadCall
}

type loadCall struct {
	done     chan struct{}
	children []*Node
	err      error
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithIcon sets the icon strategy.
func WithIcon(r IconResolver) NodeOption {
	return func(n *Node) { n.icon = r }
}

// WithChildren creates the node already loaded with children, so a leaf is
// drawn as a leaf right away. The loader is never called.
func WithChildren(children ...*Node) NodeOption {
	return func(n *Node) {
		n.children = clone(children)
		n.loaded = true
	}
}

// NewNode creates an unloaded node. A nil loader means the node has no children.
func NewNode(kind, title, description, tooltip string, load Loader, opts ...NodeOption) *Node {
	if load == nil {
		load = Static()
	}
	n := &Node{
		Kind:        kind,
		Title:       title,
		Description: description,
		Tooltip:     tooltip,
		load:        load,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Children returns the node's children, running the loader on the first call
// only. Concurrent first calls share one load. A failed load leaves the node
// unloaded so a later call retries. When the shared load ends because the
// caller that started it went away, a waiter whose own ctx is live starts a
// new load.
func (n *Node) Children(ctx context.Context) ([]*Node, error) {
	for {
		n.mu.Lock()
		if n.loaded {
			children := clone(n.children)
			n.mu.Unlock()
			return children, nil
		}

		call := n.inflight
		if call == nil {
			break
		}
		n.mu.Unlock()

		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err == nil {
			return clone(call.children), nil
		}
		if !isContextErr(call.err) || ctx.Err() != nil {
			return nil, call.err
		}
	}

	call := &loadCall{done: make(chan struct{})}
	n.inflight = call
	n.mu.Unlock()

	children, err := n.load(ctx)

	n.mu.Lock()
	if err == nil {
		if children == nil {
			children = []*Node{}
		}
		n.children = children
		n.loaded = true
	}
	call.children, call.err = children, err
	n.inflight = nil
	n.mu.Unlock()
	close(call.done)

	if err != nil {
		return nil, err
	}
	return clone(children), nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Loaded reports whether the children have been loaded.
func (n *Node) Loaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// DisplayRecord describes the node for a host. A node is expandable until it
// is known to have no children.
func (n *Node) DisplayRecord() DisplayRecord {
	n.mu.Lock()
	state := Collapsed
	if n.loaded && len(n.children) == 0 {
		state = None
	}
	n.mu.Unlock()

	var icon Icon
	if n.icon != nil {
		icon = n.icon()
	}

	return DisplayRecord{
		Kind:        n.Kind,
		Title:       n.Title,
		Description: n.Description,
		Tooltip:     n.Tooltip,
		Icon:        icon,
		State:       state,
	}
}

func clone(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	return out
}
