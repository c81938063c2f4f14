package tree

import (
	"context"
	"sync"
)

// Provider serves a set of root nodes to a host that polls for roots,
// children and display records, and tells subscribers when the roots change.
type Provider struct {
	mu    sync.RWMutex
	roots []*Node

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func()
}

// NewProvider creates a provider serving roots.
func NewProvider(roots []*Node) *Provider {
	return &Provider{
		roots: clone(roots),
	}
}

// Roots returns the current roots.
func (p *Provider) Roots() []*Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return clone(p.roots)
}

// Children returns the children of node, loading them on first access. A nil
// node stands for the invisible root and yields Roots.
func (p *Provider) Children(ctx context.Context, node *Node) ([]*Node, error) {
	if node == nil {
		return p.Roots(), nil
	}
	return node.Children(ctx)
}

// DisplayRecord returns the display record of node.
func (p *Provider) DisplayRecord(node *Node) DisplayRecord {
	return node.DisplayRecord()
}

// Refresh replaces every root and notifies subscribers once. Cached children
// of the previous roots are discarded with them.
func (p *Provider) Refresh(roots []*Node) {
	p.mu.Lock()
	p.roots = clone(roots)
	p.mu.Unlock()

	p.notify()
}

// RefreshWith builds new roots and installs them with Refresh. When build
// fails the current roots stay in place and nobody is notified.
func (p *Provider) RefreshWith(ctx context.Context, build func(ctx context.Context) ([]*Node, error)) error {
	roots, err := build(ctx)
	if err != nil {
		return err
	}
	p.Refresh(roots)
	return nil
}

// OnChange registers fn to run after every refresh. The returned function
// removes the subscription.
func (p *Provider) OnChange(fn func()) (unsubscribe func()) {
	p.listenersMu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	p.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.listenersMu.Lock()
			for i, l := range p.listeners {
				if l.id == id {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					break
				}
			}
			p.listenersMu.Unlock()
		})
	}
}

func (p *Provider) notify() {
	p.listenersMu.Lock()
	fns := make([]func(), 0, len(p.listeners))
	for _, l := range p.listeners {
		fns = append(fns, l.fn)
	}
	p.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
