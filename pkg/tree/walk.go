package tree

import "context"

// WalkFunc is called for every visited node with its depth, 0 for roots.
type WalkFunc func(depth int, node *Node) error

// Walk visits the tree depth-first in child order, loading children as it
// goes. Nodes deeper than maxDepth are neither visited nor loaded; maxDepth
// below 1 means no limit. The first error stops the walk.
func Walk(ctx context.Context, p *Provider, maxDepth int, fn WalkFunc) error {
	var visit func(nodes []*Node, depth int) error
	visit = func(nodes []*Node, depth int) error {
		for _, n := range nodes {
			if err := fn(depth, n); err != nil {
				return err
			}
			if maxDepth > 0 && depth+1 >= maxDepth {
				continue
			}
			children, err := p.Children(ctx, n)
			if err != nil {
				return err
			}
			if err := visit(children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(p.Roots(), 0)
}
