package devops

// HierarchyItem is a work item together with the items that name it as their
// parent. Children are owned exclusively by one HierarchyItem.
type HierarchyItem struct {
	WorkItem
	Children []*HierarchyItem
}

// Assemble arranges a flat item list into a forest in one pass. Items without
// a parent relation, or whose parent is not in the list, become roots. Only
// the first parent relation of an item is consulted. Children keep the order
// of the input; roots are returned in input order too.
//
// Items whose parent chain loops back on itself are all promoted to roots and
// detached from each other, so every input item appears exactly once.
func Assemble(items []WorkItem) []*HierarchyItem {
	nodes := make([]*HierarchyItem, len(items))
	byURL := make(map[string]*HierarchyItem, len(items))
	for i := range items {
		nodes[i] = &HierarchyItem{WorkItem: items[i], Children: []*HierarchyItem{}}
		byURL[items[i].URL] = nodes[i]
	}

	roots := []*HierarchyItem{}
	parentOf := make(map[*HierarchyItem]*HierarchyItem)
	for _, node := range nodes {
		parentURL, ok := firstParent(node.Relations)
		if !ok {
			roots = append(roots, node)
			continue
		}

		parent, found := byURL[parentURL]
		if !found {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
		parentOf[node] = parent
	}

	reachable := markReachable(roots)
	if len(reachable) == len(nodes) {
		return roots
	}

	// Collect every cycle member before detaching any of them.
	var cyclic []*HierarchyItem
	for _, node := range nodes {
		if !reachable[node] && onParentCycle(node, parentOf, len(nodes)) {
			cyclic = append(cyclic, node)
		}
	}
	promoted := make([]*HierarchyItem, 0, len(cyclic))
	for _, node := range cyclic {
		parent := parentOf[node]
		parent.Children = removeChild(parent.Children, node)
		delete(parentOf, node)
		promoted = append(promoted, node)
	}

	// Keep roots in input order.
	isRoot := make(map[*HierarchyItem]bool, len(roots)+len(promoted))
	for _, r := range roots {
		isRoot[r] = true
	}
	for _, r := range promoted {
		isRoot[r] = true
	}
	ordered := make([]*HierarchyItem, 0, len(isRoot))
	for _, node := range nodes {
		if isRoot[node] {
			ordered = append(ordered, node)
		}
	}
	return ordered
}

func firstParent(relations []Relation) (string, bool) {
	for _, r := range relations {
		if r.Type == RelationParent {
			return r.URL, true
		}
	}
	return "", false
}

func markReachable(roots []*HierarchyItem) map[*HierarchyItem]bool {
	seen := make(map[*HierarchyItem]bool)
	stack := append([]*HierarchyItem(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, n.Children...)
	}
	return seen
}

func onParentCycle(node *HierarchyItem, parentOf map[*HierarchyItem]*HierarchyItem, limit int) bool {
	p := parentOf[node]
	for i := 0; p != nil && i < limit; i++ {
		if p == node {
			return true
		}
		p = parentOf[p]
	}
	return false
}

func removeChild(children []*HierarchyItem, child *HierarchyItem) []*HierarchyItem {
	out := children[:0]
	for _, c := range children {
		if c != child {
			out = append(out, c)
		}
	}
	return out
}
