package devops

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int, parent int) WorkItem {
	wi := WorkItem{
		ID:    id,
		URL:   fmt.Sprintf("https://dev.azure.com/contoso/_apis/wit/workItems/%d", id),
		Title: fmt.Sprintf("item %d", id),
	}
	if parent != 0 {
		wi.Relations = []Relation{{
			Type: RelationParent,
			URL:  fmt.Sprintf("https://dev.azure.com/contoso/_apis/wit/workItems/%d", parent),
		}}
	}
	return wi
}

// at builds an item with an explicit address and optional parent address.
func at(id int, url, parentURL string) WorkItem {
	wi := WorkItem{ID: id, URL: url, Title: fmt.Sprintf("item %d", id)}
	if parentURL != "" {
		wi.Relations = []Relation{{Type: RelationParent, URL: parentURL}}
	}
	return wi
}

// shape renders a forest as "id(children...)" for compact comparison.
func shape(items []*HierarchyItem) string {
	s := ""
	for i, it := range items {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprint(it.ID)
		if len(it.Children) > 0 {
			s += "(" + shape(it.Children) + ")"
		}
	}
	return s
}

func count(items []*HierarchyItem) int {
	n := 0
	for _, it := range items {
		n += 1 + count(it.Children)
	}
	return n
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name  string
		items []WorkItem
		want  string
	}{
		{
			name:  "empty",
			items: nil,
			want:  "",
		},
		{
			name:  "flat",
			items: []WorkItem{item(1, 0), item(2, 0)},
			want:  "1 2",
		},
		{
			name: "epic feature story",
			items: []WorkItem{
				item(3, 2),
				item(1, 0),
				item(2, 1),
				item(4, 1),
				item(5, 2),
			},
			want: "1(2(3 5) 4)",
		},
		{
			name:  "parent outside the input is promoted",
			items: []WorkItem{item(1, 0), item(2, 99), item(3, 2)},
			want:  "1 2(3)",
		},
		{
			name:  "unresolved parent address",
			items: []WorkItem{at(1, "/1", ""), at(2, "/2", "/1"), at(3, "/3", "/9")},
			want:  "1(2) 3",
		},
		{
			name:  "duplicate address resolves to the last item",
			items: []WorkItem{at(1, "/u", ""), at(2, "/u", ""), at(3, "/3", "/u")},
			want:  "1 2(3)",
		},
		{
			name:  "two node cycle",
			items: []WorkItem{item(1, 2), item(2, 1), item(3, 0)},
			want:  "1 2 3",
		},
		{
			name:  "cycle keeps hanging subtrees",
			items: []WorkItem{item(1, 3), item(2, 1), item(3, 2), item(4, 2)},
			want:  "1 2(4) 3",
		},
		{
			name:  "self parent",
			items: []WorkItem{item(1, 1), item(2, 1)},
			want:  "1(2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots := Assemble(tt.items)
			require.NotNil(t, roots)
			assert.Equal(t, tt.want, shape(roots))
			assert.Equal(t, len(tt.items), count(roots), "every item appears exactly once")
		})
	}
}

func TestAssembleFirstParentWins(t *testing.T) {
	child := item(3, 1)
	child.Relations = append(child.Relations, Relation{Type: RelationParent, URL: item(2, 0).URL})

	roots := Assemble([]WorkItem{item(1, 0), item(2, 0), child})
	assert.Equal(t, "1(3) 2", shape(roots))
}

func TestAssembleIgnoresChildRelations(t *testing.T) {
	parent := item(1, 0)
	parent.Relations = []Relation{{Type: RelationChild, URL: item(2, 0).URL}}

	// Only the child's own parent link attaches it.
	roots := Assemble([]WorkItem{parent, item(2, 0)})
	assert.Equal(t, "1 2", shape(roots))
}

func TestAssembleLeavesHaveEmptyChildren(t *testing.T) {
	roots := Assemble([]WorkItem{item(1, 0)})
	require.Len(t, roots, 1)
	assert.NotNil(t, roots[0].Children)
	assert.Empty(t, roots[0].Children)
}
