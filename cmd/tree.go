package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-workitems/pkg/service"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
	"github.com/mattsolo1/grove-workitems/pkg/workitems"
)

// treeEntry is the JSON form of a node.
type treeEntry struct {
	Kind        string       `json:"kind"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Tooltip     string       `json:"tooltip,omitempty"`
	Expandable  bool         `json:"expandable"`
	Children    []*treeEntry `json:"children,omitempty"`
}

func NewTreeCmd(svc **service.Service) *cobra.Command {
	var (
		depth    int
		jsonOut  bool
		noGlyphs bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print sources, projects and open work items as a tree",
		Long: `Print every configured source with its projects and their open work items.

Examples:
  wi tree              # Everything
  wi tree --depth 2    # Sources and projects only
  wi tree --json       # Machine-readable output`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s := *svc

			if err := s.Refresh(ctx); err != nil {
				return err
			}
			if len(s.Tree().Roots()) == 0 {
				fmt.Fprintln(os.Stderr, "No sources configured. Add one with 'wi source add'.")
				return nil
			}

			if jsonOut {
				entries, err := collectTree(ctx, s.Tree(), depth)
				if err != nil {
					return err
				}
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}
			return printTree(ctx, os.Stdout, s.Tree(), depth, !noGlyphs)
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Number of levels to print (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noGlyphs, "no-glyphs", false, "Do not print expand markers")

	return cmd
}

func printTree(ctx context.Context, w io.Writer, p *tree.Provider, depth int, glyphs bool) error {
	entries, err := collectTree(ctx, p, depth)
	if err != nil {
		return err
	}
	return printEntries(w, entries, 0, glyphs)
}

func printEntries(w io.Writer, entries []*treeEntry, level int, glyphs bool) error {
	for _, e := range entries {
		line := strings.Repeat("  ", level)
		if glyphs {
			line += glyph(e) + " "
		}
		line += workitems.Describe(tree.DisplayRecord{Title: e.Title, Description: e.Description})
		if e.Kind == workitems.KindWorkItem && e.Tooltip != "" {
			line += " [" + e.Tooltip + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if err := printEntries(w, e.Children, level+1, glyphs); err != nil {
			return err
		}
	}
	return nil
}

func glyph(e *treeEntry) string {
	if !e.Expandable {
		return "•"
	}
	return "▸"
}

// collectTree walks the tree into entries. Expandable is read once the walk
// is over, so a node the walk loaded as empty is a leaf.
func collectTree(ctx context.Context, p *tree.Provider, depth int) ([]*treeEntry, error) {
	var roots []*treeEntry
	var stack []*treeEntry
	visited := make(map[*treeEntry]*tree.Node)

	err := tree.Walk(ctx, p, depth, func(level int, n *tree.Node) error {
		record := p.DisplayRecord(n)
		entry := &treeEntry{
			Kind:        record.Kind,
			Title:       record.Title,
			Description: record.Description,
			Tooltip:     record.Tooltip,
		}
		visited[entry] = n
		stack = stack[:level]
		if level == 0 {
			roots = append(roots, entry)
		} else {
			parent := stack[level-1]
			parent.Children = append(parent.Children, entry)
		}
		stack = append(stack, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for entry, n := range visited {
		entry.Expandable = p.DisplayRecord(n).State == tree.Collapsed
	}
	if roots == nil {
		roots = []*treeEntry{}
	}
	return roots, nil
}
