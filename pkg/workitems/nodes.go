// Package workitems builds the source, project and work item nodes of the tree.
package workitems

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/mattsolo1/grove-workitems/pkg/icons"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Node kinds.
const (
	KindSource   = "azureDevOpsSource"
	KindProject  = "azureDevOpsProject"
	KindWorkItem = "azureDevOpsWorkItem"
)

// iconFetchLimit bounds concurrent icon downloads per project.
const iconFetchLimit = 4

// Remote is the part of the Azure DevOps API the nodes need.
type Remote interface {
	icons.Fetcher
	ListProjects(ctx context.Context, source devops.Source) ([]string, error)
	GetHierarchy(ctx context.Context, source devops.Source, project string) ([]*devops.HierarchyItem, error)
}

// Builder creates nodes that share one remote and one icon cache.
type Builder struct {
	remote Remote
	icons  *icons.Cache
	logger *logrus.Entry
}

// NewBuilder creates a Builder. cache may be nil, in which case work items
// have no icons.
func NewBuilder(remote Remote, cache *icons.Cache, logger *logrus.Entry) *Builder {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Builder{remote: remote, icons: cache, logger: logger}
}

// Roots returns one source node per source, in the given order.
func (b *Builder) Roots(sources []devops.Source) []*tree.Node {
	roots := make([]*tree.Node, 0, len(sources))
	for _, s := range sources {
		roots = append(roots, b.SourceNode(s))
	}
	return roots
}

// SourceNode lists the projects of a source, alphabetically.
func (b *Builder) SourceNode(source devops.Source) *tree.Node {
	load := func(ctx context.Context) ([]*tree.Node, error) {
		projects, err := b.remote.ListProjects(ctx, source)
		if err != nil {
			return nil, err
		}
		sortProjects(projects)

		nodes := make([]*tree.Node, 0, len(projects))
		for _, p := range projects {
			nodes = append(nodes, b.ProjectNode(source, p))
		}
		return nodes, nil
	}

	icon := tree.Icon{Theme: string(source.Kind())}
	return tree.NewNode(KindSource, source.Name(), "", source.BaseURL().String(), load,
		tree.WithIcon(func() tree.Icon { return icon }))
}

// ProjectNode loads the open work items of a project as a forest.
func (b *Builder) ProjectNode(source devops.Source, project string) *tree.Node {
	load := func(ctx context.Context) ([]*tree.Node, error) {
		roots, err := b.remote.GetHierarchy(ctx, source, project)
		if err != nil {
			return nil, err
		}
		b.cacheIcons(ctx, source, project, roots)

		nodes := make([]*tree.Node, 0, len(roots))
		for _, r := range roots {
			nodes = append(nodes, b.WorkItemNode(project, r))
		}
		return nodes, nil
	}
	return tree.NewNode(KindProject, project, "", "", load)
}

// WorkItemNode wraps an assembled work item. Its children are known already.
func (b *Builder) WorkItemNode(project string, item *devops.HierarchyItem) *tree.Node {
	children := make([]*tree.Node, 0, len(item.Children))
	for _, c := range item.Children {
		children = append(children, b.WorkItemNode(project, c))
	}

	workItemType := item.Type
	return tree.NewNode(KindWorkItem, item.Title, strconv.Itoa(item.ID), item.State, nil,
		tree.WithChildren(children...),
		tree.WithIcon(func() tree.Icon {
			if b.icons == nil {
				return tree.Icon{}
			}
			uri, _ := b.icons.URI(project, workItemType)
			return tree.Icon{URI: uri}
		}))
}

// cacheIcons downloads the icons of every work item type in roots. Failures
// are logged and leave the affected items without an icon.
func (b *Builder) cacheIcons(ctx context.Context, source devops.Source, project string, roots []*devops.HierarchyItem) {
	if b.icons == nil {
		return
	}

	types := make(map[string]struct{})
	var walk func(items []*devops.HierarchyItem)
	walk = func(items []*devops.HierarchyItem) {
		for _, it := range items {
			if it.Type != "" {
				types[it.Type] = struct{}{}
			}
			walk(it.Children)
		}
	}
	walk(roots)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(iconFetchLimit)
	for t := range types {
		g.Go(func() error {
			if _, err := b.icons.EnsureCached(gctx, b.remote, source, project, t); err != nil {
				b.logger.WithFields(logrus.Fields{
					"project": project,
					"type":    t,
				}).WithError(err).Warn("Could not cache work item icon")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func sortProjects(projects []string) {
	collate.New(language.Und).SortStrings(projects)
}

// Describe renders a record as a single line, e.g. for printing.
func Describe(r tree.DisplayRecord) string {
	if r.Description == "" {
		return r.Title
	}
	return fmt.Sprintf("%s #%s", r.Title, r.Description)
}
