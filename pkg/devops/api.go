package devops

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultProfileURL is the organization-independent profile endpoint. It only
// accepts tokens scoped to all organizations.
const DefaultProfileURL = "https://app.vssps.visualstudio.com/_apis/profile/profiles/me?api-version=" + DefaultAPIVersion

// Profile is the signed-in user's profile.
type Profile struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Profile fetches the profile of the token owner from url, usually DefaultProfileURL.
func (c *Client) Profile(ctx context.Context, url string) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, url, &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// ListProjects returns the names of all projects in a source, in service order.
func (c *Client) ListProjects(ctx context.Context, source Source) ([]string, error) {
	u := NewURLBuilder(source).WithRoute("_apis/projects").String()

	var body struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("list projects of %s: %w", source.Name(), err)
	}

	names := make([]string, 0, len(body.Value))
	for _, p := range body.Value {
		names = append(names, p.Name)
	}
	return names, nil
}

// OpenWorkItemsQuery is the WIQL selecting every work item of project that is
// neither closed nor removed, most important and newest first.
func OpenWorkItemsQuery(project string) string {
	escaped := strings.ReplaceAll(project, "'", "''")
	return "Select [System.Id], [System.AssignedTo], [System.State], [System.Title], [System.Tags] " +
		"From WorkItems " +
		fmt.Sprintf("Where [System.TeamProject] = '%s' AND [State] <> 'Closed' AND [State] <> 'Removed' ", escaped) +
		"order by [Microsoft.VSTS.Common.Priority] asc, [System.CreatedDate] desc"
}

// QueryWorkItemIDs runs OpenWorkItemsQuery and returns the matching ids in
// query order.
func (c *Client) QueryWorkItemIDs(ctx context.Context, source Source, project string) ([]int, error) {
	u := NewURLBuilder(source).
		WithProject(project).
		WithRoute("_apis/wit/wiql").
		String()

	request := struct {
		Query string `json:"query"`
	}{Query: OpenWorkItemsQuery(project)}

	var body struct {
		WorkItems []struct {
			ID  int    `json:"id"`
			URL string `json:"url"`
		} `json:"workItems"`
	}
	if err := c.postJSON(ctx, u, request, &body); err != nil {
		return nil, fmt.Errorf("query work items of %s: %w", project, err)
	}

	ids := make([]int, 0, len(body.WorkItems))
	for _, wi := range body.WorkItems {
		ids = append(ids, wi.ID)
	}
	return ids, nil
}

// workItemsURLFactory builds the batch detail address for project.
func workItemsURLFactory(source Source, project string) BatchURLFactory {
	return func(ids []int) *URLBuilder {
		return NewURLBuilder(source).
			WithProject(project).
			WithRoute("_apis/wit/workitems").
			WithQueryParam(IDsParam, JoinIDs(ids)).
			WithQueryParam("$expand", "relations")
	}
}

// GetWorkItems fetches the details and hierarchy relations of ids, splitting
// the request as the service's batch limits require.
func (c *Client) GetWorkItems(ctx context.Context, source Source, project string, ids []int) ([]WorkItem, error) {
	items, err := FetchAll(ctx, ids, c.batch, workItemsURLFactory(source, project), c.fetchWorkItemBatch)
	if err != nil {
		return nil, fmt.Errorf("get work items of %s: %w", project, err)
	}

	c.logger.WithFields(logrus.Fields{
		"project": project,
		"ids":     len(ids),
		"items":   len(items),
	}).Debug("Fetched work items")

	return items, nil
}

func (c *Client) fetchWorkItemBatch(ctx context.Context, url string) ([]WorkItem, error) {
	var body struct {
		Count int           `json:"count"`
		Value []rawWorkItem `json:"value"`
	}
	if err := c.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}

	items := make([]WorkItem, 0, len(body.Value))
	for _, raw := range body.Value {
		items = append(items, raw.toWorkItem())
	}
	return items, nil
}

// GetHierarchy fetches the open work items of project and arranges them into
// a forest.
func (c *Client) GetHierarchy(ctx context.Context, source Source, project string) ([]*HierarchyItem, error) {
	ids, err := c.QueryWorkItemIDs(ctx, source, project)
	if err != nil {
		return nil, err
	}
	items, err := c.GetWorkItems(ctx, source, project, ids)
	if err != nil {
		return nil, err
	}
	return Assemble(items), nil
}

// GetWorkItemTypeIconURL returns the icon address of a work item type.
func (c *Client) GetWorkItemTypeIconURL(ctx context.Context, source Source, project, workItemType string) (string, error) {
	u := NewURLBuilder(source).
		WithProject(project).
		WithRoute("_apis/wit/workitemtypes").
		WithRoute(workItemType).
		String()

	var body struct {
		Name string `json:"name"`
		Icon struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"icon"`
	}
	if err := c.getJSON(ctx, u, &body); err != nil {
		return "", fmt.Errorf("get work item type %s: %w", workItemType, err)
	}
	if body.Icon.URL == "" {
		return "", fmt.Errorf("work item type %s has no icon", workItemType)
	}
	return body.Icon.URL, nil
}
