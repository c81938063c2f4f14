package devops

// RelationType is the closed set of relation kinds the hierarchy cares about.
type RelationType string

const (
	RelationParent RelationType = "parent"
	RelationChild  RelationType = "child"
)

// Relation points at another work item by its URL.
type Relation struct {
	Type RelationType
	URL  string
}

// WorkItem is one work item as returned by the batch detail endpoint. URL is
// the cross-reference key used by relations, not ID.
type WorkItem struct {
	ID        int
	URL       string
	State     string
	Type      string
	Title     string
	Relations []Relation
}

// RawRelation is a relation record exactly as the service sends it.
type RawRelation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// rawWorkItem mirrors the JSON shape of a work item with $expand=relations.
type rawWorkItem struct {
	ID        int            `json:"id"`
	Rev       int            `json:"rev"`
	URL       string         `json:"url"`
	Fields    map[string]any `json:"fields"`
	Relations []RawRelation  `json:"relations"`
}

const (
	fieldState        = "System.State"
	fieldWorkItemType = "System.WorkItemType"
	fieldTitle        = "System.Title"
)

func (r rawWorkItem) toWorkItem() WorkItem {
	return WorkItem{
		ID:        r.ID,
		URL:       r.URL,
		State:     stringField(r.Fields, fieldState),
		Type:      stringField(r.Fields, fieldWorkItemType),
		Title:     stringField(r.Fields, fieldTitle),
		Relations: MapRelations(r.Relations),
	}
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
