package devops

const (
	relHierarchyForward = "System.LinkTypes.Hierarchy-Forward"
	relHierarchyReverse = "System.LinkTypes.Hierarchy-Reverse"
)

// MapRelations keeps only hierarchy relations. A nil input (the service omits
// the field for items without links) maps to an empty slice; every other
// relation kind is dropped.
func MapRelations(raw []RawRelation) []Relation {
	relations := make([]Relation, 0, len(raw))
	for _, r := range raw {
		var t RelationType
		switch r.Rel {
		case relHierarchyForward:
			t = RelationChild
		case relHierarchyReverse:
			t = RelationParent
		default:
			continue
		}
		relations = append(relations, Relation{Type: t, URL: r.URL})
	}
	return relations
}
