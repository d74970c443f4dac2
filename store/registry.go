package store

// Relationship says that entities of ChildKind are keyed below entities of
// ParentKind.
type Relationship struct {
	// ParentKind is the parent entity kind (e.g., "Customer").
	ParentKind string

	// ChildKind is the child entity kind (e.g., "Membership").
	ChildKind string
}

// Registry holds the known parent/child kind relationships. The cascade
// processor consults it to find what to delete below a removed entity.
type Registry struct {
	relationships []Relationship
	byParent      map[string][]Relationship
}

// NewRegistry returns a Registry with no relationships.
func NewRegistry() *Registry {
	return &Registry{byParent: make(map[string][]Relationship)}
}

// DefaultRegistry returns the relationships of the customer entity tree:
// Customer → Membership → ProductPriceAdjustment.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Relationship{ParentKind: CustomerKind, ChildKind: MembershipKind})
	r.Register(Relationship{ParentKind: MembershipKind, ChildKind: AdjustmentKind})
	return r
}

// Register records that rel.ChildKind is keyed below rel.ParentKind.
func (r *Registry) Register(rel Relationship) {
	r.relationships = append(r.relationships, rel)
	r.byParent[rel.ParentKind] = append(r.byParent[rel.ParentKind], rel)
}

// ChildrenOf returns the relationships whose parent is parentKind, in
// registration order.
func (r *Registry) ChildrenOf(parentKind string) []Relationship {
	return r.byParent[parentKind]
}

// AllRelationships returns every relationship in registration order.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}

// HasChildren reports whether any kind is registered below parentKind.
func (r *Registry) HasChildren(parentKind string) bool {
	return len(r.byParent[parentKind]) > 0
}

// DescendantKinds returns every kind reachable below parentKind, nearest
// first. Cycles are followed once.
func (r *Registry) DescendantKinds(parentKind string) []string {
	var kinds []string
	seen := map[string]bool{parentKind: true}
	queue := []string{parentKind}
	for len(queue) > 0 {
		kind := queue[0]
		queue = queue[1:]
		for _, rel := range r.byParent[kind] {
			if seen[rel.ChildKind] {
				continue
			}
			seen[rel.ChildKind] = true
			kinds = append(kinds, rel.ChildKind)
			queue = append(queue, rel.ChildKind)
		}
	}
	return kinds
}
