package store

import (
	"context"

	"github.com/bigwednesday/customer-api/docstore"
)

// MembershipKind is the document store kind of memberships.
const MembershipKind = "Membership"

// MembershipParams are the attributes a membership is created or replaced with.
type MembershipParams struct {
	SupplierID             string `json:"supplier_id" validate:"required"`
	MembershipNumber       string `json:"membership_number" validate:"required"`
	PriceAdjustmentGroupID string `json:"price_adjustment_group_id,omitempty"`
}

// Membership is a customer's membership with a supplier.
type Membership struct {
	ID                     string   `json:"id"`
	SupplierID             string   `json:"supplier_id"`
	MembershipNumber       string   `json:"membership_number"`
	PriceAdjustmentGroupID string   `json:"price_adjustment_group_id,omitempty"`
	Metadata               Metadata `json:"_metadata"`
}

// MembershipKey returns the key of membership mid of customer cid.
func MembershipKey(cid, mid string) docstore.Key {
	return CustomerKey(cid).Child(MembershipKind, mid)
}

// MembershipStore manages memberships below their customer. It does not
// check that the customer exists.
type MembershipStore struct {
	entities *EntityStore
}

// NewMembershipStore creates a MembershipStore.
func NewMembershipStore(entities *EntityStore) *MembershipStore {
	return &MembershipStore{entities: entities}
}

// Create adds a membership to customer cid.
func (s *MembershipStore) Create(ctx context.Context, cid string, params MembershipParams) (*Membership, error) {
	entity, err := s.entities.Create(ctx, MembershipKey(cid, NewID()), params.properties())
	if err != nil {
		return nil, err
	}
	return membershipFromEntity(entity), nil
}

// Find lists the memberships of customer cid in creation order. A non-empty
// supplierID keeps only memberships with that supplier.
func (s *MembershipStore) Find(ctx context.Context, cid, supplierID string) ([]*Membership, error) {
	q := docstore.NewQuery(MembershipKind).HasAncestor(CustomerKey(cid))
	if supplierID != "" {
		q = q.Filter("supplier_id", docstore.Equal, supplierID)
	}
	q = q.Order(createdProperty)

	entities, err := s.entities.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	memberships := make([]*Membership, len(entities))
	for i, e := range entities {
		memberships[i] = membershipFromEntity(e)
	}
	return memberships, nil
}

// Get returns membership mid of customer cid.
func (s *MembershipStore) Get(ctx context.Context, cid, mid string) (*Membership, error) {
	entity, err := s.entities.Get(ctx, MembershipKey(cid, mid))
	if err != nil {
		return nil, err
	}
	return membershipFromEntity(entity), nil
}

// Update replaces the attributes of membership mid, keeping its metadata.
func (s *MembershipStore) Update(ctx context.Context, cid, mid string, params MembershipParams) (*Membership, error) {
	key := MembershipKey(cid, mid)
	raw, err := s.entities.GetRaw(ctx, key)
	if err != nil {
		return nil, err
	}

	props := params.properties()
	carryInternal(raw, props)

	entity, err := s.entities.Update(ctx, key, props)
	if err != nil {
		return nil, err
	}
	return membershipFromEntity(entity), nil
}

// Delete removes membership mid. A missing membership fails with
// KindEntityNotFound.
func (s *MembershipStore) Delete(ctx context.Context, cid, mid string) error {
	key := MembershipKey(cid, mid)
	if _, err := s.entities.GetRaw(ctx, key); err != nil {
		return err
	}
	return s.entities.Delete(ctx, key)
}

func (p MembershipParams) properties() docstore.Properties {
	props := docstore.Properties{
		"supplier_id":       p.SupplierID,
		"membership_number": p.MembershipNumber,
	}
	setString(props, "price_adjustment_group_id", p.PriceAdjustmentGroupID)
	return props
}

func membershipFromEntity(e *Entity) *Membership {
	return &Membership{
		ID:                     e.ID,
		SupplierID:             stringAttr(e.Attributes, "supplier_id"),
		MembershipNumber:       stringAttr(e.Attributes, "membership_number"),
		PriceAdjustmentGroupID: stringAttr(e.Attributes, "price_adjustment_group_id"),
		Metadata:               Metadata{Created: e.Metadata.Created},
	}
}
