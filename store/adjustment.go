package store

import (
	"context"
	"time"

	"github.com/bigwednesday/customer-api/docstore"
)

// AdjustmentKind is the document store kind of product price adjustments.
const AdjustmentKind = "ProductPriceAdjustment"

// AdjustmentType says how Amount modifies a product price.
type AdjustmentType string

const (
	// ValueOverride replaces the price with Amount.
	ValueOverride AdjustmentType = "value_override"
	// ValueAdjustment adds Amount to the price.
	ValueAdjustment AdjustmentType = "value_adjustment"
	// PercentageAdjustment scales the price by Amount percent.
	PercentageAdjustment AdjustmentType = "percentage_adjustment"
)

// Valid reports whether t is a known adjustment type.
func (t AdjustmentType) Valid() bool {
	switch t {
	case ValueOverride, ValueAdjustment, PercentageAdjustment:
		return true
	}
	return false
}

// AdjustmentParams are the attributes an adjustment is created or replaced with.
type AdjustmentParams struct {
	LinkedProductID string         `json:"linked_product_id" validate:"required"`
	Type            AdjustmentType `json:"type" validate:"required,oneof=value_override value_adjustment percentage_adjustment"`
	Amount          float64        `json:"amount" validate:"required"`
	StartDate       time.Time      `json:"start_date" validate:"required"`
	EndDate         *time.Time     `json:"end_date,omitempty"`
}

// Adjustment is a time-bounded price adjustment of one product.
type Adjustment struct {
	ID string `json:"id"`
	// MembershipID is set on results spanning several memberships.
	MembershipID    string         `json:"membership_id,omitempty"`
	LinkedProductID string         `json:"linked_product_id"`
	Type            AdjustmentType `json:"type"`
	Amount          float64        `json:"amount"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         *time.Time     `json:"end_date,omitempty"`
	Metadata        Metadata       `json:"_metadata"`
}

// ActiveOn reports whether the adjustment applies at date. Both bounds are
// inclusive and a missing end date never expires.
func (a *Adjustment) ActiveOn(date time.Time) bool {
	if a.StartDate.After(date) {
		return false
	}
	return a.EndDate == nil || !a.EndDate.Before(date)
}

// AdjustmentKey returns the key of adjustment aid.
func AdjustmentKey(cid, mid, aid string) docstore.Key {
	return MembershipKey(cid, mid).Child(AdjustmentKind, aid)
}

// AdjustmentStore manages product price adjustments below their membership.
type AdjustmentStore struct {
	entities *EntityStore
}

// NewAdjustmentStore creates an AdjustmentStore.
func NewAdjustmentStore(entities *EntityStore) *AdjustmentStore {
	return &AdjustmentStore{entities: entities}
}

// Create adds an adjustment to membership mid of customer cid.
func (s *AdjustmentStore) Create(ctx context.Context, cid, mid string, params AdjustmentParams) (*Adjustment, error) {
	props := params.properties()
	props[updatedProperty] = s.entities.Now()

	entity, err := s.entities.Create(ctx, AdjustmentKey(cid, mid, NewID()), props)
	if err != nil {
		return nil, err
	}
	return adjustmentFromEntity(entity), nil
}

// Get returns adjustment aid.
func (s *AdjustmentStore) Get(ctx context.Context, cid, mid, aid string) (*Adjustment, error) {
	entity, err := s.entities.Get(ctx, AdjustmentKey(cid, mid, aid))
	if err != nil {
		return nil, err
	}
	return adjustmentFromEntity(entity), nil
}

// Find lists the adjustments of membership mid in creation order. A non-empty
// linkedProductID keeps only adjustments of that product.
func (s *AdjustmentStore) Find(ctx context.Context, cid, mid, linkedProductID string) ([]*Adjustment, error) {
	q := docstore.NewQuery(AdjustmentKind).HasAncestor(MembershipKey(cid, mid))
	if linkedProductID != "" {
		q = q.Filter("linked_product_id", docstore.Equal, linkedProductID)
	}
	q = q.Order(createdProperty)

	entities, err := s.entities.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	adjustments := make([]*Adjustment, len(entities))
	for i, e := range entities {
		adjustments[i] = adjustmentFromEntity(e)
	}
	return adjustments, nil
}

// Update replaces the attributes of adjustment aid, keeping its creation
// time and refreshing its update time.
func (s *AdjustmentStore) Update(ctx context.Context, cid, mid, aid string, params AdjustmentParams) (*Adjustment, error) {
	key := AdjustmentKey(cid, mid, aid)
	raw, err := s.entities.GetRaw(ctx, key)
	if err != nil {
		return nil, err
	}

	props := params.properties()
	carryInternal(raw, props)
	props[updatedProperty] = s.entities.Now()

	entity, err := s.entities.Update(ctx, key, props)
	if err != nil {
		return nil, err
	}
	return adjustmentFromEntity(entity), nil
}

// Delete removes adjustment aid. A missing adjustment fails with
// KindEntityNotFound.
func (s *AdjustmentStore) Delete(ctx context.Context, cid, mid, aid string) error {
	key := AdjustmentKey(cid, mid, aid)
	if _, err := s.entities.GetRaw(ctx, key); err != nil {
		return err
	}
	return s.entities.Delete(ctx, key)
}

// FindActiveForCustomer returns the adjustments of every membership of
// customer cid that apply at date, each annotated with its membership id.
//
// The store accepts an inequality on one property only, so start_date is
// filtered by the query and end_date afterwards.
func (s *AdjustmentStore) FindActiveForCustomer(ctx context.Context, cid string, date time.Time) ([]*Adjustment, error) {
	q := docstore.NewQuery(AdjustmentKind).
		HasAncestor(CustomerKey(cid)).
		Filter("start_date", docstore.LessThanOrEqual, date).
		Order("start_date").
		Order(createdProperty)

	entities, err := s.entities.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}

	active := make([]*Adjustment, 0, len(entities))
	for _, e := range entities {
		a := adjustmentFromEntity(e)
		if !a.ActiveOn(date) {
			continue
		}
		a.MembershipID = e.Key.IDOf(MembershipKind)
		active = append(active, a)
	}
	return active, nil
}

func (p AdjustmentParams) properties() docstore.Properties {
	props := docstore.Properties{
		"linked_product_id": p.LinkedProductID,
		"type":              string(p.Type),
		"amount":            p.Amount,
		"start_date":        p.StartDate.UTC(),
	}
	if p.EndDate != nil {
		props["end_date"] = p.EndDate.UTC()
	}
	return props
}

func adjustmentFromEntity(e *Entity) *Adjustment {
	a := &Adjustment{
		ID:              e.ID,
		LinkedProductID: stringAttr(e.Attributes, "linked_product_id"),
		Type:            AdjustmentType(stringAttr(e.Attributes, "type")),
		Metadata:        e.Metadata,
	}
	a.Amount, _ = e.Attributes["amount"].(float64)
	if t, ok := e.Attributes["start_date"].(time.Time); ok {
		a.StartDate = t
	}
	if t, ok := e.Attributes["end_date"].(time.Time); ok {
		a.EndDate = &t
	}
	return a
}
