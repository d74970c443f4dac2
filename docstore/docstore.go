package docstore

import "context"

// Method selects the write semantics of a Save.
type Method string

const (
	// Insert fails with ErrAlreadyExists when the key is occupied.
	Insert Method = "insert"
	// Update fails with ErrNoSuchEntity when the key is free.
	Update Method = "update"
)

// Record is a stored key/data envelope.
type Record struct {
	Key        Key
	Properties Properties
}

// Mutation describes a single Save.
type Mutation struct {
	Key        Key
	Method     Method
	Properties Properties
}

// Store is a hierarchical key-value document store.
type Store interface {
	// Get returns the record at key or ErrNoSuchEntity.
	Get(ctx context.Context, key Key) (*Record, error)

	// Save writes a record with insert or update semantics.
	Save(ctx context.Context, m Mutation) error

	// Delete removes the record at key. Deleting a free key is not an error.
	Delete(ctx context.Context, key Key) error

	// RunQuery returns every record matching q, in q's order.
	RunQuery(ctx context.Context, q *Query) ([]*Record, error)
}
