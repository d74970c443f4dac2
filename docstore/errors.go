package docstore

import "errors"

var (
	// ErrNoSuchEntity is returned when no record exists at a key.
	ErrNoSuchEntity = errors.New("docstore: no such entity")

	// ErrAlreadyExists is returned when inserting at an occupied key.
	ErrAlreadyExists = errors.New("docstore: entity already exists")

	// ErrInvalidQuery is returned for queries the store cannot serve.
	ErrInvalidQuery = errors.New("docstore: invalid query")

	// ErrIncompleteKey is returned when a mutation or lookup has a zero key.
	ErrIncompleteKey = errors.New("docstore: incomplete key")
)
