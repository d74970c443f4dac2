// Package docstore provides a hierarchical key-value document store.
//
// Records are addressed by a [Key]: a path of (kind, id) pairs where every
// element but the last names an ancestor. A membership of customer c1 lives at
//
//	Customer/c1/Membership/m1
//
// and queries can be scoped to everything below an ancestor:
//
//	q := docstore.NewQuery("Membership").
//	    HasAncestor(docstore.NewKey("Customer", "c1")).
//	    Filter("supplier_id", docstore.Equal, "s1").
//	    Order("_metadata_created")
//
// # Query Rules
//
// Inequality filters may target only one property, and when a query has sort
// orders the first one must be that property. [Query.Validate] rejects other
// shapes with [ErrInvalidQuery]. Records lacking a filtered property never
// match.
//
// # Backends
//
//   - [Dynamo] - single DynamoDB table; an entity group shares a partition
//   - [Memory] - in-process, for tests and local development
//
// # Errors
//
//   - [ErrNoSuchEntity] - no record at the key (Get, Save with Update)
//   - [ErrAlreadyExists] - key occupied (Save with Insert)
//   - [ErrInvalidQuery] - query shape not servable
//   - [ErrIncompleteKey] - zero key
package docstore
