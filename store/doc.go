// Package store implements the customer account entities on top of a
// [docstore.Store] and an identity provider.
//
// Entities form a key hierarchy:
//
//	Customer/{cid}
//	Customer/{cid}/Membership/{mid}
//	Customer/{cid}/Membership/{mid}/ProductPriceAdjustment/{aid}
//
// [EntityStore] is the generic layer. It stamps _metadata_created on insert
// and strips _hidden and every _metadata* property from the public model.
// The raw record stays available through [EntityStore.GetRaw] so update
// flows can carry internal data forward; Update itself never merges.
//
// # Customers
//
// [CustomerStore.Create] writes to the identity provider first and the
// document store second. When the document write fails the provider user is
// deleted again and the document error is returned, whatever the outcome of
// the delete. A crash between the two steps can leave an orphaned provider
// user, never an orphaned document.
//
// # Errors
//
// Failures of a known kind are *Error values; test them with errors.Is:
//
//   - [ErrEntityNotFound] - no entity at the key
//   - [ErrCustomerExists] - email already registered with the provider
//   - [ErrInvalidPassword] - password rejected by the provider's policy
//   - [ErrAuthenticationFailed] - wrong email or password
//
// Other errors from the document store or identity provider are returned
// unmapped.
package store
