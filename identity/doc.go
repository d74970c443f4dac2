// Package identity is a client for the Auth0 management and authentication
// APIs, covering the user lifecycle calls the customer stores make.
//
// Failed calls return *Error with a normalised Code; use errors.Is with
// [ErrUserExists], [ErrInvalidPassword] or [ErrInvalidUserPassword] to test
// for the recognised cases.
package identity
