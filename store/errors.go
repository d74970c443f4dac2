package store

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures the stores report.
type ErrorKind int

const (
	// KindUnknown is reported by KindOf for errors that are not *Error.
	KindUnknown ErrorKind = iota

	// KindEntityNotFound means no entity exists at the requested key.
	KindEntityNotFound

	// KindCustomerExists means the identity provider already has the email.
	KindCustomerExists

	// KindInvalidPassword means the identity provider rejected the password.
	KindInvalidPassword

	// KindAuthenticationFailed means the email/password pair was rejected.
	KindAuthenticationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindEntityNotFound:
		return "entity not found"
	case KindCustomerExists:
		return "customer exists"
	case KindInvalidPassword:
		return "invalid password"
	case KindAuthenticationFailed:
		return "authentication failed"
	}
	return "unknown"
}

// Error is a store failure of a known kind. Two *Error values match under
// errors.Is when their kinds are equal, so the sentinels below can be used
// as targets regardless of message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	// ErrEntityNotFound matches not-found failures for every entity kind.
	ErrEntityNotFound = &Error{Kind: KindEntityNotFound}

	// ErrCustomerExists matches duplicate customer failures.
	ErrCustomerExists = &Error{Kind: KindCustomerExists}

	// ErrInvalidPassword matches password policy failures.
	ErrInvalidPassword = &Error{Kind: KindInvalidPassword}

	// ErrAuthenticationFailed matches rejected credentials.
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// notFound builds the not-found error for an entity of kind with id.
func notFound(kind, id string, cause error) *Error {
	return &Error{
		Kind:    KindEntityNotFound,
		Message: fmt.Sprintf("%s %q not found.", kind, id),
		Err:     cause,
	}
}
