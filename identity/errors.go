package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Normalised error codes.
const (
	CodeUserExists          = "user_exists"
	CodeInvalidPassword     = "invalid_password"
	CodeInvalidUserPassword = "invalid_user_password"
)

// Error is a failed identity provider call. Code is machine readable and
// normalised across the management and authentication APIs.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity: %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("identity: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = &Error{Code: CodeUserExists}

	// ErrInvalidPassword is returned when the password fails the connection's policy.
	ErrInvalidPassword = &Error{Code: CodeInvalidPassword}

	// ErrInvalidUserPassword is returned when credentials are rejected.
	ErrInvalidUserPassword = &Error{Code: CodeInvalidUserPassword}
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// apiError is the error body of both the management and authentication APIs.
type apiError struct {
	StatusCode       int    `json:"statusCode"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	ErrorCode        string `json:"errorCode"`
	Code             string `json:"code"`
}

// passwordErrors are message prefixes of password policy failures.
var passwordErrors = []string{
	"PasswordStrengthError",
	"PasswordDictionaryError",
	"PasswordHistoryError",
	"PasswordNoUserInfoError",
}

// normalize converts an API error body into an *Error.
func (a apiError) normalize(status int) *Error {
	msg := a.Message
	if msg == "" {
		msg = a.ErrorDescription
	}
	e := &Error{StatusCode: status, Message: msg}

	switch {
	case a.Code == CodeUserExists || a.ErrorCode == CodeUserExists || status == 409:
		e.Code = CodeUserExists
	case a.Code == CodeInvalidPassword || a.ErrorCode == CodeInvalidPassword || hasAnyPrefix(msg, passwordErrors):
		e.Code = CodeInvalidPassword
	case a.Error == CodeInvalidUserPassword || a.Error == "invalid_grant":
		e.Code = CodeInvalidUserPassword
	case a.ErrorCode != "":
		e.Code = a.ErrorCode
	case a.Error != "":
		e.Code = a.Error
	default:
		e.Code = "unknown"
	}
	return e
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
