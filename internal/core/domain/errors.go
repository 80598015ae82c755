package domain

import (
	"errors"
	"strings"
)

type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindRule
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindRule:
		return "rule"
	default:
		return "unexpected"
	}
}

type FieldError struct {
	Field   string
	Message string
}

// Error is the error type crossing the core boundary. Code identifies the
// failure for errors.Is, Kind decides how transports report it.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}

	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code != "" && t.Code == e.Code
}

var (
	ErrInvalidCredentials    = &Error{Kind: KindUnauthorized, Code: "invalid_credentials", Message: "invalid username or password"}
	ErrAccountDeactivated    = &Error{Kind: KindUnauthorized, Code: "account_deactivated", Message: "account is deactivated"}
	ErrInvalidOrExpiredToken = &Error{Kind: KindUnauthorized, Code: "invalid_or_expired_token", Message: "refresh token is invalid or expired"}
	ErrDuplicateAccount      = &Error{Kind: KindConflict, Code: "duplicate_account", Message: "username or email already registered"}
	ErrAccountNotFound       = &Error{Kind: KindNotFound, Code: "account_not_found", Message: "account not found"}
	ErrTaskNotFound          = &Error{Kind: KindNotFound, Code: "task_not_found", Message: "task not found"}
	ErrSessionNotOwned       = &Error{Kind: KindForbidden, Code: "session_not_owned", Message: "session does not belong to the current account"}
	ErrTaskAlreadyCompleted  = &Error{Kind: KindRule, Code: "task_already_completed", Message: "task is already completed"}
	ErrTaskNotCompleted      = &Error{Kind: KindRule, Code: "task_not_completed", Message: "task is not completed"}
)

func NewValidationError(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_failed",
		Message: "validation failed",
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// ValidationErrors collects field errors and returns nil when none were added.
type ValidationErrors []FieldError

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}

	return &Error{
		Kind:    KindValidation,
		Code:    "validation_failed",
		Message: "validation failed",
		Fields:  v,
	}
}

// AsValidation turns a rule violation into a validation error on field.
// Any other error is returned untouched.
func AsValidation(err error, field string) error {
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindRule {
		return err
	}

	return &Error{
		Kind:    KindValidation,
		Code:    de.Code,
		Message: "validation failed",
		Fields:  []FieldError{{Field: field, Message: de.Message}},
		Err:     de,
	}
}

func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	return KindUnexpected
}
