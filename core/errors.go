package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a referenced entity that does not exist
// (or that the requester is not allowed to know about).
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// LockedError reports a mutation attempted on an entity in a terminal state.
type LockedError struct {
	Message string
}

func NewLockedError(msg string) error {
	return &LockedError{Message: msg}
}

func (err LockedError) Error() string {
	return err.Message
}

// PermissionError reports a failed role check.
type PermissionError struct {
	Action string
	Role   string
}

func NewPermissionError(action, role string) error {
	return &PermissionError{Action: action, Role: role}
}

func (err PermissionError) Error() string {
	if err.Role == "" {
		return "permission denied"
	}
	return fmt.Sprintf("permission denied: %s cannot %s", err.Role, err.Action)
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsLocked(err error) bool {
	_, ok := errors.Cause(err).(*LockedError)
	return ok
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsPermission(err error) bool {
	_, ok := errors.Cause(err).(*PermissionError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
