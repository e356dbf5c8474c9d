package aclkit

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for aclkit operations.
var (
	// ErrInvalidID is returned when an identifier is not a well-formed UUID.
	ErrInvalidID = errors.New("aclkit: invalid identifier")

	// ErrInvalidRole is returned for an unknown role name.
	ErrInvalidRole = errors.New("aclkit: invalid role")

	// ErrInvalidAro is returned for an unknown subject kind.
	ErrInvalidAro = errors.New("aclkit: invalid subject kind")

	// ErrInvalidPermissionType is returned for a value outside {1, 7, 15}.
	ErrInvalidPermissionType = errors.New("aclkit: invalid permission type")

	// ErrNotFound is returned when a referenced entity does not exist or is
	// already a tombstone. It is also returned where a permission check
	// failed, so that callers cannot probe for existence.
	ErrNotFound = errors.New("aclkit: not found")

	// ErrAlreadyExists is returned on a uniqueness violation, such as a
	// second permission row for the same (subject, resource) pair.
	ErrAlreadyExists = errors.New("aclkit: already exists")

	// ErrLastOwner is returned when a mutation would leave a live resource
	// without any owner.
	ErrLastOwner = errors.New("aclkit: cannot remove the last owner")

	// ErrLastManager is returned when a mutation would leave a non-empty
	// group without any manager.
	ErrLastManager = errors.New("aclkit: cannot remove the last group manager")

	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("aclkit: delete validation failed")

	// ErrInternal is returned when persistence fails after validation
	// passed. It is fatal for the operation and must not be retried: it
	// signals that the all-or-nothing contract of a cascade could not be
	// guaranteed.
	ErrInternal = errors.New("aclkit: internal error")
)

// RuleTag identifies a delete-time integrity rule.
type RuleTag string

// Tags carried by ValidationError when SoftDeleteUser is vetoed.
const (
	RuleSoleOwnerOfSharedResource              RuleTag = "soleOwnerOfSharedResource"
	RuleSoleManagerOfNonEmptyGroup             RuleTag = "soleManagerOfNonEmptyGroup"
	RuleSoleManagerOfGroupOwningSharedResource RuleTag = "soleManagerOfGroupOwningSharedResource"
)

// ValidationError reports which delete rules vetoed an operation. All
// failing rules are aggregated; no partial mutation occurred.
type ValidationError struct {
	UserID string
	Tags   []RuleTag
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	tags := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = string(t)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(tags, ", "))
}

// Unwrap returns ErrValidation for errors.Is.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Has reports whether a specific rule is among the failed ones.
func (e *ValidationError) Has(tag RuleTag) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	UserID     string // User involved (if applicable)
	GroupID    string // Group involved (if applicable)
	ResourceID string // Resource involved (if applicable)
	ActorID    string // Actor who triggered the error (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{Err: err, Message: message}
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithGroup adds group information to the error.
func (e *Error) WithGroup(groupID string) *Error {
	e.GroupID = groupID
	return e
}

// WithResource adds resource information to the error.
func (e *Error) WithResource(resourceID string) *Error {
	e.ResourceID = resourceID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// IsNotFound checks if an error reports a missing or tombstoned entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidID checks if an error is due to a malformed identifier.
func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}

// IsValidationFailure checks if an error is a delete-rule veto.
func IsValidationFailure(err error) bool {
	return errors.Is(err, ErrValidation)
}

// AsValidationError extracts the ValidationError from an error chain, or
// returns nil.
func AsValidationError(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}
