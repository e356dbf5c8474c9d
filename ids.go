package aclkit

import "github.com/google/uuid"

// NewID returns a new random identifier for any aclkit entity.
func NewID() string {
	return uuid.NewString()
}

// IsID reports whether s is a well-formed identifier.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// validateID returns ErrInvalidID context-wrapped with the field name.
func validateID(id, field string) error {
	if !IsID(id) {
		return NewError(ErrInvalidID, "the "+field+" should be a valid uuid")
	}
	return nil
}
