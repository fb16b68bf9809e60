package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random account identifier.
func GenerateID() string {
	return uuid.NewString()
}

// ValidateUserID reports whether id is a well-formed account identifier.
func ValidateUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
