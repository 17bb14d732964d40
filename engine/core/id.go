package core

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID is an opaque, sortable, globally unique identifier backed by KSUID.
// It is used for every primary key the core mints directly (runs, workers,
// tags) as well as for the random suffix of human-readable friendly ids.
type ID string

// NewID generates a new random ID.
func NewID() (ID, error) {
	k, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return ID(k.String()), nil
}

// MustNewID generates a new random ID and panics on failure.
// Safe to use at call sites where ksuid's only failure mode (entropy
// source exhaustion) is not a realistic runtime condition.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID validates that s is a well-formed KSUID and returns it as an ID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return ID(""), fmt.Errorf("empty ID")
	}
	if _, err := ksuid.Parse(s); err != nil {
		return ID(""), fmt.Errorf("invalid ID format: %w", err)
	}
	return ID(s), nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is the empty value.
func (id ID) IsZero() bool {
	return id == ""
}
