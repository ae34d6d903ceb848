package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	UserID       ID
	TestSetID    ID
	SubmissionID ID
)

func (id UserID) String() string       { return ID(id).String() }
func (id TestSetID) String() string    { return ID(id).String() }
func (id SubmissionID) String() string { return ID(id).String() }

// ParseTestSetID parses a string into TestSetID
func ParseTestSetID(s string) (TestSetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("test set ID cannot be empty")
	}
	return TestSetID(strings.TrimSpace(s)), nil
}

// ParseSubmissionID parses a string into SubmissionID
func ParseSubmissionID(s string) (SubmissionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("submission ID cannot be empty")
	}
	return SubmissionID(strings.TrimSpace(s)), nil
}
