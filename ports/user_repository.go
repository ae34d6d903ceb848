package ports

import (
	"context"

	"milkportal/domain/submission"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByEmail returns core.ErrUserNotFound when no account exists
	GetByEmail(ctx context.Context, email string) (*submission.User, error)

	// Upsert creates the user or updates name, organization and role by email.
	// The stored record (with its ID) is returned.
	Upsert(ctx context.Context, user *submission.User) (*submission.User, error)
}
