package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"milkportal/domain/core"
	"milkportal/domain/submission"
	"milkportal/ports"

	"github.com/jmoiron/sqlx"
)

// UserRepositoryImpl implements UserRepository on sqlx
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*submission.User, error) {
	var user submission.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`
		SELECT id, email, name, organization, role, created_at, updated_at
		FROM users
		WHERE email = ?
	`), normalizeEmail(email))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Upsert creates the user on first sight. For an existing user, non-empty
// name, organization and role values overwrite the stored ones.
func (r *UserRepositoryImpl) Upsert(ctx context.Context, user *submission.User) (*submission.User, error) {
	email := normalizeEmail(user.Email)
	if email == "" {
		return nil, fmt.Errorf("user email is required")
	}

	existing, err := r.GetByEmail(ctx, email)
	if errors.Is(err, core.ErrUserNotFound) {
		created, createErr := r.create(ctx, user, email)
		if createErr == nil || !isUniqueViolation(createErr) {
			return created, createErr
		}
		// created concurrently; fall through to update
		existing, err = r.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	if user.Name != "" {
		existing.Name = user.Name
	}
	if user.Organization != "" {
		existing.Organization = user.Organization
	}
	if user.Role != "" {
		existing.Role = user.Role
	}
	existing.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE users SET name = ?, organization = ?, role = ?, updated_at = ?
		WHERE id = ?
	`), existing.Name, existing.Organization, existing.Role, existing.UpdatedAt, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return existing, nil
}

func (r *UserRepositoryImpl) create(ctx context.Context, user *submission.User, email string) (*submission.User, error) {
	now := time.Now().UTC()
	created := &submission.User{
		ID:           core.UserID(core.NewID()),
		Email:        email,
		Name:         user.Name,
		Organization: user.Organization,
		Role:         user.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if created.Role == "" {
		created.Role = submission.RoleMember
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, organization, role, created_at, updated_at)
		VALUES (:id, :email, :name, :organization, :role, :created_at, :updated_at)
	`, created)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
