package migration

import (
	"context"

	"milkportal/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The DDL sticks to types
// both PostgreSQL and SQLite accept so the same runner serves either driver.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createUsersTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create users table"))
	}

	if err := r.createTestSetsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create test_sets table"))
	}

	if err := r.createSubmissionsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create submissions table"))
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create indexes"))
	}

	return nil
}

func (r *MigrationRunner) createUsersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			organization VARCHAR(255) NOT NULL DEFAULT '',
			role VARCHAR(32) NOT NULL DEFAULT 'member',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createTestSetsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS test_sets (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			blob_key TEXT NOT NULL,
			filename VARCHAR(255) NOT NULL,
			test_object_ids TEXT NOT NULL,
			parities TEXT NOT NULL,
			reference_yields TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createSubmissionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS submissions (
			id VARCHAR(64) PRIMARY KEY,
			test_set_id VARCHAR(64) NOT NULL DEFAULT '',
			user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			organization VARCHAR(255) NOT NULL DEFAULT '',
			country VARCHAR(128) NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			calculation_method VARCHAR(255) NOT NULL DEFAULT '',
			respondent_email VARCHAR(255) NOT NULL DEFAULT '',
			original_filename VARCHAR(255) NOT NULL,
			blob_key TEXT NOT NULL,
			test_object_ids TEXT NOT NULL,
			calculated_yields TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_test_sets_user_id ON test_sets(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_test_set_id ON submissions(test_set_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at)`,
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
