package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"milkportal/domain/core"
	"milkportal/domain/submission"
	"milkportal/ports"

	"github.com/jmoiron/sqlx"
)

// submissionRepository implements the SubmissionRepository interface
type submissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sqlx.DB) ports.SubmissionRepository {
	return &submissionRepository{db: db}
}

const submissionColumns = `id, test_set_id, user_id, organization, country, notes, calculation_method,
	respondent_email, original_filename, blob_key, test_object_ids, calculated_yields, created_at, updated_at`

// Create inserts a new submission
func (r *submissionRepository) Create(ctx context.Context, sub *submission.Submission) error {
	ids, err := encodeJSONColumn(nonNilInt64s(sub.TestObjectIDs))
	if err != nil {
		return err
	}
	yields, err := encodeJSONColumn(nonNilFloats(sub.CalculatedYields))
	if err != nil {
		return err
	}

	query := r.db.Rebind(`INSERT INTO submissions (` + submissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		sub.ID, sub.TestSetID, sub.UserID, sub.Organization, sub.Country, sub.Notes, sub.CalculationMethod,
		sub.RespondentEmail, sub.OriginalFilename, sub.BlobKey, ids, yields, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by its ID
func (r *submissionRepository) GetByID(ctx context.Context, id core.SubmissionID) (*submission.Submission, error) {
	query := r.db.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`)

	sub, err := scanSubmission(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// ListByUser returns a user's submissions, newest first
func (r *submissionRepository) ListByUser(ctx context.Context, userID core.UserID) ([]*submission.Submission, error) {
	query := r.db.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE user_id = ? ORDER BY created_at DESC, id DESC`)
	return r.list(ctx, query, userID)
}

// ListAll returns every submission, newest first
func (r *submissionRepository) ListAll(ctx context.Context) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query)
}

// Delete removes a submission
func (r *submissionRepository) Delete(ctx context.Context, id core.SubmissionID) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM submissions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return core.ErrSubmissionNotFound
	}
	return nil
}

func (r *submissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*submission.Submission, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	subs := []*submission.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubmission(row rowScanner) (*submission.Submission, error) {
	var sub submission.Submission
	var ids, yields []byte

	err := row.Scan(
		&sub.ID, &sub.TestSetID, &sub.UserID, &sub.Organization, &sub.Country, &sub.Notes, &sub.CalculationMethod,
		&sub.RespondentEmail, &sub.OriginalFilename, &sub.BlobKey, &ids, &yields, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(ids, &sub.TestObjectIDs); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(yields, &sub.CalculatedYields); err != nil {
		return nil, err
	}
	return &sub, nil
}
