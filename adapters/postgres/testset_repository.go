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

// testSetRepository implements the TestSetRepository interface
type testSetRepository struct {
	db *sqlx.DB
}

// NewTestSetRepository creates a new test set repository
func NewTestSetRepository(db *sqlx.DB) ports.TestSetRepository {
	return &testSetRepository{db: db}
}

const testSetColumns = `id, user_id, blob_key, filename, test_object_ids, parities, reference_yields, created_at`

// Create inserts a new test set
func (r *testSetRepository) Create(ctx context.Context, ts *submission.TestSet) error {
	ids, err := encodeJSONColumn(nonNilInt64s(ts.TestObjectIDs))
	if err != nil {
		return err
	}
	parities, err := encodeJSONColumn(nonNilInts(ts.Parities))
	if err != nil {
		return err
	}
	yields, err := encodeJSONColumn(nonNilFloats(ts.ReferenceYields))
	if err != nil {
		return err
	}

	query := r.db.Rebind(`INSERT INTO test_sets (` + testSetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		ts.ID, ts.UserID, ts.BlobKey, ts.Filename, ids, parities, yields, ts.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test set: %w", err)
	}
	return nil
}

// GetByID retrieves a test set by its ID
func (r *testSetRepository) GetByID(ctx context.Context, id core.TestSetID) (*submission.TestSet, error) {
	query := r.db.Rebind(`SELECT ` + testSetColumns + ` FROM test_sets WHERE id = ?`)

	ts, err := scanTestSet(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrTestSetNotFound
		}
		return nil, fmt.Errorf("failed to get test set: %w", err)
	}
	return ts, nil
}

// ListByUser returns a user's test sets, newest first
func (r *testSetRepository) ListByUser(ctx context.Context, userID core.UserID) ([]*submission.TestSet, error) {
	query := r.db.Rebind(`SELECT ` + testSetColumns + ` FROM test_sets WHERE user_id = ? ORDER BY created_at DESC, id DESC`)

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query test sets: %w", err)
	}
	defer rows.Close()

	testSets := []*submission.TestSet{}
	for rows.Next() {
		ts, err := scanTestSet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test set: %w", err)
		}
		testSets = append(testSets, ts)
	}
	return testSets, rows.Err()
}

func scanTestSet(row rowScanner) (*submission.TestSet, error) {
	var ts submission.TestSet
	var ids, parities, yields []byte

	if err := row.Scan(&ts.ID, &ts.UserID, &ts.BlobKey, &ts.Filename, &ids, &parities, &yields, &ts.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(ids, &ts.TestObjectIDs); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(parities, &ts.Parities); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(yields, &ts.ReferenceYields); err != nil {
		return nil, err
	}
	return &ts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nonNilInt64s(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
