package ports

import (
	"context"

	"milkportal/domain/core"
	"milkportal/domain/submission"
)

// TestSetRepository stores generated test sets and their reference yields
type TestSetRepository interface {
	Create(ctx context.Context, ts *submission.TestSet) error
	GetByID(ctx context.Context, id core.TestSetID) (*submission.TestSet, error)
	ListByUser(ctx context.Context, userID core.UserID) ([]*submission.TestSet, error)
}
