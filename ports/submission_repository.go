package ports

import (
	"context"

	"milkportal/domain/core"
	"milkportal/domain/submission"
)

// SubmissionRepository stores admitted uploads, newest first on listing
type SubmissionRepository interface {
	Create(ctx context.Context, sub *submission.Submission) error
	GetByID(ctx context.Context, id core.SubmissionID) (*submission.Submission, error)
	ListByUser(ctx context.Context, userID core.UserID) ([]*submission.Submission, error)
	ListAll(ctx context.Context) ([]*submission.Submission, error)
	Delete(ctx context.Context, id core.SubmissionID) error
}
