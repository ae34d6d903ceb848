package postgres_test

import (
	"context"
	"testing"
	"time"

	"milkportal/adapters/postgres"
	"milkportal/domain/core"
	"milkportal/domain/submission"
	"milkportal/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testkit.NewDB(t))

	_, err := repo.GetByEmail(ctx, "ana@example.org")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	created, err := repo.Upsert(ctx, &submission.User{Email: " Ana@Example.org ", Name: "Ana"})
	require.NoError(t, err)
	assert.False(t, core.ID(created.ID).IsEmpty())
	assert.Equal(t, "ana@example.org", created.Email)
	assert.Equal(t, submission.RoleMember, created.Role)

	// empty fields keep stored values
	updated, err := repo.Upsert(ctx, &submission.User{Email: "ana@example.org", Organization: "Dairy Lab"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, "Dairy Lab", updated.Organization)

	got, err := repo.GetByEmail(ctx, "ANA@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Dairy Lab", got.Organization)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())

	_, err = repo.Upsert(ctx, &submission.User{Email: "  "})
	assert.Error(t, err)
}

func newUser(t *testing.T, repo interface {
	Upsert(context.Context, *submission.User) (*submission.User, error)
}, email string) *submission.User {
	t.Helper()
	u, err := repo.Upsert(context.Background(), &submission.User{Email: email})
	require.NoError(t, err)
	return u
}

func TestTestSetRepository(t *testing.T) {
	ctx := context.Background()
	db := testkit.NewDB(t)
	user := newUser(t, postgres.NewUserRepository(db), "owner@example.org")
	repo := postgres.NewTestSetRepository(db)

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	older := &submission.TestSet{
		ID: "ts-1", UserID: user.ID, BlobKey: "testsets/ts-1/a.xlsx", Filename: "a.xlsx",
		TestObjectIDs: []int64{10, 11}, Parities: []int{1, 3}, ReferenceYields: []float64{7000.5, 8123.25},
		CreatedAt: base,
	}
	newer := &submission.TestSet{
		ID: "ts-2", UserID: user.ID, BlobKey: "testsets/ts-2/b.xlsx", Filename: "b.xlsx",
		CreatedAt: base.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.GetByID(ctx, "ts-1")
	require.NoError(t, err)
	assert.Equal(t, older.TestObjectIDs, got.TestObjectIDs)
	assert.Equal(t, older.Parities, got.Parities)
	assert.Equal(t, older.ReferenceYields, got.ReferenceYields)
	assert.True(t, base.Equal(got.CreatedAt))

	empty, err := repo.GetByID(ctx, "ts-2")
	require.NoError(t, err)
	assert.Empty(t, empty.TestObjectIDs)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrTestSetNotFound)

	list, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.TestSetID("ts-2"), list[0].ID)

	none, err := repo.ListByUser(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubmissionRepository(t *testing.T) {
	ctx := context.Background()
	db := testkit.NewDB(t)
	users := postgres.NewUserRepository(db)
	alice := newUser(t, users, "alice@example.org")
	bob := newUser(t, users, "bob@example.org")
	repo := postgres.NewSubmissionRepository(db)

	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	subs := []*submission.Submission{
		{ID: "s-1", TestSetID: "ts-1", UserID: alice.ID, Organization: "Org A", Country: "KE",
			CalculationMethod: "Test interval", OriginalFilename: "r.xlsx", BlobKey: "submissions/s-1/r.xlsx",
			TestObjectIDs: []int64{1, 2}, CalculatedYields: []float64{6000, 6100.5}, CreatedAt: base, UpdatedAt: base},
		{ID: "s-2", UserID: bob.ID, OriginalFilename: "b.xls", BlobKey: "submissions/s-2/b.xls",
			CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)},
		{ID: "s-3", UserID: alice.ID, OriginalFilename: "r2.xlsx", BlobKey: "submissions/s-3/r2.xlsx",
			CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base.Add(2 * time.Minute)},
	}
	for _, s := range subs {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Org A", got.Organization)
	assert.Equal(t, core.TestSetID("ts-1"), got.TestSetID)
	assert.Equal(t, []int64{1, 2}, got.TestObjectIDs)
	assert.Equal(t, []float64{6000, 6100.5}, got.CalculatedYields)

	mine, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, core.SubmissionID("s-3"), mine[0].ID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, core.SubmissionID("s-3"), all[0].ID)
	assert.Equal(t, core.SubmissionID("s-1"), all[2].ID)

	require.NoError(t, repo.Delete(ctx, "s-2"))
	_, err = repo.GetByID(ctx, "s-2")
	assert.ErrorIs(t, err, core.ErrSubmissionNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "s-2"), core.ErrSubmissionNotFound)
}

func TestConnect_RejectsUnknownDriver(t *testing.T) {
	_, err := postgres.Connect(context.Background(), "mysql", "x")
	assert.Error(t, err)
}
