package testset

import (
	"context"
	"fmt"
	"testing"
	"time"

	"milkportal/adapters/excel"
	"milkportal/adapters/storage"
	"milkportal/domain/core"
	"milkportal/domain/submission"
	"milkportal/internal/errors"
	"milkportal/internal/lactation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTestSetRepository struct {
	mock.Mock
}

func (m *MockTestSetRepository) Create(ctx context.Context, ts *submission.TestSet) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

func (m *MockTestSetRepository) GetByID(ctx context.Context, id core.TestSetID) (*submission.TestSet, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*submission.TestSet), args.Error(1)
}

func (m *MockTestSetRepository) ListByUser(ctx context.Context, userID core.UserID) ([]*submission.TestSet, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*submission.TestSet), args.Error(1)
}

type staticSource struct {
	records []lactation.TestDayRecord
	err     error
}

func (s staticSource) TestDays(ctx context.Context) ([]lactation.TestDayRecord, error) {
	return s.records, s.err
}

func herd(n int) []lactation.TestDayRecord {
	cfg := lactation.DefaultHerdConfig()
	cfg.LactationCount = n
	return lactation.NewHerdGenerator(cfg).Generate()
}

func TestSample_DeterministicAndDistinct(t *testing.T) {
	records := herd(50)
	opts := Options{Size: 10, Seed: 7}

	first, err := Sample(records, opts)
	require.NoError(t, err)
	second, err := Sample(records, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Len(t, lactation.TestIDs(first), 10)

	other, err := Sample(records, Options{Size: 10, Seed: 8})
	require.NoError(t, err)
	assert.NotEqual(t, lactation.TestIDs(first), lactation.TestIDs(other))
}

func TestSample_KeepsEveryRecordOfChosenLactations(t *testing.T) {
	records := herd(20)
	selected, err := Sample(records, Options{Size: 5, Seed: 1})
	require.NoError(t, err)

	perID := map[int64]int{}
	for _, r := range records {
		perID[r.TestID]++
	}
	got := map[int64]int{}
	for _, r := range selected {
		got[r.TestID]++
	}
	for id, n := range got {
		assert.Equal(t, perID[id], n, "lactation %d", id)
	}
}

func TestSample_Errors(t *testing.T) {
	_, err := Sample(herd(3), Options{Size: 4, Seed: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = Sample(herd(3), Options{Size: 0})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalStorage(t.TempDir())
	repo := new(MockTestSetRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*submission.TestSet")).Return(nil)

	gen := NewGenerator(staticSource{records: herd(40)}, store, repo)
	gen.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	ts, err := gen.Generate(ctx, "user-1", Options{Size: 12, Seed: 42})
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, core.UserID("user-1"), ts.UserID)
	assert.Len(t, ts.TestObjectIDs, 12)
	assert.Len(t, ts.Parities, 12)
	assert.Len(t, ts.ReferenceYields, 12)
	assert.Equal(t, fmt.Sprintf("%s_20250301120000.xlsx", ts.ID), ts.Filename)
	for i, p := range ts.Parities {
		assert.GreaterOrEqual(t, p, 1, "parity of %d", ts.TestObjectIDs[i])
		assert.Greater(t, ts.ReferenceYields[i], 0.0)
	}

	// the stored workbook holds exactly the sampled lactations
	data, err := storage.ReadAll(ctx, store, ts.BlobKey)
	require.NoError(t, err)
	table, err := excel.NewWorkbookReader(excel.DefaultExcelConfig()).Read(ctx, ts.Filename, data)
	require.NoError(t, err)
	parsed, err := lactation.FromTable(table)
	require.NoError(t, err)
	assert.Empty(t, parsed.SkippedRows)

	yields := lactation.TestInterval(parsed.Records)
	require.Len(t, yields, 12)
	for i, y := range yields {
		assert.Equal(t, ts.TestObjectIDs[i], y.TestID)
		assert.InDelta(t, ts.ReferenceYields[i], y.Total305, 1e-6)
	}
}

func TestGenerator_RemovesWorkbookWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalStorage(t.TempDir())
	repo := new(MockTestSetRepository)

	var created *submission.TestSet
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(*submission.TestSet) }).
		Return(fmt.Errorf("db down"))

	_, err := NewGenerator(staticSource{records: herd(10)}, store, repo).Generate(ctx, "u", Options{Size: 3, Seed: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	require.NotNil(t, created)
	ok, err := store.Exists(ctx, created.BlobKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerator_SourceFailure(t *testing.T) {
	repo := new(MockTestSetRepository)
	_, err := NewGenerator(staticSource{err: fmt.Errorf("blob missing")}, storage.NewLocalStorage(t.TempDir()), repo).
		Generate(context.Background(), "u", DefaultOptions())

	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
