// Package testset samples downloadable test sets from the reference herd
// and records the yields they are later scored against.
package testset

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"time"

	"milkportal/adapters/excel"
	"milkportal/adapters/storage"
	"milkportal/domain/core"
	"milkportal/domain/ingestion"
	"milkportal/domain/submission"
	"milkportal/internal"
	"milkportal/internal/errors"
	"milkportal/internal/lactation"
	"milkportal/ports"
)

const (
	DefaultSize = 300
	DefaultSeed = 42

	sheetName   = "TestSet"
	contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Options controls sampling
type Options struct {
	Size int
	Seed int64
}

// DefaultOptions samples 300 lactations with a fixed seed
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Seed: DefaultSeed}
}

// TestDaySource supplies the reference test-day records
type TestDaySource interface {
	TestDays(ctx context.Context) ([]lactation.TestDayRecord, error)
}

// Generator builds, stores and records test sets
type Generator struct {
	source TestDaySource
	store  ports.BlobStorage
	repo   ports.TestSetRepository
	logger *internal.Logger
	now    func() time.Time
}

// NewGenerator creates a test-set generator
func NewGenerator(source TestDaySource, store ports.BlobStorage, repo ports.TestSetRepository) *Generator {
	return &Generator{
		source: source,
		store:  store,
		repo:   repo,
		logger: internal.DefaultLogger.With("TestSetGenerator"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Generate samples a test set for the user, writes its workbook to blob
// storage and persists the reference yields
func (g *Generator) Generate(ctx context.Context, userID core.UserID, opts Options) (*submission.TestSet, error) {
	records, err := g.source.TestDays(ctx)
	if err != nil {
		return nil, errors.ExternalServiceError("reference dataset", err)
	}

	selected, err := Sample(records, opts)
	if err != nil {
		return nil, err
	}

	yields := lactation.TestInterval(selected)
	parities := lactation.FirstParity(selected)

	created := g.now()
	ts := &submission.TestSet{
		ID:              core.TestSetID(core.NewID()),
		UserID:          userID,
		TestObjectIDs:   make([]int64, len(yields)),
		Parities:        make([]int, len(yields)),
		ReferenceYields: make([]float64, len(yields)),
		CreatedAt:       created,
	}
	for i, y := range yields {
		ts.TestObjectIDs[i] = y.TestID
		ts.Parities[i] = parities[y.TestID]
		ts.ReferenceYields[i] = y.Total305
	}
	ts.Filename = fmt.Sprintf("%s_%s.xlsx", ts.ID, created.Format("20060102150405"))
	ts.BlobKey = storage.TestSetKey(ts.ID.String(), ts.Filename)

	var buf bytes.Buffer
	if err := excel.WriteTable(&buf, workbookTable(selected)); err != nil {
		return nil, errors.Wrap(err, "failed to build test set workbook")
	}
	if err := g.store.Put(ctx, ts.BlobKey, bytes.NewReader(buf.Bytes()), contentType); err != nil {
		return nil, errors.StorageError("failed to store test set workbook", err)
	}

	if err := g.repo.Create(ctx, ts); err != nil {
		if delErr := g.store.Delete(ctx, ts.BlobKey); delErr != nil {
			g.logger.Warn("failed to remove orphaned workbook %s: %v", ts.BlobKey, delErr)
		}
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to save test set"))
	}

	g.logger.Info("generated test set %s for user %s: %d lactations, %d test days",
		ts.ID, userID, len(ts.TestObjectIDs), len(selected))
	return ts, nil
}

// Sample picks opts.Size distinct lactations with a seeded permutation and
// returns all of their records in input order. The same records and options
// always give the same sample.
func Sample(records []lactation.TestDayRecord, opts Options) ([]lactation.TestDayRecord, error) {
	if opts.Size <= 0 {
		return nil, errors.InvalidInput("test set size must be positive")
	}

	ids := lactation.TestIDs(records)
	if len(ids) < opts.Size {
		return nil, errors.WithCode(errors.CodeInvalidInput,
			fmt.Errorf("%w: %d lactations available, %d requested", core.ErrInsufficientData, len(ids), opts.Size))
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	chosen := make(map[int64]bool, opts.Size)
	for _, idx := range rng.Perm(len(ids))[:opts.Size] {
		chosen[ids[idx]] = true
	}

	selected := make([]lactation.TestDayRecord, 0, opts.Size*10)
	for _, rec := range records {
		if chosen[rec.TestID] {
			selected = append(selected, rec)
		}
	}
	return selected, nil
}

func workbookTable(records []lactation.TestDayRecord) *ingestion.RawTable {
	table := &ingestion.RawTable{SheetName: sheetName, Rows: make([][]ingestion.Cell, 0, len(records)+1)}
	table.Rows = append(table.Rows, []ingestion.Cell{
		ingestion.TextCell(lactation.ColumnTestID),
		ingestion.TextCell(lactation.ColumnDaysInMilk),
		ingestion.TextCell(lactation.ColumnDailyYield),
		ingestion.TextCell(lactation.ColumnParity),
	})
	for _, rec := range records {
		parity := ingestion.EmptyCell()
		if rec.HasParity {
			parity = ingestion.NumberCell(float64(rec.Parity))
		}
		table.Rows = append(table.Rows, []ingestion.Cell{
			ingestion.NumberCell(float64(rec.TestID)),
			ingestion.NumberCell(rec.DaysInMilk),
			ingestion.NumberCell(rec.DailyYield),
			parity,
		})
	}
	return table
}
