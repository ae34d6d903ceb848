package testset

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"milkportal/adapters/excel"
	"milkportal/adapters/storage"
	"milkportal/domain/ingestion"
	"milkportal/internal"
	"milkportal/internal/lactation"
	"milkportal/ports"
)

// ReferenceSource loads a dataset from blob storage once and keeps it in
// memory. A failed load is retried on the next call.
type ReferenceSource struct {
	store  ports.BlobStorage
	key    string
	reader ports.WorkbookReader
	logger *internal.Logger

	mu    sync.Mutex
	table *ingestion.RawTable
}

// NewReferenceSource reads key from store; .csv keys are parsed as CSV and
// anything else as a workbook
func NewReferenceSource(store ports.BlobStorage, key string, reader ports.WorkbookReader) *ReferenceSource {
	return &ReferenceSource{
		store:  store,
		key:    key,
		reader: reader,
		logger: internal.DefaultLogger.With("ReferenceSource"),
	}
}

// Table returns the cached dataset, loading it on first use
func (s *ReferenceSource) Table(ctx context.Context) (*ingestion.RawTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		return s.table, nil
	}
	if s.key == "" {
		return nil, fmt.Errorf("no dataset key configured")
	}

	data, err := storage.ReadAll(ctx, s.store, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", s.key, err)
	}

	var table *ingestion.RawTable
	name := strings.TrimSuffix(filepath.Base(s.key), filepath.Ext(s.key))
	if strings.EqualFold(filepath.Ext(s.key), ".csv") {
		table, err = excel.ReadCSV(bytes.NewReader(data), name)
	} else {
		table, err = s.reader.Read(ctx, s.key, data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", s.key, err)
	}

	s.logger.Info("loaded %s (%d rows)", s.key, len(table.Rows))
	s.table = table
	return table, nil
}

// TestDays loads the dataset as test-day records
func (s *ReferenceSource) TestDays(ctx context.Context) ([]lactation.TestDayRecord, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	parsed, err := lactation.FromTable(table)
	if err != nil {
		return nil, err
	}
	if len(parsed.SkippedRows) > 0 {
		s.logger.Warn("%s: skipped %d unusable rows", s.key, len(parsed.SkippedRows))
	}
	return parsed.Records, nil
}
