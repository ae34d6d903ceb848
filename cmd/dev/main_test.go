package main

import (
	"context"
	"testing"

	"milkportal/adapters/excel"
	"milkportal/adapters/storage"
	"milkportal/internal/compare"
	"milkportal/internal/config"
	"milkportal/internal/lactation"
	"milkportal/internal/testset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSeedData_ReadableByPortal(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalStorage(t.TempDir())
	datasets := config.DatasetConfig{ReferenceKey: "ref/days.csv", ActualYieldsKey: "ref/actuals.csv"}
	herd := lactation.DefaultHerdConfig()
	herd.LactationCount = 8

	require.NoError(t, generateSeedData(ctx, store, datasets, herd))

	reader := excel.NewWorkbookReader(excel.DefaultExcelConfig())
	days, err := testset.NewReferenceSource(store, datasets.ReferenceKey, reader).TestDays(ctx)
	require.NoError(t, err)
	assert.Len(t, lactation.TestIDs(days), 8)

	table, err := testset.NewReferenceSource(store, datasets.ActualYieldsKey, reader).Table(ctx)
	require.NoError(t, err)
	actual, err := compare.ActualYields(table)
	require.NoError(t, err)
	assert.Len(t, actual, 8)
	assert.Contains(t, actual, herd.FirstTestID)
}

func TestSmokeAndDeterminism(t *testing.T) {
	require.NoError(t, runSmokeTests(context.Background()))
	require.NoError(t, testDeterminism(testset.Options{Size: 25, Seed: 9}))
}
