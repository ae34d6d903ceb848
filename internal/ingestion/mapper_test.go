package ingestion

import (
	"testing"

	"milkportal/domain/ingestion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRows_ReordersColumns(t *testing.T) {
	headers := []string{"Yield (kg) calculated", "Farm", "CalculatedMilkYield (kg)", "test object id"}
	rows := [][]ingestion.Cell{
		{ingestion.NumberCell(1), ingestion.TextCell("A"), ingestion.NumberCell(25.5), ingestion.NumberCell(7)},
		{ingestion.NumberCell(2), ingestion.TextCell("B"), ingestion.NumberCell(30), ingestion.NumberCell(8)},
	}

	records := MapRows(rows, headers, ingestion.MilkYieldSchema)

	require.Len(t, records, 2)
	assert.Equal(t, ingestion.NumberCell(7), records[0][ingestion.ColumnTestObjectID])
	assert.Equal(t, ingestion.NumberCell(25.5), records[0][ingestion.ColumnCalculatedMilkYield])
	assert.Equal(t, ingestion.NumberCell(8), records[1][ingestion.ColumnTestObjectID])
	assert.Len(t, records[0], 2)
}

func TestMapRows_MissingColumnYieldsEmpty(t *testing.T) {
	headers := []string{"TestObjectID"}
	rows := [][]ingestion.Cell{
		{ingestion.NumberCell(1)},
		{ingestion.NumberCell(2)},
	}

	records := MapRows(rows, headers, ingestion.MilkYieldSchema)

	for _, r := range records {
		assert.True(t, r[ingestion.ColumnCalculatedMilkYield].IsEmpty())
	}
}

func TestMapRows_ShortRowsPadWithEmpty(t *testing.T) {
	headers := []string{"TestObjectID", "CalculatedMilkYield (kg)"}
	rows := [][]ingestion.Cell{
		{ingestion.NumberCell(1)},
		{},
	}

	records := MapRows(rows, headers, ingestion.MilkYieldSchema)

	require.Len(t, records, 2)
	assert.True(t, records[0][ingestion.ColumnCalculatedMilkYield].IsEmpty())
	assert.True(t, records[1][ingestion.ColumnTestObjectID].IsEmpty())
}

func TestMapRows_LengthMatchesInput(t *testing.T) {
	headers := []string{"TestObjectID", "CalculatedMilkYield (kg)"}
	for n := 0; n < 20; n++ {
		rows := make([][]ingestion.Cell, n)
		for i := range rows {
			rows[i] = []ingestion.Cell{ingestion.NumberCell(float64(i)), ingestion.NumberCell(1)}
		}
		records := MapRows(rows, headers, ingestion.MilkYieldSchema)
		require.Len(t, records, n)
		for i, r := range records {
			assert.Equal(t, ingestion.NumberCell(float64(i)), r[ingestion.ColumnTestObjectID])
		}
	}
}

func TestPreview(t *testing.T) {
	records := make([]ingestion.CanonicalRecord, 8)
	for i := range records {
		records[i] = ingestion.CanonicalRecord{ingestion.ColumnTestObjectID: ingestion.NumberCell(float64(i))}
	}

	preview := Preview(records, PreviewLimit)
	require.Len(t, preview, 5)
	assert.Equal(t, ingestion.NumberCell(4), preview[4][ingestion.ColumnTestObjectID])

	assert.Len(t, Preview(records[:3], PreviewLimit), 3)
	assert.NotNil(t, Preview(nil, PreviewLimit))
	assert.Empty(t, Preview(nil, PreviewLimit))
	assert.Empty(t, Preview(records, 0))
}
