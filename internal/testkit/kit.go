package testkit

import (
	"bytes"
	"context"
	"testing"

	"milkportal/adapters/postgres"
	"milkportal/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// NewDB opens a migrated in-memory SQLite database closed at test cleanup
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := postgres.Connect(ctx, postgres.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return db
}

// Workbook builds an xlsx file whose first sheet holds rows, starting at A1.
// Values go through excelize as-is, so ints and floats stay numeric.
func Workbook(t testing.TB, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", ref, v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// ResultsWorkbook builds a results upload with the standard header and one
// row per id/yield pair
func ResultsWorkbook(t testing.TB, ids []interface{}, yields []interface{}) []byte {
	t.Helper()
	rows := [][]interface{}{{"TestObjectID", "CalculatedMilkYield (kg)"}}
	for i := range ids {
		var y interface{}
		if i < len(yields) {
			y = yields[i]
		}
		rows = append(rows, []interface{}{ids[i], y})
	}
	return Workbook(t, rows...)
}
