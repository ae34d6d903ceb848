package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"milkportal/domain/ingestion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReader returns a fixed table and counts how often it was asked to parse
type stubReader struct {
	table *ingestion.RawTable
	err   error
	panic bool
	calls int
}

func (r *stubReader) Read(ctx context.Context, filename string, data []byte) (*ingestion.RawTable, error) {
	r.calls++
	if r.panic {
		panic("corrupt stream")
	}
	return r.table, r.err
}

func table(rows ...[]ingestion.Cell) *ingestion.RawTable {
	return &ingestion.RawTable{SheetName: "Sheet1", Rows: rows}
}

func row(cells ...ingestion.Cell) []ingestion.Cell { return cells }

var templateHeader = row(text("TestObjectID"), text("CalculatedMilkYield (kg)"))

func inspect(t *testing.T, reader *stubReader, name string) ingestion.Result {
	t.Helper()
	content := []byte("workbook-bytes")
	inspector := NewInspector(reader)
	return inspector.Inspect(context.Background(), ingestion.FileMeta{Name: name, Size: int64(len(content))}, bytes.NewReader(content))
}

func TestInspect_ScenarioA_Admitted(t *testing.T) {
	reader := &stubReader{table: table(row(text("TestObjectID"), text("CalculatedMilkYield (kg)")), row(num(1), num(25.5)))}

	result := inspect(t, reader, "results.xlsx")

	require.NotNil(t, result.Summary)
	assert.True(t, result.Decision.Admitted)
	assert.Empty(t, result.Summary.Issues)
	assert.Empty(t, result.Summary.DuplicateIDs)
	assert.Empty(t, result.Summary.HeaderMatch.MissingRequired)
	assert.Equal(t, 1, result.Summary.RecordCount)
	assert.Len(t, result.Records, 1)
}

func TestInspect_ScenarioB_MissingColumns(t *testing.T) {
	reader := &stubReader{table: table(row(text("id"), text("Yield")), row(num(1), num(2)))}

	result := inspect(t, reader, "results.xlsx")

	require.NotNil(t, result.Summary)
	assert.Equal(t, []string{"TestObjectID", "CalculatedMilkYield (kg)"}, result.Summary.HeaderMatch.MissingRequired)
	assert.False(t, result.Decision.Admitted)
	assert.True(t, result.Decision.HasReason(ingestion.ReasonMissingColumns))
}

func TestInspect_ScenarioC_DuplicateIDs(t *testing.T) {
	reader := &stubReader{table: table(templateHeader, row(num(1), num(10)), row(num(1), num(12)))}

	result := inspect(t, reader, "results.xlsx")

	require.NotNil(t, result.Summary)
	assert.Empty(t, result.Summary.Issues)
	assert.Equal(t, []int64{1}, result.Summary.DuplicateIDs)
	assert.False(t, result.Decision.Admitted)
	assert.Equal(t, []ingestion.ReasonCode{ingestion.ReasonDuplicateIDs}, reasonCodes(result.Decision))
}

func TestInspect_ScenarioD_EmptyIdentity(t *testing.T) {
	reader := &stubReader{table: table(templateHeader, row(text(""), num(5)))}

	result := inspect(t, reader, "results.xlsx")

	require.NotNil(t, result.Summary)
	require.Len(t, result.Summary.Issues, 1)
	assert.Equal(t, 2, result.Summary.Issues[0].RowNumber)
	assert.Contains(t, result.Summary.Issues[0].Problems, ProblemIdentityEmpty)
	assert.NotContains(t, result.Summary.Issues[0].Problems, ProblemIdentityInvalid)
	assert.False(t, result.Decision.Admitted)
}

func TestInspect_ScenarioE_NegativeYield(t *testing.T) {
	reader := &stubReader{table: table(templateHeader, row(num(2), num(-3)))}

	result := inspect(t, reader, "results.xlsx")

	require.NotNil(t, result.Summary)
	require.Len(t, result.Summary.Issues, 1)
	assert.Equal(t, 2, result.Summary.Issues[0].RowNumber)
	assert.Contains(t, result.Summary.Issues[0].Problems, ProblemValueInvalid)
}

func TestInspect_ScenarioF_CSVNeverParsed(t *testing.T) {
	reader := &stubReader{table: table(templateHeader, row(num(1), num(2)))}

	result := inspect(t, reader, "results.csv")

	assert.Nil(t, result.Summary)
	assert.Equal(t, 0, reader.calls)
	assert.False(t, result.Decision.Admitted)
	assert.Equal(t, []ingestion.ReasonCode{ingestion.ReasonUnsupportedExtension}, reasonCodes(result.Decision))
}

func TestInspect_ReaderErrorBecomesFormatError(t *testing.T) {
	reader := &stubReader{err: errors.New("zip: not a valid zip file")}

	result := inspect(t, reader, "results.xlsx")

	assert.Nil(t, result.Summary)
	assert.Equal(t, []ingestion.ReasonCode{ingestion.ReasonUnreadable}, reasonCodes(result.Decision))
}

func TestInspect_ReaderPanicBecomesFormatError(t *testing.T) {
	reader := &stubReader{panic: true}

	result := inspect(t, reader, "results.xls")

	assert.Nil(t, result.Summary)
	assert.True(t, result.Decision.HasReason(ingestion.ReasonUnreadable))
}

func TestInspect_OversizeStreamDetected(t *testing.T) {
	reader := &stubReader{table: table(templateHeader)}
	inspector := NewInspector(reader, WithGate(&Gate{MaxFileSize: 4}))

	result := inspector.Inspect(context.Background(), ingestion.FileMeta{Name: "r.xlsx"}, bytes.NewReader([]byte("0123456789")))

	assert.Equal(t, 0, reader.calls)
	assert.True(t, result.Decision.HasReason(ingestion.ReasonFileTooLarge))
}

func TestInspect_FirstDataRowIsRowTwo(t *testing.T) {
	reader := &stubReader{table: table(templateHeader, row(text("x"), num(1)), row(num(2), num(2)))}

	result := inspect(t, reader, "results.xlsx")

	require.NotEmpty(t, result.Summary.Issues)
	assert.Equal(t, 2, result.Summary.Issues[0].RowNumber)
}

func TestInspect_PreviewBounded(t *testing.T) {
	rows := [][]ingestion.Cell{templateHeader}
	for i := 1; i <= 12; i++ {
		rows = append(rows, row(num(float64(i)), num(float64(i)*10)))
	}
	reader := &stubReader{table: table(rows...)}

	result := inspect(t, reader, "results.xlsx")

	require.Len(t, result.Summary.Preview, PreviewLimit)
	assert.Equal(t, num(1), result.Summary.Preview[0][ingestion.ColumnTestObjectID])
	assert.Equal(t, 12, result.Summary.RecordCount)
}

func TestInspect_Idempotent(t *testing.T) {
	reader := &stubReader{table: table(
		row(text("Farm"), text("calculated milk yield (KG)"), text("TestObjectID")),
		row(text("A"), num(10), num(1)),
		row(text("B"), text("oops"), num(1)),
		row(text("C"), num(-2), text("")),
	)}

	first, err := json.Marshal(inspect(t, reader, "results.xlsx"))
	require.NoError(t, err)
	second, err := json.Marshal(inspect(t, reader, "results.xlsx"))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestSummarize_EmptyTable(t *testing.T) {
	summary, records := Summarize(&ingestion.RawTable{}, ingestion.MilkYieldSchema, PreviewLimit)

	assert.Equal(t, ingestion.MilkYieldSchema.Columns, summary.HeaderMatch.MissingRequired)
	assert.Empty(t, records)
	assert.Empty(t, summary.Preview)
	assert.Equal(t, 0, summary.RecordCount)
}
