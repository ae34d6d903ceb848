package lactation

import (
	"fmt"
	"strconv"

	"milkportal/domain/ingestion"
	ingest "milkportal/internal/ingestion"
)

// Column labels of the reference test-day dataset
const (
	ColumnTestID     = "TestId"
	ColumnDaysInMilk = "DaysInMilk"
	ColumnDailyYield = "DailyMilkingYield"
	ColumnParity     = "Parity"
)

// TestDaySchema is the layout of the reference dataset. Parity is optional
// and resolved separately.
var TestDaySchema = ingestion.Schema{
	Columns:        []string{ColumnTestID, ColumnDaysInMilk, ColumnDailyYield},
	IdentityColumn: ColumnTestID,
	ValueColumn:    ColumnDailyYield,
}

// ParseResult holds the records read from a table plus the rows that could
// not be used
type ParseResult struct {
	Records     []TestDayRecord
	SkippedRows []int
}

// FromTable converts a reference dataset into test-day records. Headers are
// matched by normalized label. Rows whose id, day or yield do not cast are
// skipped and reported by row number (header is row 1).
func FromTable(table *ingestion.RawTable) (*ParseResult, error) {
	headers := table.Header()
	match := ingest.MatchHeaders(headers, TestDaySchema)
	if len(match.MissingRequired) > 0 {
		return nil, fmt.Errorf("test-day dataset is missing columns: %v", match.MissingRequired)
	}

	parityIdx := -1
	for i, h := range headers {
		if ingest.Normalize(h) == ingest.Normalize(ColumnParity) {
			parityIdx = i
			break
		}
	}

	dataRows := table.DataRows()
	records := ingest.MapRows(dataRows, headers, TestDaySchema)

	result := &ParseResult{Records: make([]TestDayRecord, 0, len(records))}
	for i, rec := range records {
		id, idOK := rec[ColumnTestID].Int()
		dim, dimOK := rec[ColumnDaysInMilk].Float()
		yield, yieldOK := rec[ColumnDailyYield].Float()
		if !idOK || !dimOK || !yieldOK {
			result.SkippedRows = append(result.SkippedRows, i+2)
			continue
		}

		day := TestDayRecord{TestID: id, DaysInMilk: dim, DailyYield: yield}
		if parityIdx >= 0 && parityIdx < len(dataRows[i]) {
			if p, ok := dataRows[i][parityIdx].Int(); ok {
				day.Parity = int(p)
				day.HasParity = true
			}
		}
		result.Records = append(result.Records, day)
	}
	return result, nil
}

// TestIDs returns the distinct lactation ids in first-seen order
func TestIDs(records []TestDayRecord) []int64 {
	seen := make(map[int64]bool)
	ids := []int64{}
	for _, rec := range records {
		if !seen[rec.TestID] {
			seen[rec.TestID] = true
			ids = append(ids, rec.TestID)
		}
	}
	return ids
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
