package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"time"

	"milkportal/domain/ingestion"
)

// ReadCSV reads a delimited reference dataset into a raw table. Values that
// parse as numbers become numeric cells.
func ReadCSV(r io.Reader, sheetName string) (*ingestion.RawTable, error) {
	startTime := time.Now()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}

	table := &ingestion.RawTable{SheetName: sheetName, Rows: make([][]ingestion.Cell, len(rows))}
	for i, row := range rows {
		cells := make([]ingestion.Cell, len(row))
		for j, value := range row {
			if i == 0 {
				cells[j] = ingestion.TextCell(value)
				continue
			}
			cells[j] = textOrNumber(value)
		}
		table.Rows[i] = cells
	}
	return table, nil
}
