package ingestion

import "milkportal/domain/ingestion"

// MapRows projects every data row onto the schema columns. Output order and
// length always match the input rows.
func MapRows(rows [][]ingestion.Cell, headers []string, schema ingestion.Schema) []ingestion.CanonicalRecord {
	indexes := make([]int, len(schema.Columns))
	for i, col := range schema.Columns {
		indexes[i] = columnIndex(headers, col)
	}

	records := make([]ingestion.CanonicalRecord, len(rows))
	for r, row := range rows {
		record := make(ingestion.CanonicalRecord, len(schema.Columns))
		for i, col := range schema.Columns {
			idx := indexes[i]
			if idx < 0 || idx >= len(row) {
				record[col] = ingestion.EmptyCell()
				continue
			}
			record[col] = row[idx]
		}
		records[r] = record
	}
	return records
}
