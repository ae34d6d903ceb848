package ingestion

import "milkportal/domain/ingestion"

// PreviewLimit is the default number of records shown back to the uploader
const PreviewLimit = 5

// Preview returns up to limit leading records in their original order
func Preview(records []ingestion.CanonicalRecord, limit int) []ingestion.CanonicalRecord {
	if limit <= 0 || len(records) == 0 {
		return []ingestion.CanonicalRecord{}
	}
	if len(records) < limit {
		limit = len(records)
	}
	out := make([]ingestion.CanonicalRecord, limit)
	copy(out, records[:limit])
	return out
}
