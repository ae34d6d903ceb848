package ingestion

import "milkportal/domain/ingestion"

// FindDuplicates returns every integral identity that occurs more than once,
// ordered by its first repeat. Identities that do not cast to an integer are
// ignored here; ValidateRows reports them.
func FindDuplicates(records []ingestion.CanonicalRecord, schema ingestion.Schema) []int64 {
	seen := make(map[int64]bool, len(records))
	reported := make(map[int64]bool)
	dupes := []int64{}

	for _, record := range records {
		id, ok := record[schema.IdentityColumn].Int()
		if !ok {
			continue
		}
		if !seen[id] {
			seen[id] = true
			continue
		}
		if !reported[id] {
			reported[id] = true
			dupes = append(dupes, id)
		}
	}
	return dupes
}
