package ingestion

import (
	"strings"

	"milkportal/domain/ingestion"
)

// MatchHeaders reconciles an uploaded header row against the schema.
// Duplicate labels resolve to their first occurrence; later copies are only
// reported in DuplicateHeaders.
func MatchHeaders(rawHeaders []string, schema ingestion.Schema) ingestion.HeaderMatchResult {
	result := ingestion.HeaderMatchResult{
		DetectedHeaders:  make([]string, 0, len(rawHeaders)),
		MissingRequired:  []string{},
		ExtraColumns:     []string{},
		DuplicateHeaders: []string{},
	}

	required := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		required[Normalize(col)] = true
	}

	seen := make(map[string]bool, len(rawHeaders))
	for _, h := range rawHeaders {
		h = strings.TrimSpace(h)
		result.DetectedHeaders = append(result.DetectedHeaders, h)

		norm := Normalize(h)
		if !required[norm] {
			result.ExtraColumns = append(result.ExtraColumns, h)
			continue
		}
		if seen[norm] {
			result.DuplicateHeaders = append(result.DuplicateHeaders, h)
			continue
		}
		seen[norm] = true
	}

	for _, col := range schema.Columns {
		if !seen[Normalize(col)] {
			result.MissingRequired = append(result.MissingRequired, col)
		}
	}

	return result
}

// columnIndex returns the position of the first header matching column, or -1
func columnIndex(headers []string, column string) int {
	want := Normalize(column)
	for i, h := range headers {
		if Normalize(h) == want {
			return i
		}
	}
	return -1
}
