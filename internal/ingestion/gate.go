package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"

	"milkportal/domain/ingestion"
)

// DefaultMaxFileSize is the largest accepted upload (10 MiB)
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultExtensions are the accepted workbook formats
var DefaultExtensions = []string{"xlsx", "xls"}

// duplicateListLimit caps how many duplicate IDs are spelled out in a message
const duplicateListLimit = 5

// Gate turns a validation summary into an admit/reject decision. It performs
// no I/O and never contacts the backend.
type Gate struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// NewGate creates a gate with the default limits
func NewGate() *Gate {
	return &Gate{
		MaxFileSize:       DefaultMaxFileSize,
		AllowedExtensions: DefaultExtensions,
	}
}

// PreCheck returns the format reasons that can be decided from metadata alone.
// A non-empty result means the file must not be parsed.
func (g *Gate) PreCheck(meta ingestion.FileMeta) []ingestion.Reason {
	var reasons []ingestion.Reason
	if !g.extensionAllowed(meta.Name) {
		reasons = append(reasons, ingestion.Reason{
			Code:    ingestion.ReasonUnsupportedExtension,
			Message: "Please upload an Excel file (.xlsx or .xls).",
		})
	}
	if max := g.maxFileSize(); meta.Size > max {
		reasons = append(reasons, ingestion.Reason{
			Code:    ingestion.ReasonFileTooLarge,
			Message: fmt.Sprintf("File too large. Max size is %s.", formatMegabytes(max)),
		})
	}
	return reasons
}

// Evaluate collects every applicable reason in precedence order. readErr is
// the failure of the workbook reader, if any; summary may be nil when the file
// was never parsed.
func (g *Gate) Evaluate(meta ingestion.FileMeta, summary *ingestion.ValidationSummary, readErr error) ingestion.Decision {
	reasons := g.PreCheck(meta)

	if readErr != nil || (len(reasons) == 0 && summary == nil) {
		reasons = append(reasons, ingestion.Reason{
			Code:    ingestion.ReasonUnreadable,
			Message: "Could not read the Excel file. Please re-download the template and try again.",
		})
	}

	if summary != nil {
		if missing := summary.HeaderMatch.MissingRequired; len(missing) > 0 {
			reasons = append(reasons, ingestion.Reason{
				Code:    ingestion.ReasonMissingColumns,
				Message: fmt.Sprintf("Your file is missing required columns: %s", strings.Join(missing, ", ")),
			})
		}
		if n := len(summary.Issues); n > 0 {
			reasons = append(reasons, ingestion.Reason{
				Code:    ingestion.ReasonRowIssues,
				Message: fmt.Sprintf("Please fix %d row issue(s) before submitting.", n),
			})
		}
		if len(summary.DuplicateIDs) > 0 {
			reasons = append(reasons, ingestion.Reason{
				Code:    ingestion.ReasonDuplicateIDs,
				Message: fmt.Sprintf("Duplicate TestObjectID values found: %s", FormatIDList(summary.DuplicateIDs, duplicateListLimit)),
			})
		}
	}

	if len(reasons) > 0 {
		return ingestion.Blocked(reasons...)
	}
	return ingestion.Admitted()
}

func (g *Gate) extensionAllowed(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return false
	}
	allowed := g.AllowedExtensions
	if len(allowed) == 0 {
		allowed = DefaultExtensions
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// SizeLimit returns the effective upload size limit in bytes
func (g *Gate) SizeLimit() int64 {
	return g.maxFileSize()
}

func (g *Gate) maxFileSize() int64 {
	if g.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return g.MaxFileSize
}

// FormatIDList joins up to limit IDs, marking truncation with an ellipsis
func FormatIDList(ids []int64, limit int) string {
	shown := ids
	if limit > 0 && len(ids) > limit {
		shown = ids[:limit]
	}
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = fmt.Sprintf("%d", id)
	}
	out := strings.Join(parts, ", ")
	if len(shown) < len(ids) {
		out += " …"
	}
	return out
}

func formatMegabytes(n int64) string {
	mb := float64(n) / (1024 * 1024)
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%d MB", int64(mb))
	}
	return fmt.Sprintf("%.1f MB", mb)
}
