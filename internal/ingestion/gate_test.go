package ingestion

import (
	"errors"
	"testing"

	"milkportal/domain/ingestion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanSummary() *ingestion.ValidationSummary {
	return &ingestion.ValidationSummary{
		HeaderMatch: ingestion.HeaderMatchResult{
			DetectedHeaders: []string{"TestObjectID", "CalculatedMilkYield (kg)"},
		},
		RecordCount: 1,
	}
}

func reasonCodes(d ingestion.Decision) []ingestion.ReasonCode {
	codes := make([]ingestion.ReasonCode, len(d.Reasons))
	for i, r := range d.Reasons {
		codes[i] = r.Code
	}
	return codes
}

func TestGate_AdmitsCleanUpload(t *testing.T) {
	d := NewGate().Evaluate(ingestion.FileMeta{Name: "results.xlsx", Size: 2048}, cleanSummary(), nil)

	assert.True(t, d.Admitted)
	assert.Empty(t, d.Reasons)
	_, ok := d.FirstReason()
	assert.False(t, ok)
}

func TestGate_ExtensionCheck(t *testing.T) {
	gate := NewGate()
	tests := []struct {
		name    string
		allowed bool
	}{
		{"results.xlsx", true},
		{"RESULTS.XLS", true},
		{"results.csv", false},
		{"results.xlsx.csv", false},
		{"xlsx", false},
		{"", false},
	}

	for _, test := range tests {
		reasons := gate.PreCheck(ingestion.FileMeta{Name: test.name, Size: 1})
		if test.allowed {
			assert.Empty(t, reasons, test.name)
		} else {
			require.Len(t, reasons, 1, test.name)
			assert.Equal(t, ingestion.ReasonUnsupportedExtension, reasons[0].Code)
		}
	}
}

func TestGate_SizeLimit(t *testing.T) {
	gate := NewGate()

	assert.Empty(t, gate.PreCheck(ingestion.FileMeta{Name: "a.xlsx", Size: DefaultMaxFileSize}))

	reasons := gate.PreCheck(ingestion.FileMeta{Name: "a.xlsx", Size: DefaultMaxFileSize + 1})
	require.Len(t, reasons, 1)
	assert.Equal(t, ingestion.ReasonFileTooLarge, reasons[0].Code)
	assert.Equal(t, "File too large. Max size is 10 MB.", reasons[0].Message)
}

func TestGate_ReturnsAllReasonsInPrecedenceOrder(t *testing.T) {
	summary := &ingestion.ValidationSummary{
		HeaderMatch:  ingestion.HeaderMatchResult{MissingRequired: []string{"CalculatedMilkYield (kg)"}},
		Issues:       []ingestion.RowIssue{{RowNumber: 2, Problems: []string{ProblemValueEmpty}}},
		DuplicateIDs: []int64{7},
	}

	d := NewGate().Evaluate(ingestion.FileMeta{Name: "big.csv", Size: DefaultMaxFileSize * 2}, summary, errors.New("zip: not a valid zip file"))

	assert.False(t, d.Admitted)
	assert.Equal(t, []ingestion.ReasonCode{
		ingestion.ReasonUnsupportedExtension,
		ingestion.ReasonFileTooLarge,
		ingestion.ReasonUnreadable,
		ingestion.ReasonMissingColumns,
		ingestion.ReasonRowIssues,
		ingestion.ReasonDuplicateIDs,
	}, reasonCodes(d))

	first, ok := d.FirstReason()
	require.True(t, ok)
	assert.Equal(t, ingestion.ReasonUnsupportedExtension, first.Code)
}

func TestGate_Messages(t *testing.T) {
	summary := &ingestion.ValidationSummary{
		HeaderMatch:  ingestion.HeaderMatchResult{MissingRequired: []string{"TestObjectID", "CalculatedMilkYield (kg)"}},
		Issues:       []ingestion.RowIssue{{RowNumber: 2}, {RowNumber: 3}},
		DuplicateIDs: []int64{1, 2, 3, 4, 5, 6},
	}

	d := NewGate().Evaluate(ingestion.FileMeta{Name: "r.xlsx", Size: 10}, summary, nil)

	require.Len(t, d.Reasons, 3)
	assert.Equal(t, "Your file is missing required columns: TestObjectID, CalculatedMilkYield (kg)", d.Reasons[0].Message)
	assert.Equal(t, "Please fix 2 row issue(s) before submitting.", d.Reasons[1].Message)
	assert.Equal(t, "Duplicate TestObjectID values found: 1, 2, 3, 4, 5 …", d.Reasons[2].Message)
}

func TestGate_NilSummaryIsUnreadable(t *testing.T) {
	d := NewGate().Evaluate(ingestion.FileMeta{Name: "r.xlsx", Size: 10}, nil, nil)

	assert.True(t, d.HasReason(ingestion.ReasonUnreadable))
}

func TestFormatIDList(t *testing.T) {
	assert.Equal(t, "", FormatIDList(nil, 5))
	assert.Equal(t, "1, 2", FormatIDList([]int64{1, 2}, 5))
	assert.Equal(t, "1, 2 …", FormatIDList([]int64{1, 2, 3}, 2))
	assert.Equal(t, "1, 2, 3", FormatIDList([]int64{1, 2, 3}, 0))
}
