package ingestion

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// CellKind identifies which variant of the Cell union is populated
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// String returns the kind name used in logs and JSON debugging output
func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet value. A cell holds text, a number, or nothing;
// every consumer goes through the explicit casting helpers below.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// EmptyCell returns the blank cell
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// TextCell creates a text cell. Whitespace-only text is stored as an empty cell.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return EmptyCell()
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell creates a numeric cell
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsEmpty reports whether the cell carries no value
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the raw cell value
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Float casts the cell to a finite number. Empty cells, unparseable text and
// NaN/Inf never cast successfully.
func (c Cell) Float() (float64, bool) {
	var f float64
	switch c.Kind {
	case CellNumber:
		f = c.Number
	case CellText:
		s := strings.TrimSpace(c.Text)
		if s == "" {
			return 0, false
		}
		v, err := cast.ToFloat64E(s)
		if err != nil {
			return 0, false
		}
		f = v
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int casts the cell to an int64. Fractional numbers and integral values
// outside the int64 range do not cast.
func (c Cell) Int() (int64, bool) {
	if c.Kind == CellText {
		if n, err := strconv.ParseInt(strings.TrimSpace(c.Text), 10, 64); err == nil {
			return n, true
		}
	}
	f, ok := c.Float()
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit
	if f >= twoTo63 || f < -twoTo63 {
		return 0, false
	}
	return int64(f), true
}

// IsIntegral reports whether the cell casts to a whole number, whatever its
// magnitude
func (c Cell) IsIntegral() bool {
	f, ok := c.Float()
	return ok && f == math.Trunc(f)
}

const twoTo63 = float64(1 << 63)

// MarshalJSON renders the cell as its raw JSON value so previews read naturally
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellNumber:
		return json.Marshal(c.Number)
	case CellText:
		return json.Marshal(c.Text)
	default:
		return []byte(`""`), nil
	}
}

// Schema is the ordered set of columns every upload must supply
type Schema struct {
	Columns        []string
	IdentityColumn string
	ValueColumn    string
}

const (
	ColumnTestObjectID        = "TestObjectID"
	ColumnCalculatedMilkYield = "CalculatedMilkYield (kg)"
)

// MilkYieldSchema is the required layout of a results upload
var MilkYieldSchema = Schema{
	Columns:        []string{ColumnTestObjectID, ColumnCalculatedMilkYield},
	IdentityColumn: ColumnTestObjectID,
	ValueColumn:    ColumnCalculatedMilkYield,
}

// RawTable is the first sheet of a workbook; Rows[0] is the header row
type RawTable struct {
	SheetName string
	Rows      [][]Cell
}

// Header returns the header row rendered as trimmed strings
func (t *RawTable) Header() []string {
	if t == nil || len(t.Rows) == 0 {
		return []string{}
	}
	headers := make([]string, len(t.Rows[0]))
	for i, cell := range t.Rows[0] {
		headers[i] = strings.TrimSpace(cell.String())
	}
	return headers
}

// DataRows returns every row after the header
func (t *RawTable) DataRows() [][]Cell {
	if t == nil || len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// HeaderMatchResult describes how an uploaded header row lines up with the schema
type HeaderMatchResult struct {
	DetectedHeaders  []string `json:"detected_headers"`
	MissingRequired  []string `json:"missing_required"`
	ExtraColumns     []string `json:"extra_columns"`
	DuplicateHeaders []string `json:"duplicate_headers"`
}

// CanonicalRecord is one data row keyed by schema column identifier
type CanonicalRecord map[string]Cell

// RowIssue lists every constraint a single row violates. RowNumber counts the
// header as row 1, so the first data row is 2.
type RowIssue struct {
	RowNumber int      `json:"row"`
	Problems  []string `json:"problems"`
}

// ValidationSummary is everything derived from one uploaded table
type ValidationSummary struct {
	SheetName    string            `json:"sheet_name"`
	HeaderMatch  HeaderMatchResult `json:"header_match"`
	Issues       []RowIssue        `json:"issues"`
	DuplicateIDs []int64           `json:"duplicate_ids"`
	Preview      []CanonicalRecord `json:"preview"`
	RecordCount  int               `json:"record_count"`
}

// FileMeta is what the gate knows about an upload before reading it
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ReasonCode classifies why a submission is blocked
type ReasonCode string

const (
	ReasonUnsupportedExtension ReasonCode = "unsupported_extension"
	ReasonFileTooLarge         ReasonCode = "file_too_large"
	ReasonUnreadable           ReasonCode = "unreadable"
	ReasonMissingColumns       ReasonCode = "missing_columns"
	ReasonRowIssues            ReasonCode = "row_issues"
	ReasonDuplicateIDs         ReasonCode = "duplicate_ids"
)

// IsFormatError reports whether the reason rejects the file itself
func (c ReasonCode) IsFormatError() bool {
	return c == ReasonUnsupportedExtension || c == ReasonFileTooLarge || c == ReasonUnreadable
}

// Reason is a single blocking condition with a user-facing message
type Reason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

// Decision is the gate verdict. Reasons are ordered by precedence.
type Decision struct {
	Admitted bool     `json:"admitted"`
	Reasons  []Reason `json:"reasons"`
}

// Admitted returns the passing decision
func Admitted() Decision {
	return Decision{Admitted: true, Reasons: []Reason{}}
}

// Blocked returns a failing decision carrying the given reasons
func Blocked(reasons ...Reason) Decision {
	return Decision{Admitted: false, Reasons: reasons}
}

// FirstReason returns the highest-precedence reason, for single-message UIs
func (d Decision) FirstReason() (Reason, bool) {
	if len(d.Reasons) == 0 {
		return Reason{}, false
	}
	return d.Reasons[0], true
}

// HasReason reports whether the decision carries the given code
func (d Decision) HasReason(code ReasonCode) bool {
	for _, r := range d.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// Result is one complete inspection of an upload. Summary is nil when the file
// was rejected before parsing.
type Result struct {
	Generation uint64             `json:"generation"`
	Meta       FileMeta           `json:"file"`
	Summary    *ValidationSummary `json:"summary,omitempty"`
	Decision   Decision           `json:"decision"`
	Records    []CanonicalRecord  `json:"-"`
}
