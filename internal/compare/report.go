package compare

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"milkportal/domain/ingestion"
	"milkportal/domain/submission"
	ingest "milkportal/internal/ingestion"
)

// Parity group labels, in report order. Parity 3 and above share a group.
const (
	ParityFirst  = "1"
	ParitySecond = "2"
	ParityLater  = "3+"
)

var parityGroups = []string{ParityFirst, ParitySecond, ParityLater}

// Point is one test object present in both the test set and the submission
type Point struct {
	TestObjectID int64    `json:"test_object_id"`
	Parity       int      `json:"parity"`
	Reference    float64  `json:"reference"`
	Submitted    float64  `json:"submitted"`
	Actual       *float64 `json:"actual,omitempty"`
}

// Block holds the metrics for one slice of the data: submitted yields scored
// against the reference calculation and, when known, against actual yields
type Block struct {
	Label       string          `json:"label"`
	VsReference Metrics         `json:"vs_reference"`
	VsActual    *Metrics        `json:"vs_actual,omitempty"`
	Residuals   ResidualSummary `json:"residuals"`
}

// Report is the full comparison of one submission with its test set
type Report struct {
	Overall   Block   `json:"overall"`
	Parities  []Block `json:"parities"`
	Points    []Point `json:"points"`
	Missing   []int64 `json:"missing"`   // in the test set, not submitted
	Unmatched []int64 `json:"unmatched"` // submitted, not in the test set
}

// Compare aligns the submission with the test set by TestObjectID. actual may
// be nil when no recorded yields are available.
func Compare(ts *submission.TestSet, sub *submission.Submission, actual map[int64]float64) (Report, error) {
	reference := ts.ReferenceByID()
	parity := ts.ParityByID()
	submitted := sub.YieldByID()

	report := Report{
		Parities:  []Block{},
		Points:    []Point{},
		Missing:   []int64{},
		Unmatched: []int64{},
	}

	for _, id := range ts.TestObjectIDs {
		value, ok := submitted[id]
		if !ok {
			report.Missing = append(report.Missing, id)
			continue
		}
		p := Point{TestObjectID: id, Parity: parity[id], Reference: reference[id], Submitted: value}
		if a, ok := actual[id]; ok {
			p.Actual = &a
		}
		report.Points = append(report.Points, p)
	}
	for _, id := range sub.TestObjectIDs {
		if _, ok := reference[id]; !ok {
			report.Unmatched = append(report.Unmatched, id)
		}
	}
	sort.Slice(report.Unmatched, func(i, j int) bool { return report.Unmatched[i] < report.Unmatched[j] })

	overall, err := buildBlock("overall", report.Points, actual != nil)
	if err != nil {
		return Report{}, err
	}
	report.Overall = overall

	grouped := make(map[string][]Point)
	for _, p := range report.Points {
		grouped[ParityGroup(p.Parity)] = append(grouped[ParityGroup(p.Parity)], p)
	}
	for _, label := range parityGroups {
		points := grouped[label]
		if len(points) < minPairs || countActual(points) < minPairs {
			continue
		}
		block, err := buildBlock(label, points, true)
		if err != nil {
			return Report{}, err
		}
		report.Parities = append(report.Parities, block)
	}
	return report, nil
}

// ParityGroup folds a parity into its report group. Unknown parity maps to "0",
// which is never reported on its own.
func ParityGroup(parity int) string {
	switch {
	case parity >= 3:
		return ParityLater
	case parity == 1 || parity == 2:
		return strconv.Itoa(parity)
	default:
		return "0"
	}
}

func buildBlock(label string, points []Point, withActual bool) (Block, error) {
	ref := make([]float64, len(points))
	sub := make([]float64, len(points))
	act := make([]float64, len(points))
	for i, p := range points {
		ref[i] = p.Reference
		sub[i] = p.Submitted
		act[i] = math.NaN()
		if p.Actual != nil {
			act[i] = *p.Actual
		}
	}

	block := Block{Label: label}
	var err error
	if block.VsReference, err = Calculate(ref, sub); err != nil {
		return Block{}, err
	}
	if block.Residuals, err = Residuals(ref, sub); err != nil {
		return Block{}, err
	}
	if withActual {
		m, err := Calculate(act, sub)
		if err != nil {
			return Block{}, err
		}
		block.VsActual = &m
	}
	return block, nil
}

func countActual(points []Point) int {
	n := 0
	for _, p := range points {
		if p.Actual != nil {
			n++
		}
	}
	return n
}

// Column labels of the recorded-yield dataset
const (
	ColumnActualTestID = "TestId"
	ColumnActualTotal  = "TotalActualProduction"
)

var actualSchema = ingestion.Schema{
	Columns:        []string{ColumnActualTestID, ColumnActualTotal},
	IdentityColumn: ColumnActualTestID,
	ValueColumn:    ColumnActualTotal,
}

// ActualYields reads recorded lactation totals keyed by TestId. Rows that do
// not cast are skipped; a later row for the same id wins.
func ActualYields(table *ingestion.RawTable) (map[int64]float64, error) {
	headers := table.Header()
	match := ingest.MatchHeaders(headers, actualSchema)
	if len(match.MissingRequired) > 0 {
		return nil, fmt.Errorf("actual yields dataset is missing columns: %v", match.MissingRequired)
	}

	out := make(map[int64]float64)
	for _, rec := range ingest.MapRows(table.DataRows(), headers, actualSchema) {
		id, ok := rec[ColumnActualTestID].Int()
		if !ok {
			continue
		}
		total, ok := rec[ColumnActualTotal].Float()
		if !ok {
			continue
		}
		out[id] = total
	}
	return out, nil
}
