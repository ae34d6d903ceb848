package ingestion

import "milkportal/domain/ingestion"

// Row problem messages, in the order they are checked
const (
	ProblemIdentityEmpty   = "identity field is empty"
	ProblemIdentityInvalid = "identity field must be a non-negative integer"
	ProblemIdentityRange   = "identity field exceeds the supported integer range"
	ProblemValueEmpty      = "numeric field is empty"
	ProblemValueInvalid    = "numeric field must be a non-negative number"
)

// firstDataRow is the spreadsheet row number of the first record (header is row 1)
const firstDataRow = 2

// ValidateRows checks every record against the identity and value constraints.
// All constraints are evaluated for every row; the cast checks are skipped only
// when the field is empty, which is already reported.
func ValidateRows(records []ingestion.CanonicalRecord, schema ingestion.Schema) []ingestion.RowIssue {
	issues := []ingestion.RowIssue{}
	for i, record := range records {
		if problems := checkRecord(record, schema); len(problems) > 0 {
			issues = append(issues, ingestion.RowIssue{
				RowNumber: i + firstDataRow,
				Problems:  problems,
			})
		}
	}
	return issues
}

func checkRecord(record ingestion.CanonicalRecord, schema ingestion.Schema) []string {
	var problems []string

	id := record[schema.IdentityColumn]
	if id.IsEmpty() {
		problems = append(problems, ProblemIdentityEmpty)
	} else if f, _ := id.Float(); !id.IsIntegral() || f < 0 {
		problems = append(problems, ProblemIdentityInvalid)
	} else if _, ok := id.Int(); !ok {
		problems = append(problems, ProblemIdentityRange)
	}

	value := record[schema.ValueColumn]
	if value.IsEmpty() {
		problems = append(problems, ProblemValueEmpty)
	} else if f, ok := value.Float(); !ok || f < 0 {
		problems = append(problems, ProblemValueInvalid)
	}

	return problems
}
