package main

import (
	"fmt"
	"io"
	"strings"

	"milkportal/domain/ingestion"
	ingest "milkportal/internal/ingestion"

	"github.com/fatih/color"
)

const (
	maxIssuesShown     = 10
	maxDuplicatesShown = 5
)

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	blockedColor = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	headingColor = color.New(color.Bold)
)

// printReport renders an inspection result for the terminal
func printReport(w io.Writer, result ingestion.Result) {
	headingColor.Fprintf(w, "File: %s (%d bytes)\n", result.Meta.Name, result.Meta.Size)

	if s := result.Summary; s != nil {
		fmt.Fprintf(w, "Sheet: %s\n", s.SheetName)
		fmt.Fprintf(w, "Detected headers: %s\n", joinOrNone(s.HeaderMatch.DetectedHeaders))
		if len(s.HeaderMatch.MissingRequired) > 0 {
			blockedColor.Fprintf(w, "Missing columns: %s\n", strings.Join(s.HeaderMatch.MissingRequired, ", "))
		}
		if len(s.HeaderMatch.ExtraColumns) > 0 {
			warnColor.Fprintf(w, "Extra columns (ignored): %s\n", strings.Join(s.HeaderMatch.ExtraColumns, ", "))
		}
		if len(s.HeaderMatch.DuplicateHeaders) > 0 {
			warnColor.Fprintf(w, "Repeated headers (first one used): %s\n", strings.Join(s.HeaderMatch.DuplicateHeaders, ", "))
		}
		fmt.Fprintf(w, "Records: %d\n", s.RecordCount)

		if len(s.Issues) > 0 {
			headingColor.Fprintf(w, "\nRow issues (%d):\n", len(s.Issues))
			for i, issue := range s.Issues {
				if i == maxIssuesShown {
					fmt.Fprintf(w, "  ... and %d more\n", len(s.Issues)-maxIssuesShown)
					break
				}
				fmt.Fprintf(w, "  row %d: %s\n", issue.RowNumber, strings.Join(issue.Problems, "; "))
			}
		}
		if len(s.DuplicateIDs) > 0 {
			headingColor.Fprintf(w, "\nDuplicate %s values: ", ingestion.ColumnTestObjectID)
			fmt.Fprintln(w, ingest.FormatIDList(s.DuplicateIDs, maxDuplicatesShown))
		}
		if len(s.Preview) > 0 {
			headingColor.Fprintf(w, "\nPreview:\n")
			printPreview(w, s.Preview)
		}
	}

	fmt.Fprintln(w)
	if result.Decision.Admitted {
		okColor.Fprintln(w, "READY TO SUBMIT")
		return
	}
	blockedColor.Fprintln(w, "BLOCKED")
	for _, reason := range result.Decision.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason.Message)
	}
}

func printPreview(w io.Writer, preview []ingestion.CanonicalRecord) {
	columns := ingestion.MilkYieldSchema.Columns
	fmt.Fprintf(w, "  %s\n", strings.Join(columns, " | "))
	for _, rec := range preview {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = rec[col].String()
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(values, " | "))
	}
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
