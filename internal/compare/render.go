package compare

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ingest "milkportal/internal/ingestion"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ReportTitle heads every rendered comparison
const ReportTitle = "Milk yield comparison report"

// idListLimit caps the missing and unmatched IDs spelled out in a rendered report
const idListLimit = 10

// Details describes the submission a report was computed for
type Details struct {
	SubmissionID      string    `json:"-"`
	TestSetID         string    `json:"-"`
	Organization      string    `json:"organization"`
	Country           string    `json:"country"`
	CalculationMethod string    `json:"calculation_method"`
	Notes             string    `json:"notes"`
	DateReported      time.Time `json:"date_reported"`
}

// RenderMarkdown writes the report as a markdown document: the submission
// details, then one metrics section for the overall block and each parity block
func RenderMarkdown(d Details, r Report) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", ReportTitle)
	b.WriteString("## Submission details\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	detailRow(&b, "Submission", d.SubmissionID)
	detailRow(&b, "Test set", d.TestSetID)
	detailRow(&b, "Organization", d.Organization)
	detailRow(&b, "Country", d.Country)
	detailRow(&b, "Calculation method", d.CalculationMethod)
	if !d.DateReported.IsZero() {
		detailRow(&b, "Date reported", d.DateReported.UTC().Format("2006-01-02 15:04 MST"))
	}
	detailRow(&b, "Notes", d.Notes)
	b.WriteString("\n")

	writeBlock(&b, "Overall", r.Overall)

	if len(r.Parities) > 0 {
		b.WriteString("## By parity\n\n")
		for _, block := range r.Parities {
			writeBlock(&b, "Parity "+block.Label, block)
		}
	}

	b.WriteString("## Coverage\n\n")
	fmt.Fprintf(&b, "- Compared test objects: %d\n", len(r.Points))
	fmt.Fprintf(&b, "- Not submitted: %d", len(r.Missing))
	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, " (%s)", ingest.FormatIDList(r.Missing, idListLimit))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Not in the test set: %d", len(r.Unmatched))
	if len(r.Unmatched) > 0 {
		fmt.Fprintf(&b, " (%s)", ingest.FormatIDList(r.Unmatched, idListLimit))
	}
	b.WriteString("\n")

	return []byte(b.String())
}

// RenderHTML renders the markdown report as a standalone HTML page. Raw HTML
// in user-supplied fields is dropped.
func RenderHTML(d Details, r Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(RenderMarkdown(d, r))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: ReportTitle,
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
	})
	return markdown.Render(doc, renderer)
}

func writeBlock(b *strings.Builder, heading string, block Block) {
	fmt.Fprintf(b, "### %s\n\n", heading)

	b.WriteString("| Metric | vs reference |")
	if block.VsActual != nil {
		b.WriteString(" vs actual |")
	}
	b.WriteString("\n|---|---|")
	if block.VsActual != nil {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	rows := []struct {
		label string
		value func(Metrics) string
	}{
		{"Pairs", func(m Metrics) string { return strconv.Itoa(m.Pairs) }},
		{"Pearson correlation", func(m Metrics) string { return formatFloat(m.Pearson, 4) }},
		{"Mean absolute error (kg)", func(m Metrics) string { return formatFloat(m.MAE, 2) }},
		{"Root mean squared error (kg)", func(m Metrics) string { return formatFloat(m.RMSE, 2) }},
		{"Mean absolute percentage error (%)", func(m Metrics) string { return formatFloat(m.MAPE, 2) }},
	}
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |", row.label, row.value(block.VsReference))
		if block.VsActual != nil {
			fmt.Fprintf(b, " %s |", row.value(*block.VsActual))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	res := block.Residuals
	fmt.Fprintf(b, "Residuals (submitted minus reference, kg): mean %s, median %s, std dev %s, range %s to %s.\n\n",
		formatFloat(res.Mean, 2), formatFloat(res.Median, 2), formatFloat(res.StdDev, 2),
		formatFloat(res.Min, 2), formatFloat(res.Max, 2))
}

func detailRow(b *strings.Builder, field, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	fmt.Fprintf(b, "| %s | %s |\n", field, escapeCell(value))
}

// escapeCell keeps free text inside a single table cell
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
