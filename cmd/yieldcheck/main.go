package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"milkportal/adapters/excel"
	"milkportal/domain/ingestion"
	ingest "milkportal/internal/ingestion"
	"milkportal/internal/lactation"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// errBlocked makes the process exit 1 without repeating the report
var errBlocked = errors.New("upload blocked")

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "yieldcheck",
		Short:         "Offline checks for milk-yield result workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newTemplateCmd(),
		newHerdCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errBlocked) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	var maxMB int
	var previewRows int

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Run the upload checks on a workbook and print the verdict",
		Long: `Run the same header, row and duplicate checks the portal applies to an
upload and print what they found.

Example: yieldcheck validate results.xlsx --max-mb 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := validateFile(cmd.Context(), args[0], maxMB, previewRows)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), result)
			if !result.Decision.Admitted {
				return errBlocked
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxMB, "max-mb", 10, "Largest accepted file in megabytes")
	cmd.Flags().IntVar(&previewRows, "preview", ingest.PreviewLimit, "Records shown in the preview")
	return cmd
}

func validateFile(ctx context.Context, path string, maxMB, previewRows int) (ingestion.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingestion.Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ingestion.Result{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	gate := ingest.NewGate()
	gate.MaxFileSize = int64(maxMB) << 20
	inspector := ingest.NewInspector(excel.NewWorkbookReader(excel.DefaultExcelConfig()),
		ingest.WithGate(gate),
		ingest.WithPreviewLimit(previewRows),
	)

	meta := ingestion.FileMeta{Name: filepath.Base(path), Size: info.Size()}
	return inspector.Inspect(ctx, meta, f), nil
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <out.xlsx>",
		Short: "Write the empty results template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			if err := excel.WriteTemplate(f, ingestion.MilkYieldSchema); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", args[0])
			return nil
		},
	}
}

func newHerdCmd() *cobra.Command {
	var out, actualsOut string
	config := lactation.DefaultHerdConfig()

	cmd := &cobra.Command{
		Use:   "herd",
		Short: "Generate a synthetic reference test-day dataset",
		Long: `Generate test-day records for a synthetic herd, in the layout the portal
reads its reference dataset from. With --actuals, also write each lactation's
305-day total in the recorded-yields layout.

Example: yieldcheck herd --out TestDataSet.csv --actuals ActualMilkYields.csv --count 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records := lactation.NewHerdGenerator(config).Generate()
			if err := writeCSVFile(out, lactation.Table(records)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d test days for %d lactations to %s\n", len(records), config.LactationCount, out)

			if actualsOut == "" {
				return nil
			}
			totals := lactation.TestInterval(records)
			if err := writeCSVFile(actualsOut, actualsTable(totals)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d lactation totals to %s\n", len(totals), actualsOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "TestDataSet.csv", "Test-day file to write (.csv or .xlsx)")
	cmd.Flags().StringVar(&actualsOut, "actuals", "", "Optional lactation totals CSV to write")
	cmd.Flags().IntVar(&config.LactationCount, "count", config.LactationCount, "Number of lactations")
	cmd.Flags().Int64Var(&config.Seed, "seed", config.Seed, "Random seed")
	cmd.Flags().Int64Var(&config.FirstTestID, "first-id", config.FirstTestID, "TestId of the first lactation")
	return cmd
}

func actualsTable(totals []lactation.LactationYield) [][]string {
	rows := [][]string{{"TestId", "TotalActualProduction"}}
	for _, t := range totals {
		rows = append(rows, []string{
			strconv.FormatInt(t.TestID, 10),
			strconv.FormatFloat(t.Total305, 'f', 2, 64),
		})
	}
	return rows
}

// writeCSVFile writes rows as CSV, or as a workbook when path ends in .xlsx
func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = excel.WriteTable(f, stringTable(rows))
	} else {
		err = writeCSV(f, rows)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// stringTable types the cells of rows: the header stays text, numeric
// strings become numbers
func stringTable(rows [][]string) *ingestion.RawTable {
	table := &ingestion.RawTable{SheetName: "Sheet1", Rows: make([][]ingestion.Cell, len(rows))}
	for r, row := range rows {
		cells := make([]ingestion.Cell, len(row))
		for c, v := range row {
			if f, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
				cells[c] = ingestion.NumberCell(f)
			} else {
				cells[c] = ingestion.TextCell(v)
			}
		}
		table.Rows[r] = cells
	}
	return table
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
