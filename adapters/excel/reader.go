package excel

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"milkportal/domain/ingestion"
	"milkportal/internal"
	"milkportal/ports"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// WorkbookReader reads the first sheet of an uploaded .xlsx or .xls file
type WorkbookReader struct {
	config ExcelConfig
	logger *internal.Logger
}

var _ ports.WorkbookReader = (*WorkbookReader)(nil)

// NewWorkbookReader creates a reader with the given configuration
func NewWorkbookReader(config ExcelConfig) *WorkbookReader {
	if config.XLSCharset == "" {
		config.XLSCharset = DefaultExcelConfig().XLSCharset
	}
	return &WorkbookReader{
		config: config,
		logger: internal.DefaultLogger.With("WorkbookReader"),
	}
}

// Read parses data into a raw table. The container format is sniffed from the
// bytes so a renamed workbook still opens; the filename is only a fallback.
func (r *WorkbookReader) Read(ctx context.Context, filename string, data []byte) (*ingestion.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty workbook")
	}

	format := detectFormat(filename, data)
	start := time.Now()

	var table *ingestion.RawTable
	var err error
	switch format {
	case formatOOXML:
		table, err = r.readXLSX(data)
	case formatBIFF:
		table, err = r.readXLS(data)
	default:
		return nil, fmt.Errorf("unrecognized workbook format for %s", filename)
	}
	if err != nil {
		return nil, err
	}

	table.Rows = trimTrailingEmptyRows(table.Rows)
	r.logger.Debug("read %s (%s) sheet %q in %.2fms (%d rows)",
		filename, format, table.SheetName, float64(time.Since(start).Nanoseconds())/1e6, len(table.Rows))
	return table, nil
}

// readXLSX reads the first sheet using excelize, keeping each cell's native type
func (r *WorkbookReader) readXLSX(data []byte) (*ingestion.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheetName := sheets[0]

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	rows = r.limitRows(rows)

	table := &ingestion.RawTable{SheetName: sheetName, Rows: make([][]ingestion.Cell, len(rows))}
	for rowIdx, row := range rows {
		cells := make([]ingestion.Cell, len(row))
		for colIdx, value := range row {
			cells[colIdx] = r.xlsxCell(f, sheetName, colIdx, rowIdx, value)
		}
		table.Rows[rowIdx] = cells
	}
	return table, nil
}

// xlsxCell classifies a raw cell value using the cell type recorded in the sheet
func (r *WorkbookReader) xlsxCell(f *excelize.File, sheet string, colIdx, rowIdx int, value string) ingestion.Cell {
	if strings.TrimSpace(value) == "" {
		return ingestion.EmptyCell()
	}

	cellRef, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return textOrNumber(value)
	}
	cellType, err := f.GetCellType(sheet, cellRef)
	if err != nil {
		return textOrNumber(value)
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return ingestion.TextCell(value)
	case excelize.CellTypeBool:
		if value == "1" {
			return ingestion.TextCell("TRUE")
		}
		return ingestion.TextCell("FALSE")
	default:
		return textOrNumber(value)
	}
}

// readXLS reads the first sheet of a legacy BIFF workbook. The xls library
// yields formatted strings only, so numbers are recovered by parsing.
func (r *WorkbookReader) readXLS(data []byte) (*ingestion.RawTable, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), r.config.XLSCharset)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel 97-2003 file: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("failed to open Excel 97-2003 file: no workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("failed to read first sheet")
	}

	maxRow := int(sheet.MaxRow)
	if r.config.MaxRows > 0 && maxRow >= r.config.MaxRows {
		maxRow = r.config.MaxRows - 1
	}

	table := &ingestion.RawTable{SheetName: sheet.Name, Rows: make([][]ingestion.Cell, 0, maxRow+1)}
	for i := 0; i <= maxRow; i++ {
		row := rowAt(sheet, i)
		if row == nil {
			table.Rows = append(table.Rows, []ingestion.Cell{})
			continue
		}
		last := row.LastCol()
		cells := make([]ingestion.Cell, 0, last)
		for c := 0; c < last; c++ {
			cells = append(cells, textOrNumber(row.Col(c)))
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// rowAt returns nil for a row the sheet never recorded. The xls library
// panics on those instead of returning nil.
func rowAt(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func (r *WorkbookReader) limitRows(rows [][]string) [][]string {
	if r.config.MaxRows > 0 && len(rows) > r.config.MaxRows {
		return rows[:r.config.MaxRows]
	}
	return rows
}

// textOrNumber keeps numeric-looking values as numbers and everything else as text
func textOrNumber(value string) ingestion.Cell {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ingestion.EmptyCell()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return ingestion.NumberCell(f)
	}
	return ingestion.TextCell(value)
}

func detectFormat(filename string, data []byte) workbookFormat {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return formatOOXML
	case bytes.HasPrefix(data, oleMagic):
		return formatBIFF
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return formatOOXML
	case ".xls":
		return formatBIFF
	}
	return formatUnknown
}

func trimTrailingEmptyRows(rows [][]ingestion.Cell) [][]ingestion.Cell {
	end := len(rows)
	for end > 0 && rowIsEmpty(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func rowIsEmpty(row []ingestion.Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
