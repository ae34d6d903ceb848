package excel

import (
	"fmt"
	"io"

	"milkportal/domain/ingestion"

	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the sheet name used for generated workbooks
const TemplateSheet = "Sheet1"

// WriteTemplate writes an empty results workbook carrying only the schema header row
func WriteTemplate(w io.Writer, schema ingestion.Schema) error {
	return WriteTable(w, &ingestion.RawTable{
		SheetName: TemplateSheet,
		Rows:      [][]ingestion.Cell{headerCells(schema.Columns)},
	})
}

// WriteTable writes the table as the first sheet of a new xlsx workbook.
// Numbers stay numeric and empty cells are left unset.
func WriteTable(w io.Writer, table *ingestion.RawTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := TemplateSheet
	if table.SheetName != "" && table.SheetName != TemplateSheet {
		if err := f.SetSheetName(TemplateSheet, table.SheetName); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
		sheet = table.SheetName
	}

	for r, row := range table.Rows {
		for c, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			var value interface{} = cell.Text
			if cell.Kind == ingestion.CellNumber {
				value = cell.Number
			}
			if err := f.SetCellValue(sheet, ref, value); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func headerCells(columns []string) []ingestion.Cell {
	cells := make([]ingestion.Cell, len(columns))
	for i, col := range columns {
		cells[i] = ingestion.TextCell(col)
	}
	return cells
}
