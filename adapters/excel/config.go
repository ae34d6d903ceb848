package excel

// ExcelConfig holds workbook parsing settings
type ExcelConfig struct {
	// XLSCharset is the code page assumed for legacy BIFF workbooks
	XLSCharset string `json:"xls_charset"`
	// MaxRows bounds how many rows are read from the first sheet; 0 means no limit
	MaxRows int `json:"max_rows"`
}

// DefaultExcelConfig returns sensible defaults for upload parsing
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		XLSCharset: "utf-8",
		MaxRows:    0,
	}
}
