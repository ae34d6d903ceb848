package ports

import (
	"context"

	"milkportal/domain/ingestion"
)

// WorkbookReader turns uploaded spreadsheet bytes into the raw rows of the
// first sheet. Implementations return an error for anything they cannot parse.
type WorkbookReader interface {
	Read(ctx context.Context, filename string, data []byte) (*ingestion.RawTable, error)
}
