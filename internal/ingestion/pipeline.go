package ingestion

import (
	"context"
	"fmt"
	"io"
	"time"

	"milkportal/domain/ingestion"
	"milkportal/internal"
	"milkportal/ports"
)

// Summarize runs the header match, mapping, row checks, duplicate scan and
// preview over an already-parsed table. It returns the summary together with
// the full canonical record set.
func Summarize(table *ingestion.RawTable, schema ingestion.Schema, previewLimit int) (*ingestion.ValidationSummary, []ingestion.CanonicalRecord) {
	headers := table.Header()
	match := MatchHeaders(headers, schema)
	records := MapRows(table.DataRows(), headers, schema)

	summary := &ingestion.ValidationSummary{
		HeaderMatch:  match,
		Issues:       ValidateRows(records, schema),
		DuplicateIDs: FindDuplicates(records, schema),
		Preview:      Preview(records, previewLimit),
		RecordCount:  len(records),
	}
	if table != nil {
		summary.SheetName = table.SheetName
	}
	return summary, records
}

// Inspector runs the whole upload check: metadata gate, workbook parse and
// table validation. It holds no per-upload state and is safe to share.
type Inspector struct {
	reader       ports.WorkbookReader
	gate         *Gate
	schema       ingestion.Schema
	previewLimit int
	logger       *internal.Logger
}

// InspectorOption customizes an Inspector
type InspectorOption func(*Inspector)

// WithGate replaces the default gate limits
func WithGate(g *Gate) InspectorOption {
	return func(i *Inspector) { i.gate = g }
}

// WithPreviewLimit sets how many records the summary preview carries
func WithPreviewLimit(n int) InspectorOption {
	return func(i *Inspector) { i.previewLimit = n }
}

// WithSchema overrides the required schema
func WithSchema(s ingestion.Schema) InspectorOption {
	return func(i *Inspector) { i.schema = s }
}

// WithLogger sets the logger used for parse diagnostics
func WithLogger(l *internal.Logger) InspectorOption {
	return func(i *Inspector) { i.logger = l }
}

// NewInspector creates an inspector over the given workbook reader
func NewInspector(reader ports.WorkbookReader, opts ...InspectorOption) *Inspector {
	i := &Inspector{
		reader:       reader,
		gate:         NewGate(),
		schema:       ingestion.MilkYieldSchema,
		previewLimit: PreviewLimit,
		logger:       internal.DefaultLogger.With("Inspector"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Gate returns the gate used by this inspector
func (i *Inspector) Gate() *Gate {
	return i.gate
}

// Inspect checks one upload. Every problem, including a reader failure, comes
// back inside the Result; Inspect itself never fails.
func (i *Inspector) Inspect(ctx context.Context, meta ingestion.FileMeta, r io.Reader) ingestion.Result {
	result := ingestion.Result{Meta: meta}

	if reasons := i.gate.PreCheck(meta); len(reasons) > 0 {
		i.logger.Debug("rejected %s before parsing: %s", meta.Name, reasons[0].Code)
		result.Decision = ingestion.Blocked(reasons...)
		return result
	}

	data, err := i.readAll(r)
	if err != nil {
		i.logger.Warn("failed to read upload %s: %v", meta.Name, err)
		result.Decision = i.gate.Evaluate(meta, nil, err)
		return result
	}
	if int64(len(data)) > meta.Size {
		meta.Size = int64(len(data))
		result.Meta = meta
		if reasons := i.gate.PreCheck(meta); len(reasons) > 0 {
			result.Decision = ingestion.Blocked(reasons...)
			return result
		}
	}

	start := time.Now()
	table, err := i.parse(ctx, meta.Name, data)
	if err != nil {
		i.logger.Info("could not parse %s: %v", meta.Name, err)
		result.Decision = i.gate.Evaluate(meta, nil, err)
		return result
	}

	summary, records := Summarize(table, i.schema, i.previewLimit)
	result.Summary = summary
	result.Records = records
	result.Decision = i.gate.Evaluate(meta, summary, nil)

	i.logger.Debug("inspected %s in %.2fms: %d records, %d issues, %d duplicates, admitted=%t",
		meta.Name, float64(time.Since(start).Nanoseconds())/1e6,
		summary.RecordCount, len(summary.Issues), len(summary.DuplicateIDs), result.Decision.Admitted)
	return result
}

// readAll reads at most one byte past the size limit so oversize streams are
// detected without buffering them whole
func (i *Inspector) readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("no file content")
	}
	return io.ReadAll(io.LimitReader(r, i.gate.maxFileSize()+1))
}

// parse shields callers from reader panics on malformed workbooks
func (i *Inspector) parse(ctx context.Context, name string, data []byte) (table *ingestion.RawTable, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			table = nil
			err = fmt.Errorf("workbook reader panicked: %v", rec)
		}
	}()
	table, err = i.reader.Read(ctx, name, data)
	if err == nil && table == nil {
		err = fmt.Errorf("workbook reader returned no table")
	}
	return table, err
}
