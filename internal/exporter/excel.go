package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"p2pulse/internal/analytics"
	"p2pulse/internal/files"
	"p2pulse/pkg/contracts/domain"
)

// sheetNameLimit is the Excel hard cap on sheet name length.
const sheetNameLimit = 31

// ExcelWriter renders one summary workbook per partition: an overview
// sheet followed by one sheet per included metric table.
type ExcelWriter struct {
	layout        files.Layout
	includeTables []string
	logger        *slog.Logger
}

// NewExcelWriter creates an Excel writer. includeTables selects which
// tables get a sheet; an empty list includes them all.
func NewExcelWriter(layout files.Layout, includeTables []string, logger *slog.Logger) *ExcelWriter {
	return &ExcelWriter{layout: layout, includeTables: includeTables, logger: logger}
}

// WriteWorkbook writes the summary workbook for one partition.
func (w *ExcelWriter) WriteWorkbook(res *analytics.Result, tables []domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeOverview(f, res); err != nil {
		return err
	}

	for _, table := range tables {
		if !w.included(table.Name) {
			continue
		}
		if err := writeSheet(f, table); err != nil {
			return fmt.Errorf("sheet %s: %w", table.Name, err)
		}
	}

	path := w.layout.WorkbookPath(res.Meta.Period, res.Meta.Bucket)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("Excel workbook written",
		slog.String("period", res.Meta.Period),
		slog.String("bucket", res.Meta.Bucket),
		slog.String("path", path))
	return nil
}

func (w *ExcelWriter) included(name string) bool {
	if len(w.includeTables) == 0 {
		return true
	}
	for _, t := range w.includeTables {
		if t == name {
			return true
		}
	}
	return false
}

// writeOverview repurposes the default sheet as the overview.
func (w *ExcelWriter) writeOverview(f *excelize.File, res *analytics.Result) error {
	const sheet = "Overview"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename overview sheet: %w", err)
	}

	rows := [][]any{
		{"Period", res.Meta.Period},
		{"Status bucket", res.Meta.Bucket},
		{"Operations", res.Meta.Rows},
		{"Whale trades", res.WhaleCount},
		{"Price outliers", res.OutlierCount},
	}
	if res.WhaleThreshold != nil {
		rows = append(rows, []any{"Whale threshold", formatFloat(*res.WhaleThreshold)})
	}
	for _, d := range res.Diagnostics {
		rows = append(rows, []any{"Skipped: " + d.Metric, d.Reason})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("overview row %d: %w", i, err)
		}
	}
	return nil
}

func writeSheet(f *excelize.File, table domain.Table) error {
	name := table.Name
	if len(name) > sheetNameLimit {
		name = name[:sheetNameLimit]
	}
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}
