package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"p2pulse/internal/files"
	"p2pulse/pkg/contracts/domain"
)

// CSVWriter writes metric tables as UTF-8 CSV files with a BOM prefix
// so spreadsheet applications detect the encoding.
type CSVWriter struct {
	layout files.Layout
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at the output layout.
func NewCSVWriter(layout files.Layout, logger *slog.Logger) *CSVWriter {
	return &CSVWriter{layout: layout, logger: logger}
}

// WriteTables writes every table for one partition.
func (w *CSVWriter) WriteTables(period, bucket string, tables []domain.Table) error {
	for _, table := range tables {
		path := w.layout.TablePath(period, bucket, table.Name)
		if err := w.writeTable(path, table); err != nil {
			return fmt.Errorf("write table %s: %w", table.Name, err)
		}
	}
	w.logger.Info("CSV tables written",
		slog.String("period", period),
		slog.String("bucket", bucket),
		slog.Int("tables", len(tables)))
	return nil
}

func (w *CSVWriter) writeTable(path string, table domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
