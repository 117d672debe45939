package dataprocessing

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"

	apperrors "p2pulse/internal/errors"
)

// utf8BOM is the byte order mark some exchange exports prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RawDataset is a loaded CSV export before normalization.
type RawDataset struct {
	Header []string
	Rows   [][]string
}

// LoadCSV reads the export at path into memory. Rows that fail CSV
// parsing or whose field count differs from the header are skipped with
// a warning carrying the line number; an unreadable or headerless file
// is fatal. A file containing only a header yields zero rows.
func LoadCSV(path string, logger *slog.Logger) (*RawDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewLoadError(path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(3); err == nil && bom[0] == utf8BOM[0] && bom[1] == utf8BOM[1] && bom[2] == utf8BOM[2] {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	// The header row fixes the expected field count; ragged rows then
	// surface as recoverable parse errors below.
	reader.FieldsPerRecord = 0
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewLoadError(path, errors.New("file is empty"))
		}
		return nil, apperrors.NewLoadError(path, err)
	}

	ds := &RawDataset{Header: header}
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Warn("skipping malformed CSV row",
					slog.String("file", path),
					slog.Int("line", parseErr.Line),
					slog.String("error", parseErr.Err.Error()))
				skipped++
				continue
			}
			return nil, apperrors.NewLoadError(path, err)
		}
		ds.Rows = append(ds.Rows, record)
	}

	logger.Info("CSV loaded",
		slog.String("file", path),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("skipped", skipped))
	return ds, nil
}
