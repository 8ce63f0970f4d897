// Package exporter writes run artifacts to disk: the resolved data table
// and the final index table as CSV, the hole-resolution audit trail, and
// the factor-analysis methodology workbook.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"svindex/internal/table"
)

// CSVWriter writes tables under a base output directory.
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a writer rooted at baseDir.
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: logger}
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes records to a CSV file under the base directory.
func (w *CSVWriter) WriteCSV(name string, options WriteOptions) error {
	fullPath := filepath.Join(w.baseDir, name)

	w.logger.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// WriteTable dumps a table as CSV with a leading geoid column, rows in the
// table's order. Null and NaN cells become empty fields.
func (w *CSVWriter) WriteTable(name string, tbl *table.Table) error {
	cols := tbl.Columns()
	headers := append([]string{"geoid"}, cols...)

	records := make([][]string, 0, tbl.Len())
	for _, geoID := range tbl.Rows() {
		record := make([]string, 0, len(headers))
		record = append(record, geoID)
		for _, col := range cols {
			record = append(record, formatCell(tbl, geoID, col))
		}
		records = append(records, record)
	}
	return w.WriteCSV(name, WriteOptions{Headers: headers, Records: records, BOMPrefix: true})
}

// WriteAudit dumps the hole-resolution audit trail.
func (w *CSVWriter) WriteAudit(name string, audit *table.Audit) error {
	records := make([][]string, 0, len(audit.Entries))
	for _, e := range audit.Entries {
		records = append(records, []string{e.GeoID, e.Variable, string(e.Method)})
	}
	return w.WriteCSV(name, WriteOptions{
		Headers: []string{"geoid", "variable", "method"},
		Records: records,
	})
}

func formatCell(tbl *table.Table, geoID, col string) string {
	v, ok := tbl.Get(geoID, col)
	if !ok || math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
