package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"svindex/internal/svi"
)

// Workbook sheet names, one per methodology artifact.
const (
	SheetSignificant = "Significant Components"
	SheetLoadings    = "Loading Factors"
	SheetAllVariance = "All Refactor Variances"
	SheetFinal       = "Final Variances"
	SheetIncluded    = "Included and Excluded"
)

var varianceLabels = []string{"SS Loadings", "Proportion Variance", "Cumulative Variance", "Ratio Variance"}

// WorkbookWriter documents a factor-analysis run as an Excel workbook so
// the methodology behind an index can be audited after the fact.
type WorkbookWriter struct {
	baseDir string
	logger  *slog.Logger
}

func NewWorkbookWriter(baseDir string, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{baseDir: baseDir, logger: logger}
}

// WriteMethodology writes the per-pass factor statistics of a synthesis run.
func (w *WorkbookWriter) WriteMethodology(name string, fa *svi.FactorResult) error {
	if len(fa.Iterations) == 0 {
		return fmt.Errorf("no factor iterations to document")
	}
	fullPath := filepath.Join(w.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	final := fa.Iterations[len(fa.Iterations)-1]

	if err := f.SetSheetName("Sheet1", SheetSignificant); err != nil {
		return fmt.Errorf("renaming default sheet: %w", err)
	}
	writeSignificant(f, final)

	for _, sheet := range []string{SheetLoadings, SheetAllVariance, SheetFinal, SheetIncluded} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
	}

	writeLoadings(f, final)

	row := 1
	for _, snap := range fa.Iterations {
		row = writeVarianceBlock(f, SheetAllVariance, row, snap) + 1
	}
	writeVarianceBlock(f, SheetFinal, 1, final)

	setCell(f, SheetIncluded, 1, 1, "include")
	setCell(f, SheetIncluded, 2, 1, strings.Join(fa.Included, ", "))
	setCell(f, SheetIncluded, 1, 2, "exclude")
	setCell(f, SheetIncluded, 2, 2, strings.Join(fa.Excluded, ", "))

	w.logger.Info("writing methodology workbook",
		slog.String("path", fullPath),
		slog.Int("passes", len(fa.Iterations)))
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func factorLabel(pass, i int) string {
	return fmt.Sprintf("F%d: %d", pass, i+1)
}

func writeSignificant(f *excelize.File, snap svi.IterationSnapshot) {
	setCell(f, SheetSignificant, 1, 1, "Factor")
	setCell(f, SheetSignificant, 2, 1, "Sig Components")
	for j, components := range snap.Significant {
		setCell(f, SheetSignificant, 1, j+2, factorLabel(snap.Pass, j))
		setCell(f, SheetSignificant, 2, j+2, strings.Join(components, ", "))
	}
}

func writeLoadings(f *excelize.File, snap svi.IterationSnapshot) {
	for j := 0; j < snap.Factors; j++ {
		setCell(f, SheetLoadings, j+2, 1, factorLabel(snap.Pass, j))
	}
	for i, col := range snap.Columns {
		setCell(f, SheetLoadings, 1, i+2, col)
		for j := 0; j < snap.Factors; j++ {
			setCell(f, SheetLoadings, j+2, i+2, snap.Loadings[i][j])
		}
	}
}

// writeVarianceBlock writes one pass's variance statistics starting at row
// and returns the last row used.
func writeVarianceBlock(f *excelize.File, sheet string, row int, snap svi.IterationSnapshot) int {
	setCell(f, sheet, 1, row, fmt.Sprintf("Pass %d", snap.Pass))
	for j := 0; j < snap.Factors; j++ {
		setCell(f, sheet, j+2, row, factorLabel(snap.Pass, j))
	}
	stats := [][]float64{snap.SSLoadings, snap.ProportionVar, snap.CumulativeVar, snap.RatioVar}
	for s, label := range varianceLabels {
		setCell(f, sheet, 1, row+s+1, label)
		for j := 0; j < snap.Factors; j++ {
			setCell(f, sheet, j+2, row+s+1, stats[s][j])
		}
	}
	return row + len(varianceLabels)
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	_ = f.SetCellValue(sheet, cell, value)
}
