package exporter

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"svindex/internal/svi"
	"svindex/internal/table"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteTable(t *testing.T) {
	dir := t.TempDir()

	tbl := table.New()
	tbl.Set("484530011001", "QPOVTY", 0.25)
	tbl.Set("484530011001", "MEDAGE", 41.5)
	tbl.Set("484530011002", "QPOVTY", 0.1)
	tbl.Set("484530011002", "MEDAGE", math.NaN())

	w := NewCSVWriter(dir, nil)
	require.NoError(t, w.WriteTable("out/svi.csv", tbl))

	records := readCSV(t, filepath.Join(dir, "out", "svi.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"geoid", "QPOVTY", "MEDAGE"}, records[0])
	assert.Equal(t, []string{"484530011001", "0.25", "41.5"}, records[1])
	// NaN serializes as an empty field.
	assert.Equal(t, []string{"484530011002", "0.1", ""}, records[2])
}

func TestWriteAudit(t *testing.T) {
	dir := t.TempDir()

	audit := table.NewAudit()
	audit.Record("484530011001", "B25077_001E", table.MethodInterpolated)
	audit.Record("484530011002", "B19301_001E", table.MethodUnresolved)

	w := NewCSVWriter(dir, nil)
	require.NoError(t, w.WriteAudit("audit.csv", audit))

	records := readCSV(t, filepath.Join(dir, "audit.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"484530011001", "B25077_001E", "Interpolated"}, records[1])
	assert.Equal(t, []string{"484530011002", "B19301_001E", "Unresolved"}, records[2])
}

func TestWriteMethodology(t *testing.T) {
	dir := t.TempDir()

	fa := &svi.FactorResult{
		Included: []string{"C1", "C2"},
		Excluded: []string{"C3"},
		Iterations: []svi.IterationSnapshot{
			{
				Pass:          0,
				Columns:       []string{"C1", "C2", "C3"},
				Factors:       1,
				Eigenvalues:   []float64{2.1, 0.7, 0.2},
				Loadings:      [][]float64{{0.98}, {0.97}, {0.36}},
				SSLoadings:    []float64{2.03},
				ProportionVar: []float64{0.68},
				CumulativeVar: []float64{0.68},
				RatioVar:      []float64{1},
				Significant:   [][]string{{"C1", "C2"}},
				Include:       []string{"C1", "C2"},
			},
			{
				Pass:          1,
				Columns:       []string{"C1", "C2"},
				Factors:       1,
				Eigenvalues:   []float64{2, 0},
				Loadings:      [][]float64{{1}, {1}},
				SSLoadings:    []float64{2},
				ProportionVar: []float64{1},
				CumulativeVar: []float64{1},
				RatioVar:      []float64{1},
				Significant:   [][]string{{"C1", "C2"}},
				Include:       []string{"C1", "C2"},
			},
		},
	}

	w := NewWorkbookWriter(dir, nil)
	require.NoError(t, w.WriteMethodology("methodology.xlsx", fa))

	f, err := excelize.OpenFile(filepath.Join(dir, "methodology.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{SheetSignificant, SheetLoadings, SheetAllVariance, SheetFinal, SheetIncluded},
		f.GetSheetList())

	v, err := f.GetCellValue(SheetSignificant, "B2")
	require.NoError(t, err)
	assert.Equal(t, "C1, C2", v)

	v, err = f.GetCellValue(SheetLoadings, "A2")
	require.NoError(t, err)
	assert.Equal(t, "C1", v)
	v, err = f.GetCellValue(SheetLoadings, "B1")
	require.NoError(t, err)
	assert.Equal(t, "F1: 1", v)

	v, err = f.GetCellValue(SheetIncluded, "B2")
	require.NoError(t, err)
	assert.Equal(t, "C3", v)

	// Final variances reflect the stable pass only.
	v, err = f.GetCellValue(SheetFinal, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Pass 1", v)
}

func TestWriteMethodologyRequiresIterations(t *testing.T) {
	w := NewWorkbookWriter(t.TempDir(), nil)
	err := w.WriteMethodology("methodology.xlsx", &svi.FactorResult{})
	assert.Error(t, err)
}
