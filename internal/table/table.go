// Package table implements the flat per-area statistical table the pipeline
// is built around: rows keyed by hierarchical area identifier, columns keyed
// by variable or indicator name, with explicit null tracking and negative
// sentinel semantics for suppressed values.
package table

import (
	"math"
	"sort"
)

// Boundary identifies a geographic hierarchy level, finest to coarsest.
type Boundary string

const (
	BoundaryBlockGroup Boundary = "bg"
	BoundaryTract      Boundary = "tract"
	BoundaryCounty     Boundary = "county"
)

// GEOID lengths per hierarchy level: state(2)+county(3)+tract(6)+block group(1).
const (
	geoidLenBlockGroup = 12
	geoidLenTract      = 11
	geoidLenCounty     = 5
)

// Up returns the next-coarser boundary. ok is false at the coarsest level.
func (b Boundary) Up() (Boundary, bool) {
	switch b {
	case BoundaryBlockGroup:
		return BoundaryTract, true
	case BoundaryTract:
		return BoundaryCounty, true
	default:
		return b, false
	}
}

// ParentID returns the identifier of the area enclosing geoID at boundary b.
func ParentID(geoID string, b Boundary) string {
	switch b {
	case BoundaryTract:
		if len(geoID) >= geoidLenTract {
			return geoID[:geoidLenTract]
		}
	case BoundaryCounty:
		if len(geoID) >= geoidLenCounty {
			return geoID[:geoidLenCounty]
		}
	}
	return geoID
}

// Table is a mutable area-by-variable value table. Cells are either set to a
// float64 or null (never written). Negative values are the registry's
// suppression sentinel, not measurements.
type Table struct {
	columns []string
	colSet  map[string]bool
	rows    []string
	rowSet  map[string]bool
	cells   map[string]map[string]float64
}

// New creates an empty table.
func New() *Table {
	return &Table{
		colSet: make(map[string]bool),
		rowSet: make(map[string]bool),
		cells:  make(map[string]map[string]float64),
	}
}

// AddColumn registers a column, keeping first-seen order. Registering a
// column with no values is how a systemically-empty column is represented.
func (t *Table) AddColumn(name string) {
	if !t.colSet[name] {
		t.colSet[name] = true
		t.columns = append(t.columns, name)
	}
}

// AddRow registers a row identifier, keeping first-seen order.
func (t *Table) AddRow(geoID string) {
	if !t.rowSet[geoID] {
		t.rowSet[geoID] = true
		t.rows = append(t.rows, geoID)
	}
}

// Set writes a cell, registering the row and column as needed.
func (t *Table) Set(geoID, column string, value float64) {
	t.AddRow(geoID)
	t.AddColumn(column)
	row, ok := t.cells[geoID]
	if !ok {
		row = make(map[string]float64)
		t.cells[geoID] = row
	}
	row[column] = value
}

// SetIfAbsent writes a cell only when it is currently null, and reports
// whether the write happened. This gives concurrent fetch merges their
// first-value-wins semantics.
func (t *Table) SetIfAbsent(geoID, column string, value float64) bool {
	t.AddRow(geoID)
	t.AddColumn(column)
	row, ok := t.cells[geoID]
	if !ok {
		row = make(map[string]float64)
		t.cells[geoID] = row
	}
	if _, exists := row[column]; exists {
		return false
	}
	row[column] = value
	return true
}

// Get reads a cell. ok is false when the cell is null.
func (t *Table) Get(geoID, column string) (float64, bool) {
	row, ok := t.cells[geoID]
	if !ok {
		return 0, false
	}
	v, ok := row[column]
	return v, ok
}

// Value reads a cell, returning NaN when it is null.
func (t *Table) Value(geoID, column string) float64 {
	if v, ok := t.Get(geoID, column); ok {
		return v
	}
	return math.NaN()
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Rows returns the row identifiers in insertion order.
func (t *Table) Rows() []string {
	out := make([]string, len(t.rows))
	copy(out, t.rows)
	return out
}

// HasRow reports whether the row identifier is registered.
func (t *Table) HasRow(geoID string) bool {
	return t.rowSet[geoID]
}

// HasColumn reports whether the column is registered.
func (t *Table) HasColumn(name string) bool {
	return t.colSet[name]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// DropRow removes a row and its cells.
func (t *Table) DropRow(geoID string) {
	if !t.rowSet[geoID] {
		return
	}
	delete(t.rowSet, geoID)
	delete(t.cells, geoID)
	for i, id := range t.rows {
		if id == geoID {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
}

// SortRows orders the row index lexicographically by identifier.
func (t *Table) SortRows() {
	sort.Strings(t.rows)
}
