package table

// CellRef identifies a single cell by row and column.
type CellRef struct {
	GeoID    string
	Variable string
}

// Holes is the result of scanning a table for missing data. EmptyColumns are
// columns null for every row (the registry does not publish the variable at
// this level). Cells are individual suppressed values, carrying the negative
// sentinel. Variables is the distinct set of columns involved in Cells,
// first-seen order.
type Holes struct {
	EmptyColumns []string
	Cells        []CellRef
	Variables    []string
}

// Empty reports whether the scan found nothing to repair.
func (h Holes) Empty() bool {
	return len(h.EmptyColumns) == 0 && len(h.Cells) == 0
}

// DetectHoles scans the table for systemically-empty columns and suppressed
// cells. The scan never mutates the table.
func DetectHoles(t *Table) Holes {
	var holes Holes

	for _, col := range t.columns {
		empty := true
		for _, geoID := range t.rows {
			if _, ok := t.Get(geoID, col); ok {
				empty = false
				break
			}
		}
		if empty && len(t.rows) > 0 {
			holes.EmptyColumns = append(holes.EmptyColumns, col)
		}
	}

	seen := make(map[string]bool)
	for _, geoID := range t.rows {
		for _, col := range t.columns {
			v, ok := t.Get(geoID, col)
			if !ok || v >= 0 {
				continue
			}
			holes.Cells = append(holes.Cells, CellRef{GeoID: geoID, Variable: col})
			if !seen[col] {
				seen[col] = true
				holes.Variables = append(holes.Variables, col)
			}
		}
	}

	return holes
}
