// Package resolve repairs missing data in a raw statistical table: it fills
// systemically-empty columns from the next hierarchy level up, estimates
// suppressed point values from neighboring areas' grouped-frequency
// distributions, and borrows from enclosing geographies for whatever
// remains.
package resolve

import (
	"context"

	"svindex/internal/table"
)

// Strategy is one hole-repair capability. Strategies are tried in order per
// hole; the first successful attempt wins. An attempt that simply does not
// apply (wrong variable, gated out) returns ok=false with a nil error.
type Strategy interface {
	// Method names the audit marker written when this strategy fills a hole.
	Method() table.Method
	// Attempt tries to produce a replacement value for the hole.
	Attempt(ctx context.Context, hole table.CellRef) (value float64, ok bool, err error)
}

// levelFiller borrows the hole's value from the enclosing area at a coarser
// hierarchy level, using a supplemental table pulled at that level.
type levelFiller struct {
	method table.Method
	level  table.Boundary
	source *table.Table
}

// newTractFiller builds the first hierarchical fallback tier.
func newTractFiller(source *table.Table) Strategy {
	return &levelFiller{method: table.MethodTractFilled, level: table.BoundaryTract, source: source}
}

// newCountyFiller builds the coarsest fallback tier.
func newCountyFiller(source *table.Table) Strategy {
	return &levelFiller{method: table.MethodCountyFilled, level: table.BoundaryCounty, source: source}
}

func (l *levelFiller) Method() table.Method {
	return l.method
}

func (l *levelFiller) Attempt(_ context.Context, hole table.CellRef) (float64, bool, error) {
	parent := table.ParentID(hole.GeoID, l.level)
	v, ok := l.source.Get(parent, hole.Variable)
	if !ok || v < 0 {
		// The enclosing area's value is itself a hole; escalate.
		return 0, false, nil
	}
	return v, true, nil
}
