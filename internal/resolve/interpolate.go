package resolve

import (
	"context"
	"log/slog"
	"math"

	"svindex/internal/catalog"
	"svindex/internal/geometry"
	"svindex/internal/table"
)

// interpolator estimates a suppressed point value (median rent, median home
// value, median age) by pooling the grouped-frequency distribution of the
// hole area together with its adjacent areas and taking the grouped median
// of the pooled counts.
type interpolator struct {
	specs     map[string]catalog.GroupedFrequency
	brackets  *table.Table
	neighbors geometry.NeighborIndex
	floor     float64
	logger    *slog.Logger
}

func newInterpolator(brackets *table.Table, neighbors geometry.NeighborIndex, floor float64, logger *slog.Logger) Strategy {
	return &interpolator{
		specs:     catalog.GroupedFrequencies(),
		brackets:  brackets,
		neighbors: neighbors,
		floor:     floor,
		logger:    logger,
	}
}

func (i *interpolator) Method() table.Method {
	return table.MethodInterpolated
}

func (i *interpolator) Attempt(ctx context.Context, hole table.CellRef) (float64, bool, error) {
	spec, ok := i.specs[hole.Variable]
	if !ok {
		// Not a point variable with a published distribution.
		return 0, false, nil
	}

	pool := append([]string{hole.GeoID}, i.neighbors.Neighbors(hole.GeoID)...)

	var total float64
	freqs := make([]float64, len(spec.Brackets))
	for _, geoID := range pool {
		if !i.brackets.HasRow(geoID) {
			continue
		}
		if v := i.brackets.Value(geoID, spec.Total); v > 0 {
			total += v
		}
		for bi, b := range spec.Brackets {
			for _, code := range b.Codes {
				if v := i.brackets.Value(geoID, code); v > 0 {
					freqs[bi] += v
				}
			}
		}
	}

	estimate, ok := groupedMedian(freqs, total, spec.Brackets, i.floor, i.logger, hole)
	if !ok {
		return 0, false, nil
	}
	return estimate, true, nil
}

// groupedMedian locates the bracket containing the pooled sample's median
// observation and interpolates linearly inside it. It refuses when the
// sample is too small to trust or when the median lands in the first
// bracket, whose lower edge is a floor rather than a measurement.
func groupedMedian(freqs []float64, total float64, brackets []catalog.Bracket, floor float64, logger *slog.Logger, hole table.CellRef) (float64, bool) {
	if total <= floor {
		return 0, false
	}

	half := total / 2
	cum := 0.0
	idx := -1
	var before float64
	for bi, f := range freqs {
		before = cum
		cum += f
		if cum >= half {
			idx = bi
			break
		}
	}
	if idx <= 0 {
		// idx==0 means the pooled distribution is bottom-heavy enough that
		// any interior estimate would be fiction.
		return 0, false
	}

	freq := freqs[idx]
	b := brackets[idx]
	width := b.High - b.Low
	needed := math.Round(half) - before
	var p float64
	if freq > 0 {
		p = needed / freq
	} else if logger != nil {
		logger.Warn("median bracket has zero frequency, estimating at bracket floor",
			slog.String("geo_id", hole.GeoID),
			slog.String("variable", hole.Variable))
	}
	return p*width + b.Low, true
}
