package svi

import (
	"svindex/internal/table"
)

// Score column names in the output table.
const (
	ColFAUnscaled   = "FA_SVI_Unscaled"
	ColFAScaled     = "FA_SVI_Scaled"
	ColFARank       = "FA_SVI_Rank"
	ColFAPercentile = "FA_SVI_Percentile"
	ColRMRank       = "RM_SVI_Rank"
	ColRMPercentile = "RM_SVI_Percentile"
)

// ScoreColumns lists the six score columns in output order.
func ScoreColumns() []string {
	return []string{
		ColFAUnscaled, ColFAScaled, ColFARank, ColFAPercentile,
		ColRMRank, ColRMPercentile,
	}
}

// Result bundles everything a synthesis run produced.
type Result struct {
	Compiled   *table.Table
	Issues     []CellIssue
	Factor     *FactorResult
	RankMethod *RankResult
	// Flipped records whether the orientation check inverted the factor
	// scores.
	Flipped bool
}

// Table assembles the output table: the compiled indicator columns followed
// by both methods' score columns.
func (r *Result) Table() *table.Table {
	out := table.New()
	for _, col := range r.Compiled.Columns() {
		out.AddColumn(col)
	}
	for _, col := range ScoreColumns() {
		out.AddColumn(col)
	}
	for i, geoID := range r.Factor.GeoIDs {
		out.AddRow(geoID)
		for _, col := range r.Compiled.Columns() {
			if v, ok := r.Compiled.Get(geoID, col); ok {
				out.Set(geoID, col, v)
			}
		}
		out.Set(geoID, ColFAUnscaled, r.Factor.Unscaled[i])
		out.Set(geoID, ColFAScaled, r.Factor.Scaled[i])
		out.Set(geoID, ColFARank, r.Factor.Rank[i])
		out.Set(geoID, ColFAPercentile, r.Factor.Percentile[i])
		out.Set(geoID, ColRMRank, r.RankMethod.Rank[i])
		out.Set(geoID, ColRMPercentile, r.RankMethod.Percentile[i])
	}
	return out
}
