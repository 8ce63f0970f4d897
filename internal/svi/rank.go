package svi

import (
	"math"
	"sort"

	"svindex/internal/table"
)

// RankResult carries the rank-sum method's scores, aligned with GeoIDs.
type RankResult struct {
	GeoIDs     []string
	SumRank    []float64
	Rank       []float64
	Percentile []float64
}

// SynthesizeRank computes the rank-sum score: each indicator column is ranked
// descending (most vulnerable first), the per-area ranks are summed, and the
// sums are ranked again. The percentile is the descending percentile rank of
// the sum, so a percentile near 1 marks the most vulnerable areas.
func SynthesizeRank(compiled *table.Table) *RankResult {
	geoIDs := compiled.Rows()
	n := len(geoIDs)

	sums := make([]float64, n)
	for _, col := range compiled.Columns() {
		vals := make([]float64, n)
		for i, geoID := range geoIDs {
			vals[i] = compiled.Value(geoID, col)
		}
		for i, r := range rankDesc(vals) {
			if !math.IsNaN(r) {
				sums[i] += r
			}
		}
	}

	return &RankResult{
		GeoIDs:     geoIDs,
		SumRank:    sums,
		Rank:       rankAsc(sums),
		Percentile: pctRankDesc(sums),
	}
}

// rankAsc assigns average-tie ranks with the smallest value ranked 1. NaN
// inputs keep a NaN rank and do not consume a rank position.
func rankAsc(v []float64) []float64 {
	return rankValues(v, true)
}

// rankDesc assigns average-tie ranks with the largest value ranked 1.
func rankDesc(v []float64) []float64 {
	return rankValues(v, false)
}

// pctRankDesc returns each value's descending rank divided by the count of
// ranked values, so the smallest value lands at percentile 1.
func pctRankDesc(v []float64) []float64 {
	out := rankDesc(v)
	var count float64
	for _, x := range v {
		if !math.IsNaN(x) {
			count++
		}
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}

func rankValues(v []float64, ascending bool) []float64 {
	out := make([]float64, len(v))
	idx := make([]int, 0, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			out[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if ascending {
			return v[idx[a]] < v[idx[b]]
		}
		return v[idx[a]] > v[idx[b]]
	})
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}
