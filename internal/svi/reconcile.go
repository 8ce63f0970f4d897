package svi

import (
	"math"
	"sort"
)

// Reconcile checks that the two methods agree on which end of the scale is
// vulnerable. Areas are ordered by the factor rank and a least-squares
// slope is fit through each method's rank sequence; opposite signs mean the
// factor scores came out upside down, and its scaled value, rank, and
// percentile are flipped from their maxima. Reports whether a flip
// happened.
func Reconcile(fa *FactorResult, rm *RankResult) bool {
	order := make([]int, len(fa.GeoIDs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := fa.Rank[order[a]], fa.Rank[order[b]]
		if math.IsNaN(rb) {
			return !math.IsNaN(ra)
		}
		if math.IsNaN(ra) {
			return false
		}
		return ra < rb
	})

	faSeq := make([]float64, len(order))
	rmSeq := make([]float64, len(order))
	for pos, i := range order {
		faSeq[pos] = fa.Rank[i]
		rmSeq[pos] = rm.Rank[i]
	}

	s1 := slope(faSeq)
	s2 := slope(rmSeq)
	if math.IsNaN(s1) || math.IsNaN(s2) || (s1 >= 0) == (s2 >= 0) {
		return false
	}

	flipFromMax(fa.Scaled)
	flipFromMax(fa.Rank)
	flipFromMax(fa.Percentile)
	return true
}

// slope fits y = a + b*pos by least squares over the non-NaN entries and
// returns b. NaN when fewer than two points remain.
func slope(y []float64) float64 {
	var n, sumX, sumY, sumXX, sumXY float64
	for pos, v := range y {
		if math.IsNaN(v) {
			continue
		}
		x := float64(pos)
		n++
		sumX += x
		sumY += v
		sumXX += x * x
		sumXY += x * v
	}
	den := n*sumXX - sumX*sumX
	if n < 2 || den == 0 {
		return math.NaN()
	}
	return (n*sumXY - sumX*sumY) / den
}

func flipFromMax(v []float64) {
	hi := math.Inf(-1)
	for _, x := range v {
		if !math.IsNaN(x) {
			hi = math.Max(hi, x)
		}
	}
	if math.IsInf(hi, -1) {
		return
	}
	for i, x := range v {
		if !math.IsNaN(x) {
			v[i] = hi - x
		}
	}
}
