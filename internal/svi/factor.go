package svi

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"svindex/internal/errs"
	"svindex/internal/table"
)

// IterationSnapshot documents one factor-analysis pass for the run's
// methodology workbook.
type IterationSnapshot struct {
	Pass          int
	Columns       []string
	Factors       int
	Eigenvalues   []float64
	Loadings      [][]float64
	SSLoadings    []float64
	ProportionVar []float64
	CumulativeVar []float64
	RatioVar      []float64
	Significant   [][]string
	Include       []string
}

// FactorResult carries the factor-analysis scores, aligned with GeoIDs.
type FactorResult struct {
	GeoIDs     []string
	Unscaled   []float64
	Scaled     []float64
	Rank       []float64
	Percentile []float64
	Included   []string
	Excluded   []string
	Iterations []IterationSnapshot
}

// Synthesizer runs the iterative factor analysis. Threshold is the loading
// magnitude, after rounding to one decimal, at which an indicator counts as
// significant on a retained factor.
type Synthesizer struct {
	Threshold float64
	logger    *slog.Logger
}

func NewSynthesizer(threshold float64, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{Threshold: threshold, logger: logger}
}

// Synthesize compiles the factor-analysis score for every area in the
// indicator table. Indicators are min-max scaled, factored, and iteratively
// winnowed: only indicators loading significantly on a factor that clears
// the Kaiser criterion (eigenvalue at least 1) survive into the next pass.
// Once the surviving set stops shrinking, per-area factor scores are
// combined weighted by each factor's share of the explained variance.
func (s *Synthesizer) Synthesize(compiled *table.Table) (*FactorResult, error) {
	const op = "svi.Synthesize"

	geoIDs := compiled.Rows()
	if len(geoIDs) < 2 {
		return nil, errs.Degeneracy(op, "%d areas is too few to factor", len(geoIDs))
	}

	scaled := make(map[string][]float64)
	for _, col := range compiled.Columns() {
		vals := make([]float64, len(geoIDs))
		for i, geoID := range geoIDs {
			vals[i] = compiled.Value(geoID, col)
		}
		sc, ok := minMaxScale(vals)
		if !ok {
			return nil, errs.Degeneracy(op, "indicator %s has no variance", col)
		}
		scaled[col] = sc
	}

	var (
		iterations []IterationSnapshot
		current    = compiled.Columns()
		vectors    *mat.Dense
		order      []int
		factors    int
		ratioVar   []float64
	)
	for pass := 0; ; pass++ {
		x := designMatrix(current, scaled, len(geoIDs), true)

		var corr mat.SymDense
		stat.CorrelationMatrix(&corr, x, nil)

		var eig mat.EigenSym
		if !eig.Factorize(&corr, true) {
			return nil, errs.Degeneracy(op, "eigendecomposition failed on pass %d", pass)
		}
		asc := eig.Values(nil)
		var vecs mat.Dense
		eig.VectorsTo(&vecs)

		// Values come back ascending; the analysis wants them largest first.
		ord := make([]int, len(asc))
		eigenvalues := make([]float64, len(asc))
		for i := range asc {
			ord[i] = len(asc) - 1 - i
			eigenvalues[i] = asc[ord[i]]
		}

		k := 0
		for _, ev := range eigenvalues {
			if ev >= 1 {
				k++
			}
		}
		if k == 0 {
			return nil, errs.Degeneracy(op, "no factor clears the retention criterion on pass %d", pass)
		}

		snap := s.analyzePass(pass, current, k, eigenvalues, &vecs, ord)
		iterations = append(iterations, snap)

		if len(snap.Include) == 0 {
			return nil, errs.Degeneracy(op, "no indicator loads significantly on pass %d", pass)
		}
		if len(snap.Include) == len(current) {
			vectors = &vecs
			order = ord
			factors = k
			ratioVar = snap.RatioVar
			break
		}
		s.logger.Info("refactoring on reduced indicator set",
			slog.Int("pass", pass),
			slog.Int("kept", len(snap.Include)),
			slog.Int("dropped", len(current)-len(snap.Include)))
		current = snap.Include
	}

	unscaled := scoreAreas(current, scaled, len(geoIDs), vectors, order, factors, ratioVar)
	scaledIdx, ok := minMaxScale(unscaled)
	if !ok {
		return nil, errs.Degeneracy(op, "composite score is constant across all areas")
	}

	rank := rankDesc(scaledIdx)
	return &FactorResult{
		GeoIDs:     geoIDs,
		Unscaled:   unscaled,
		Scaled:     scaledIdx,
		Rank:       rank,
		Percentile: pctRankDesc(rank),
		Included:   current,
		Excluded:   setDiff(compiled.Columns(), current),
		Iterations: iterations,
	}, nil
}

// analyzePass computes loadings and variance statistics for one pass and
// decides which indicators survive it.
func (s *Synthesizer) analyzePass(pass int, cols []string, k int, eigenvalues []float64, vecs *mat.Dense, ord []int) IterationSnapshot {
	p := len(cols)

	loadings := make([][]float64, p)
	for i := 0; i < p; i++ {
		loadings[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			loadings[i][j] = vecs.At(i, ord[j]) * math.Sqrt(math.Max(eigenvalues[j], 0))
		}
	}

	ss := make([]float64, k)
	for j := 0; j < k; j++ {
		for i := 0; i < p; i++ {
			ss[j] += loadings[i][j] * loadings[i][j]
		}
	}
	prop := make([]float64, k)
	cum := make([]float64, k)
	var total, running float64
	for _, v := range ss {
		total += v
	}
	ratio := make([]float64, k)
	for j := 0; j < k; j++ {
		prop[j] = ss[j] / float64(p)
		running += prop[j]
		cum[j] = running
		ratio[j] = ss[j] / total
	}

	significant := make([][]string, k)
	var include []string
	seen := make(map[string]bool)
	for j := 0; j < k; j++ {
		for i, col := range cols {
			rounded := math.Round(loadings[i][j]*10) / 10
			if math.Abs(rounded) < s.Threshold {
				continue
			}
			significant[j] = append(significant[j], col)
			if !seen[col] {
				seen[col] = true
				include = append(include, col)
			}
		}
	}

	return IterationSnapshot{
		Pass:          pass,
		Columns:       cols,
		Factors:       k,
		Eigenvalues:   eigenvalues,
		Loadings:      loadings,
		SSLoadings:    ss,
		ProportionVar: prop,
		CumulativeVar: cum,
		RatioVar:      ratio,
		Significant:   significant,
		Include:       include,
	}
}

// scoreAreas projects the scaled data onto the retained factor axes and
// sums the projections weighted by each factor's variance share. Remaining
// NaN cells contribute nothing to the projection.
func scoreAreas(cols []string, scaled map[string][]float64, n int, vecs *mat.Dense, ord []int, k int, ratioVar []float64) []float64 {
	x := designMatrix(cols, scaled, n, false)
	out := make([]float64, n)
	for a := 0; a < n; a++ {
		var score float64
		for j := 0; j < k; j++ {
			var proj float64
			for i := range cols {
				proj += x.At(a, i) * vecs.At(i, ord[j])
			}
			score += proj * ratioVar[j]
		}
		out[a] = score
	}
	return out
}

// designMatrix lays out the scaled columns as an observations-by-indicators
// matrix. fillMean substitutes a column's mean for its NaN cells, which the
// correlation step needs; the scoring step fills zeros instead.
func designMatrix(cols []string, scaled map[string][]float64, n int, fillMean bool) *mat.Dense {
	x := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		vals := scaled[col]
		var fill float64
		if fillMean {
			var sum, cnt float64
			for _, v := range vals {
				if !math.IsNaN(v) {
					sum += v
					cnt++
				}
			}
			if cnt > 0 {
				fill = sum / cnt
			}
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				v = fill
			}
			x.Set(i, j, v)
		}
	}
	return x
}

// minMaxScale maps values onto [0, 1], ignoring NaN cells. It reports false
// when the non-NaN values have no spread.
func minMaxScale(v []float64) ([]float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if math.IsInf(lo, 1) || hi == lo {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x - lo) / (hi - lo)
	}
	return out, true
}

func setDiff(all, keep []string) []string {
	kept := make(map[string]bool, len(keep))
	for _, c := range keep {
		kept[c] = true
	}
	var out []string
	for _, c := range all {
		if !kept[c] {
			out = append(out, c)
		}
	}
	return out
}
