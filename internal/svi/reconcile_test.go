package svi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileAgreement(t *testing.T) {
	fa := &FactorResult{
		GeoIDs:     testAreas,
		Scaled:     []float64{0, 0.3, 0.7, 1},
		Rank:       []float64{4, 3, 2, 1},
		Percentile: []float64{0.25, 0.5, 0.75, 1},
	}
	rm := &RankResult{
		GeoIDs: testAreas,
		Rank:   []float64{4, 3, 2, 1},
	}

	flipped := Reconcile(fa, rm)
	assert.False(t, flipped)
	assert.Equal(t, []float64{0, 0.3, 0.7, 1}, fa.Scaled)
}

func TestReconcileFlipsOpposedOrientation(t *testing.T) {
	// The factor method ranked the areas in exactly the opposite order of
	// the rank-sum method, so its scores must be inverted.
	fa := &FactorResult{
		GeoIDs:     testAreas,
		Scaled:     []float64{1, 0.7, 0.3, 0},
		Rank:       []float64{1, 2, 3, 4},
		Percentile: []float64{1, 0.75, 0.5, 0.25},
	}
	rm := &RankResult{
		GeoIDs: testAreas,
		Rank:   []float64{4, 3, 2, 1},
	}

	flipped := Reconcile(fa, rm)
	require.True(t, flipped)

	assert.Equal(t, []float64{0, 0.3, 0.7, 1}, fa.Scaled)
	assert.Equal(t, []float64{3, 2, 1, 0}, fa.Rank)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, fa.Percentile)
}

func TestReconcileEndToEnd(t *testing.T) {
	compiled := perfectlyCorrelatedTable()

	s := NewSynthesizer(0.5, nil)
	fa, err := s.Synthesize(compiled)
	require.NoError(t, err)
	rm := SynthesizeRank(compiled)

	Reconcile(fa, rm)

	// Whatever orientation the factor extraction came out with, after
	// reconciliation the highest-valued area is the most vulnerable under
	// both methods.
	assert.Equal(t, 1.0, fa.Scaled[3])
	assert.Equal(t, 1.0, rm.Percentile[3])
	assert.Equal(t, maxSlice(fa.Percentile), fa.Percentile[3])
}
