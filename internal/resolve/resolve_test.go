package resolve

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svindex/internal/catalog"
	"svindex/internal/config"
	"svindex/internal/geometry"
	"svindex/internal/registry"
	"svindex/internal/table"
)

const sentinel = -666666666

// fakeClient serves canned rows keyed by (variable, level, prefix) and
// records every request it sees. Fetch is called from concurrent workers.
type fakeClient struct {
	mu       sync.Mutex
	rows     map[string][]registry.Row
	requests []registry.Request
}

func reqKey(variable string, level table.Boundary, prefix string) string {
	return variable + "|" + string(level) + "|" + prefix
}

func (f *fakeClient) Fetch(_ context.Context, req registry.Request) ([]registry.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.rows[reqKey(req.Variable, req.Level, req.ParentGeoID)], nil
}

func fptr(v float64) *float64 { return &v }

func TestGroupedMedian(t *testing.T) {
	spec := catalog.GroupedFrequencies()["B25077_001E"]
	require.Len(t, spec.Brackets, 26)

	t.Run("interpolates inside the median bracket", func(t *testing.T) {
		// 40 observations below, 40 in [100000, 125000), 40 above. The
		// median observation (60 of 120) sits halfway through the middle
		// block.
		freqs := make([]float64, len(spec.Brackets))
		freqs[1] = 40
		freqs[13] = 40
		freqs[20] = 40

		got, ok := groupedMedian(freqs, 120, spec.Brackets, 40, nil, table.CellRef{})
		require.True(t, ok)
		assert.InDelta(t, 112500, got, 1e-9)
	})

	t.Run("refuses a sample at or below the floor", func(t *testing.T) {
		freqs := make([]float64, len(spec.Brackets))
		freqs[13] = 40
		_, ok := groupedMedian(freqs, 40, spec.Brackets, 40, nil, table.CellRef{})
		assert.False(t, ok)
	})

	t.Run("refuses a median in the first bracket", func(t *testing.T) {
		freqs := make([]float64, len(spec.Brackets))
		freqs[0] = 100
		_, ok := groupedMedian(freqs, 100, spec.Brackets, 40, nil, table.CellRef{})
		assert.False(t, ok)
	})

	t.Run("refuses when counts never reach the median", func(t *testing.T) {
		freqs := make([]float64, len(spec.Brackets))
		freqs[13] = 10
		_, ok := groupedMedian(freqs, 100, spec.Brackets, 40, nil, table.CellRef{})
		assert.False(t, ok)
	})
}

func TestInterpolatorPoolsNeighbors(t *testing.T) {
	spec := catalog.GroupedFrequencies()["B25077_001E"]

	hole := "484530011001"
	nbrA := "484530011002"
	nbrB := "484530012001"

	brackets := table.New()
	set := func(geoID string, bracketIdx int, count float64) {
		brackets.AddRow(geoID)
		brackets.Set(geoID, spec.Total, count)
		for _, code := range spec.Brackets[bracketIdx].Codes {
			brackets.Set(geoID, code, count)
		}
	}
	set(hole, 1, 40)
	set(nbrA, 13, 40)
	set(nbrB, 20, 40)

	// One listed neighbor has no bracket row at all and must be skipped.
	idx := geometry.StaticIndex{hole: {nbrA, nbrB, "484530099001"}}

	ip := newInterpolator(brackets, idx, 40, nil)
	assert.Equal(t, table.MethodInterpolated, ip.Method())

	got, ok, err := ip.Attempt(context.Background(), table.CellRef{GeoID: hole, Variable: "B25077_001E"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 112500, got, 1e-9)

	t.Run("declines non-point variables", func(t *testing.T) {
		_, ok, err := ip.Attempt(context.Background(), table.CellRef{GeoID: hole, Variable: "B17017_002E"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("declines when the pooled sample is too small", func(t *testing.T) {
		strict := newInterpolator(brackets, idx, 200, nil)
		_, ok, err := strict.Attempt(context.Background(), table.CellRef{GeoID: hole, Variable: "B25077_001E"})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLevelFiller(t *testing.T) {
	source := table.New()
	source.Set("48453001100", "B19301_001E", 31250)
	source.Set("48453001200", "B19301_001E", sentinel)

	filler := newTractFiller(source)
	assert.Equal(t, table.MethodTractFilled, filler.Method())

	v, ok, err := filler.Attempt(context.Background(), table.CellRef{GeoID: "484530011001", Variable: "B19301_001E"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 31250.0, v)

	t.Run("escalates past a parent that is itself a hole", func(t *testing.T) {
		_, ok, err := filler.Attempt(context.Background(), table.CellRef{GeoID: "484530012001", Variable: "B19301_001E"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("escalates past a missing parent row", func(t *testing.T) {
		_, ok, err := filler.Attempt(context.Background(), table.CellRef{GeoID: "484530099001", Variable: "B19301_001E"})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func pipelineCfg() config.PipelineConfig {
	return config.PipelineConfig{NeighborSampleFloor: 40, FetchConcurrency: 2}
}

func TestOrchestratorResolve(t *testing.T) {
	areaA := "484530011001"
	areaB := "484530011002"

	tbl := table.New()
	tbl.AddColumn("B19301_001E")
	tbl.AddColumn("B25064_001E")
	tbl.AddRow(areaA)
	tbl.AddRow(areaB)
	tbl.Set(areaA, "B19301_001E", sentinel)
	tbl.Set(areaB, "B19301_001E", 28000)
	// B25064_001E stays empty across both rows.

	client := &fakeClient{rows: map[string][]registry.Row{
		// Empty-column refill comes from the tract level.
		reqKey("B25064_001E", table.BoundaryTract, "48453"): {
			{State: "48", County: "453", Tract: "001100", Value: fptr(1150)},
		},
		// The tract value for the remaining hole is itself a hole, so the
		// county tier must settle it.
		reqKey("B19301_001E", table.BoundaryTract, "48453"): {
			{State: "48", County: "453", Tract: "001100", Value: fptr(sentinel)},
		},
		reqKey("B19301_001E", table.BoundaryCounty, "48453"): {
			{State: "48", County: "453", Value: fptr(26500)},
		},
	}}
	fetcher := registry.NewFetcher(client, 2, nil)

	orch := NewOrchestrator(fetcher, nil, pipelineCfg(), nil)
	audit, err := orch.Resolve(context.Background(), tbl, Options{
		Prefixes: []string{"48453"},
		Level:    table.BoundaryBlockGroup,
		Year:     2020,
	})
	require.NoError(t, err)

	assert.Equal(t, 1150.0, tbl.Value(areaA, "B25064_001E"))
	assert.Equal(t, 1150.0, tbl.Value(areaB, "B25064_001E"))
	assert.Equal(t, 26500.0, tbl.Value(areaA, "B19301_001E"))
	assert.Equal(t, 28000.0, tbl.Value(areaB, "B19301_001E"))

	methods := make(map[table.Method]int)
	for _, e := range audit.Entries {
		methods[e.Method]++
	}
	assert.Equal(t, 2, methods[table.MethodEmptyColumnFilled])
	assert.Equal(t, 1, methods[table.MethodCountyFilled])
	assert.Empty(t, audit.Unresolved())
}

func TestOrchestratorLeavesUnresolvableHoles(t *testing.T) {
	areaA := "484530011001"

	tbl := table.New()
	tbl.AddColumn("B19301_001E")
	tbl.AddRow(areaA)
	tbl.Set(areaA, "B19301_001E", sentinel)

	client := &fakeClient{rows: map[string][]registry.Row{
		reqKey("B19301_001E", table.BoundaryCounty, "48453"): {
			{State: "48", County: "453", Value: fptr(sentinel)},
		},
	}}
	fetcher := registry.NewFetcher(client, 2, nil)

	orch := NewOrchestrator(fetcher, nil, pipelineCfg(), nil)
	audit, err := orch.Resolve(context.Background(), tbl, Options{
		Prefixes: []string{"48453"},
		Level:    table.BoundaryBlockGroup,
		Year:     2020,
	})
	require.NoError(t, err)

	// The sentinel stays in place rather than being zeroed out.
	assert.Equal(t, float64(sentinel), tbl.Value(areaA, "B19301_001E"))
	unresolved := audit.Unresolved()
	require.Len(t, unresolved, 1)
	assert.Equal(t, areaA, unresolved[0].GeoID)
	assert.Equal(t, "B19301_001E", unresolved[0].Variable)
}

func TestOrchestratorInterpolationGate(t *testing.T) {
	areaA := "484530011001"
	spec := catalog.GroupedFrequencies()["B25077_001E"]

	newTable := func() *table.Table {
		tbl := table.New()
		tbl.AddColumn("B25077_001E")
		tbl.AddRow(areaA)
		tbl.Set(areaA, "B25077_001E", sentinel)
		return tbl
	}
	newClient := func() *fakeClient {
		return &fakeClient{rows: map[string][]registry.Row{
			reqKey("B25077_001E", table.BoundaryCounty, "48453"): {
				{State: "48", County: "453", Value: fptr(195000)},
			},
		}}
	}

	bracketRequests := func(c *fakeClient) int {
		n := 0
		for _, req := range c.requests {
			if req.Variable == spec.Total {
				n++
			}
		}
		return n
	}

	t.Run("no bracket pull before the distribution tables existed", func(t *testing.T) {
		client := newClient()
		orch := NewOrchestrator(registry.NewFetcher(client, 2, nil), geometry.StaticIndex{}, pipelineCfg(), nil)
		tbl := newTable()
		_, err := orch.Resolve(context.Background(), tbl, Options{
			Prefixes:    []string{"48453"},
			Level:       table.BoundaryBlockGroup,
			Year:        2014,
			Interpolate: true,
		})
		require.NoError(t, err)
		assert.Zero(t, bracketRequests(client))
		assert.Equal(t, 195000.0, tbl.Value(areaA, "B25077_001E"))
	})

	t.Run("no bracket pull when interpolation is disabled", func(t *testing.T) {
		client := newClient()
		orch := NewOrchestrator(registry.NewFetcher(client, 2, nil), geometry.StaticIndex{}, pipelineCfg(), nil)
		_, err := orch.Resolve(context.Background(), newTable(), Options{
			Prefixes: []string{"48453"},
			Level:    table.BoundaryBlockGroup,
			Year:     2020,
		})
		require.NoError(t, err)
		assert.Zero(t, bracketRequests(client))
	})

	t.Run("bracket pull happens when interpolation applies", func(t *testing.T) {
		client := newClient()
		orch := NewOrchestrator(registry.NewFetcher(client, 2, nil), geometry.StaticIndex{}, pipelineCfg(), nil)
		_, err := orch.Resolve(context.Background(), newTable(), Options{
			Prefixes:    []string{"48453"},
			Level:       table.BoundaryBlockGroup,
			Year:        2020,
			Interpolate: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, bracketRequests(client))
	})
}
