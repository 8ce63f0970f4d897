package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svindex/internal/errs"
	"svindex/internal/pipeline"
	"svindex/internal/svi"
	"svindex/internal/table"
)

type fakeRunner struct {
	req    pipeline.RunRequest
	result *pipeline.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	f.req = req
	return f.result, f.err
}

func fakeResult() *pipeline.RunResult {
	out := table.New()
	out.Set("484530011001", svi.ColFAScaled, 1)
	out.Set("484530011001", svi.ColFAPercentile, 1)
	out.Set("484530011002", svi.ColFAScaled, 0)
	out.Set("484530011002", svi.ColFAPercentile, 0.5)

	return &pipeline.RunResult{
		RunID:  uuid.New(),
		Output: out,
		Audit:  table.NewAudit(),
		Synthesis: &svi.Result{
			Factor: &svi.FactorResult{Included: []string{"QPOVTY"}, Excluded: []string{"QFEMALE"}},
		},
	}
}

func postSVI(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/svi", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := NewServer(&fakeRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIndicators(t *testing.T) {
	srv := NewServer(&fakeRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/indicators", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Indicators []IndicatorInfo `json:"indicators"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Indicators)

	byName := make(map[string]IndicatorInfo)
	for _, ind := range body.Indicators {
		byName[ind.Name] = ind
	}
	assert.True(t, byName["PERCAP"].Inverse)
	assert.False(t, byName["QPOVTY"].Inverse)
}

func TestComputeIndex(t *testing.T) {
	runner := &fakeRunner{result: fakeResult()}
	srv := NewServer(runner, nil)

	rec := postSVI(t, srv, `{"geoids":["48453"],"boundary":"bg","year":2020,"interpolate":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"48453"}, runner.req.GeoIDs)
	require.NotNil(t, runner.req.Interpolate)
	assert.False(t, *runner.req.Interpolate)

	var resp ComputeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Areas)
	assert.Equal(t, []string{"QPOVTY"}, resp.Included)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "484530011001", resp.Results[0].GeoID)
	assert.Equal(t, 1.0, resp.Results[0].Scores[svi.ColFAScaled])
}

func TestComputeIndexValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"geoids":`},
		{"no geoids", `{"boundary":"bg","year":2020}`},
		{"bad boundary", `{"geoids":["48453"],"boundary":"county","year":2020}`},
		{"non-numeric geoid", `{"geoids":["texas"],"boundary":"bg","year":2020}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeRunner{result: fakeResult()}, nil)
			rec := postSVI(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestComputeIndexErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"configuration", errs.Configuration("op", "bad year"), http.StatusBadRequest},
		{"data unavailable", errs.DataUnavailable("op", "no areas"), http.StatusUnprocessableEntity},
		{"degeneracy", errs.Degeneracy("op", "constant score"), http.StatusUnprocessableEntity},
		{"registry", errs.Registry("op", assert.AnError), http.StatusBadGateway},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeRunner{err: tt.err}, nil)
			rec := postSVI(t, srv, `{"geoids":["48453"],"boundary":"bg","year":2020}`)
			require.Equal(t, tt.status, rec.Code)

			var problem Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.status, problem.Status)
			assert.NotEmpty(t, problem.Detail)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(&fakeRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
