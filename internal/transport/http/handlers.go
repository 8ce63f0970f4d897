package http

import (
	"math"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"svindex/internal/catalog"
	"svindex/internal/pipeline"
	"svindex/internal/svi"
)

// Health handles GET /api/health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// IndicatorInfo is one catalog entry in the API's shape.
type IndicatorInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inverse     bool     `json:"inverse"`
	Numerator   []string `json:"numerator"`
	Denominator []string `json:"denominator,omitempty"`
}

// Indicators handles GET /api/indicators.
func (s *Server) Indicators(w http.ResponseWriter, r *http.Request) {
	inverse := make(map[string]bool)
	for _, name := range catalog.DefaultInverse() {
		inverse[name] = true
	}
	var out []IndicatorInfo
	for _, ind := range catalog.Indicators() {
		out = append(out, IndicatorInfo{
			Name:        ind.Name,
			Description: ind.Description,
			Inverse:     inverse[ind.Name],
			Numerator:   ind.Numerator,
			Denominator: ind.Denominator,
		})
	}
	render.JSON(w, r, map[string]any{"indicators": out})
}

// ComputeRequest is the POST /api/svi body.
type ComputeRequest struct {
	GeoIDs      []string `json:"geoids" validate:"required,min=1,dive,numeric"`
	Boundary    string   `json:"boundary" validate:"required,oneof=bg tract"`
	Year        int      `json:"year" validate:"required"`
	Include     []string `json:"include,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
	Interpolate *bool    `json:"interpolate,omitempty"`
}

// AreaScores is one area's row in the response.
type AreaScores struct {
	GeoID  string             `json:"geoid"`
	Scores map[string]float64 `json:"scores"`
}

// ComputeResponse is the POST /api/svi response.
type ComputeResponse struct {
	RunID      string       `json:"run_id"`
	Areas      int          `json:"areas"`
	Included   []string     `json:"included"`
	Excluded   []string     `json:"excluded,omitempty"`
	Flipped    bool         `json:"orientation_flipped"`
	Unresolved int          `json:"unresolved_holes"`
	Results    []AreaScores `json:"results"`
}

// ComputeIndex handles POST /api/svi.
func (s *Server) ComputeIndex(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.renderError(w, r, badRequest("request body is not valid JSON"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.renderError(w, r, badRequest(err.Error()))
		return
	}

	result, err := s.runner.Run(r.Context(), pipeline.RunRequest{
		GeoIDs:      req.GeoIDs,
		Boundary:    req.Boundary,
		Year:        req.Year,
		Include:     req.Include,
		Exclude:     req.Exclude,
		Interpolate: req.Interpolate,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.JSON(w, r, buildResponse(result))
}

func buildResponse(result *pipeline.RunResult) ComputeResponse {
	resp := ComputeResponse{
		RunID:      result.RunID.String(),
		Areas:      result.Output.Len(),
		Included:   result.Synthesis.Factor.Included,
		Excluded:   result.Synthesis.Factor.Excluded,
		Flipped:    result.Synthesis.Flipped,
		Unresolved: len(result.Audit.Unresolved()),
	}
	for _, geoID := range result.Output.Rows() {
		scores := make(map[string]float64, len(svi.ScoreColumns()))
		for _, col := range svi.ScoreColumns() {
			if v, ok := result.Output.Get(geoID, col); ok && !math.IsNaN(v) {
				scores[col] = v
			}
		}
		resp.Results = append(resp.Results, AreaScores{GeoID: geoID, Scores: scores})
	}
	return resp
}
