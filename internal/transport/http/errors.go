package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"svindex/internal/errs"
)

// Problem is the API's error body, loosely after RFC 7807.
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func badRequest(detail string) error {
	return &apiError{status: http.StatusBadRequest, title: "Bad Request", detail: detail}
}

type apiError struct {
	status int
	title  string
	detail string
}

func (e *apiError) Error() string { return e.detail }

// renderError maps an error onto an HTTP status by its domain kind and
// writes the problem body.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var problem Problem
	switch {
	case isAPIError(err, &problem):
	case errs.IsKind(err, errs.KindConfiguration):
		problem = Problem{Status: http.StatusBadRequest, Title: "Invalid Request"}
	case errs.IsKind(err, errs.KindDataUnavailable):
		problem = Problem{Status: http.StatusUnprocessableEntity, Title: "Data Unavailable"}
	case errs.IsKind(err, errs.KindNumericDegeneracy):
		problem = Problem{Status: http.StatusUnprocessableEntity, Title: "Degenerate Computation"}
	case errs.IsKind(err, errs.KindRegistry):
		problem = Problem{Status: http.StatusBadGateway, Title: "Registry Unreachable"}
	default:
		problem = Problem{Status: http.StatusInternalServerError, Title: "Internal Error"}
	}
	if problem.Detail == "" {
		problem.Detail = err.Error()
	}

	if problem.Status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()))
	}
	render.Status(r, problem.Status)
	render.JSON(w, r, problem)
}

func isAPIError(err error, problem *Problem) bool {
	ae, ok := err.(*apiError)
	if !ok {
		return false
	}
	*problem = Problem{Status: ae.status, Title: ae.title, Detail: ae.detail}
	return true
}
