// Package registry talks to the external statistical registry and assembles
// its per-variable responses into the pipeline's flat area table. The wire
// protocol is the registry's JSON array-of-arrays format: a header row naming
// the requested variable and the area-identifying fragments, followed by one
// row per area.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"svindex/internal/errs"
	"svindex/internal/table"
)

// Request asks for one variable at one hierarchy level under one parent
// area. ParentGeoID is a 2-digit state or 5-digit state+county prefix.
type Request struct {
	Variable    string
	Level       table.Boundary
	ParentGeoID string
	Year        int
}

// Row is one area's value for the requested variable. Value is nil when the
// registry returned null or an unparseable cell.
type Row struct {
	State      string
	County     string
	Tract      string
	BlockGroup string
	Value      *float64
}

// GeoID assembles the row's identifier at the given level.
func (r Row) GeoID(level table.Boundary) string {
	switch level {
	case table.BoundaryBlockGroup:
		return r.State + r.County + r.Tract + r.BlockGroup
	case table.BoundaryTract:
		return r.State + r.County + r.Tract
	default:
		return r.State + r.County
	}
}

// Client fetches raw rows from the statistical registry.
type Client interface {
	Fetch(ctx context.Context, req Request) ([]Row, error)
}

// HTTPClient is the production registry client: rate-limited HTTP against
// the registry's survey endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a client for the registry at baseURL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, rps float64, burst int) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Fetch implements Client.
func (c *HTTPClient) Fetch(ctx context.Context, req Request) ([]Row, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.Registry("registry.Fetch", err)
	}
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, errs.Registry("registry.Fetch", err)
	}
	defer resp.Body.Close()

	// The registry answers 204 when a variable/level combination has no
	// published rows; treat it as an empty result, not a failure.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errs.Registry("registry.Fetch",
			fmt.Errorf("unexpected status %d for %s: %s", resp.StatusCode, req.Variable, body))
	}

	return parseRows(resp.Body, req.Variable)
}

func (c *HTTPClient) buildURL(req Request) (string, error) {
	base, err := url.Parse(fmt.Sprintf("%s/%d/acs/acs5", c.baseURL, req.Year))
	if err != nil {
		return "", errs.Registry("registry.buildURL", err)
	}

	q := base.Query()
	q.Set("get", req.Variable)

	state := req.ParentGeoID
	county := ""
	if len(req.ParentGeoID) >= 5 {
		state = req.ParentGeoID[:2]
		county = req.ParentGeoID[2:5]
	}

	switch req.Level {
	case table.BoundaryBlockGroup:
		q.Set("for", "block group:*")
	case table.BoundaryTract:
		q.Set("for", "tract:*")
	case table.BoundaryCounty:
		if county != "" {
			q.Set("for", "county:"+county)
			county = ""
		} else {
			q.Set("for", "county:*")
		}
	default:
		return "", errs.Configuration("registry.buildURL", "unsupported level %q", req.Level)
	}

	in := "state:" + state
	if county != "" {
		in += " county:" + county
	}
	q.Set("in", in)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// parseRows decodes the array-of-arrays payload. The first array is the
// header; remaining arrays are data rows positioned by the header.
func parseRows(r io.Reader, variable string) ([]Row, error) {
	var raw [][]*string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errs.Registry("registry.parseRows", fmt.Errorf("malformed response: %w", err))
	}
	if len(raw) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(raw[0]))
	for i, name := range raw[0] {
		if name != nil {
			cols[*name] = i
		}
	}
	varIdx, ok := cols[variable]
	if !ok {
		return nil, errs.Registry("registry.parseRows", fmt.Errorf("response missing variable column %s", variable))
	}

	field := func(rec []*string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) || rec[idx] == nil {
			return ""
		}
		return *rec[idx]
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		row := Row{
			State:      field(rec, "state"),
			County:     field(rec, "county"),
			Tract:      field(rec, "tract"),
			BlockGroup: field(rec, "block group"),
		}
		if varIdx < len(rec) && rec[varIdx] != nil {
			if v, err := strconv.ParseFloat(*rec[varIdx], 64); err == nil {
				row.Value = &v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
