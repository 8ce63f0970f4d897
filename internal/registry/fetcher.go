package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"svindex/internal/errs"
	"svindex/internal/table"
)

// PopulationFilter drops areas below a population floor or exhibiting a
// near-zero household-size marker (non-residential land: airports, bases,
// prisons). It applies to the initial full-variable pull only.
type PopulationFilter struct {
	PopulationVariable    string
	Floor                 float64
	HouseholdSizeVariable string
	SizeFloor             float64
}

// PullOptions describes one batch pull.
type PullOptions struct {
	Prefixes  []string
	Level     table.Boundary
	Year      int
	Variables []string
	// Filter, when non-nil, removes low-population and special-use areas
	// after the merge. Supplemental pulls leave it nil.
	Filter *PopulationFilter
}

// Fetcher issues one concurrent registry query per (prefix, variable) pair
// and merges the completions into a flat table. Completion order does not
// matter: merges are first-value-wins per cell.
type Fetcher struct {
	client      Client
	concurrency int
	logger      *slog.Logger
}

// NewFetcher creates a fetcher over the given client. concurrency bounds the
// worker pool; values below 1 fall back to 1.
func NewFetcher(client Client, concurrency int, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{client: client, concurrency: concurrency, logger: logger}
}

// Pull fetches every requested variable for every prefix and merges the
// results. A failed task degrades to missing data for that variable: the
// column stays registered so downstream hole detection sees it as empty.
// Only a pull where every task failed returns an error.
func (f *Fetcher) Pull(ctx context.Context, opts PullOptions) (*table.Table, error) {
	tbl := table.New()
	for _, v := range opts.Variables {
		tbl.AddColumn(v)
	}

	var (
		mu        sync.Mutex
		succeeded int
		failed    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, prefix := range opts.Prefixes {
		for _, variable := range opts.Variables {
			req := Request{
				Variable:    variable,
				Level:       opts.Level,
				ParentGeoID: prefix,
				Year:        opts.Year,
			}
			g.Go(func() error {
				rows, err := f.client.Fetch(gctx, req)
				if err != nil {
					fetchTasks.WithLabelValues("error").Inc()
					f.logger.WarnContext(gctx, "registry fetch failed",
						"variable", req.Variable,
						"prefix", req.ParentGeoID,
						"level", string(req.Level),
						"error", err,
					)
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}
				fetchTasks.WithLabelValues("ok").Inc()

				mu.Lock()
				defer mu.Unlock()
				succeeded++
				for _, row := range rows {
					geoID := row.GeoID(opts.Level)
					if geoID == "" {
						continue
					}
					tbl.AddRow(geoID)
					if row.Value == nil {
						continue
					}
					if tbl.SetIfAbsent(geoID, req.Variable, *row.Value) {
						rowsMerged.Inc()
					}
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if succeeded == 0 && failed > 0 {
		return nil, errs.Registry("registry.Pull",
			fmt.Errorf("all %d fetch tasks failed", failed))
	}

	f.logger.InfoContext(ctx, "registry pull complete",
		"level", string(opts.Level),
		"variables", len(opts.Variables),
		"prefixes", len(opts.Prefixes),
		"rows", tbl.Len(),
		"failed_tasks", failed,
	)

	if opts.Filter != nil {
		f.applyFilter(ctx, tbl, opts.Filter)
	}
	return tbl, nil
}

func (f *Fetcher) applyFilter(ctx context.Context, tbl *table.Table, filter *PopulationFilter) {
	var dropped int
	for _, geoID := range tbl.Rows() {
		if size, ok := tbl.Get(geoID, filter.HouseholdSizeVariable); ok && size >= 0 && size < filter.SizeFloor {
			tbl.DropRow(geoID)
			areasFiltered.WithLabelValues("special_use").Inc()
			dropped++
			continue
		}
		if pop, ok := tbl.Get(geoID, filter.PopulationVariable); ok && pop >= 0 && pop <= filter.Floor {
			tbl.DropRow(geoID)
			areasFiltered.WithLabelValues("low_population").Inc()
			dropped++
		}
	}
	if dropped > 0 {
		f.logger.InfoContext(ctx, "filtered low-population and special-use areas",
			"dropped", dropped,
			"remaining", tbl.Len(),
		)
	}
}
