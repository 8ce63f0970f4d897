package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"svindex/internal/catalog"
	"svindex/internal/config"
	"svindex/internal/errs"
	"svindex/internal/geometry"
	"svindex/internal/registry"
	"svindex/internal/table"
)

// Options describes the study area a table was pulled for. The orchestrator
// needs it to issue supplemental pulls at coarser levels.
type Options struct {
	Prefixes    []string
	Level       table.Boundary
	Year        int
	Interpolate bool
}

// Orchestrator drives hole resolution over a raw table: empty columns are
// refilled from one hierarchy level up, then each remaining hole is offered
// to an ordered list of strategies until one produces a value.
type Orchestrator struct {
	fetcher   *registry.Fetcher
	neighbors geometry.NeighborIndex
	cfg       config.PipelineConfig
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewOrchestrator(fetcher *registry.Fetcher, neighbors geometry.NeighborIndex, cfg config.PipelineConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		neighbors: neighbors,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("svindex/resolve"),
	}
}

// Resolve repairs tbl in place and returns the audit trail of every repair
// and every hole left standing. The table is never silently zero-filled:
// a hole no strategy could fill keeps its sentinel and is recorded as
// unresolved.
func (o *Orchestrator) Resolve(ctx context.Context, tbl *table.Table, opts Options) (*table.Audit, error) {
	ctx, span := o.tracer.Start(ctx, "resolve.Resolve",
		trace.WithAttributes(
			attribute.String("level", string(opts.Level)),
			attribute.Int("year", opts.Year),
		))
	defer span.End()

	audit := table.NewAudit()

	holes := table.DetectHoles(tbl)
	if len(holes.EmptyColumns) > 0 {
		if err := o.fillEmptyColumns(ctx, tbl, holes.EmptyColumns, opts, audit); err != nil {
			return nil, err
		}
		holes = table.DetectHoles(tbl)
	}
	if holes.Empty() {
		o.logger.InfoContext(ctx, "no holes to resolve")
		return audit, nil
	}

	strategies, err := o.buildStrategies(ctx, holes, opts)
	if err != nil {
		return nil, err
	}

	resolved := 0
	for _, hole := range holes.Cells {
		filled := false
		for _, s := range strategies {
			v, ok, err := s.Attempt(ctx, hole)
			if err != nil {
				return nil, fmt.Errorf("resolving %s/%s: %w", hole.GeoID, hole.Variable, err)
			}
			if !ok {
				continue
			}
			tbl.Set(hole.GeoID, hole.Variable, v)
			audit.Record(hole.GeoID, hole.Variable, s.Method())
			holesResolvedTotal.WithLabelValues(string(s.Method())).Inc()
			resolved++
			filled = true
			break
		}
		if !filled {
			audit.Record(hole.GeoID, hole.Variable, table.MethodUnresolved)
			holesResolvedTotal.WithLabelValues(string(table.MethodUnresolved)).Inc()
			o.logger.WarnContext(ctx, "hole unresolved at hierarchy ceiling",
				slog.String("geo_id", hole.GeoID),
				slog.String("variable", hole.Variable))
		}
	}

	o.logger.InfoContext(ctx, "hole resolution complete",
		slog.Int("holes", len(holes.Cells)),
		slog.Int("resolved", resolved),
		slog.Int("unresolved", len(holes.Cells)-resolved))
	span.SetAttributes(
		attribute.Int("holes", len(holes.Cells)),
		attribute.Int("resolved", resolved))
	return audit, nil
}

// fillEmptyColumns refetches columns that came back empty across the whole
// study area at the next level up and distributes each parent value to the
// rows it encloses.
func (o *Orchestrator) fillEmptyColumns(ctx context.Context, tbl *table.Table, cols []string, opts Options, audit *table.Audit) error {
	ctx, span := o.tracer.Start(ctx, "resolve.fillEmptyColumns",
		trace.WithAttributes(attribute.Int("columns", len(cols))))
	defer span.End()

	up, ok := opts.Level.Up()
	if !ok {
		return errs.DataUnavailable("resolve.fillEmptyColumns",
			"%d columns empty at the top of the hierarchy", len(cols))
	}

	parent, err := o.fetcher.Pull(ctx, registry.PullOptions{
		Prefixes:  opts.Prefixes,
		Level:     up,
		Year:      opts.Year,
		Variables: cols,
	})
	if err != nil {
		return fmt.Errorf("refetching empty columns at %s level: %w", up, err)
	}

	for _, col := range cols {
		for _, geoID := range tbl.Rows() {
			if v, ok := parent.Get(table.ParentID(geoID, up), col); ok {
				tbl.Set(geoID, col, v)
				audit.Record(geoID, col, table.MethodEmptyColumnFilled)
			}
		}
		holesResolvedTotal.WithLabelValues(string(table.MethodEmptyColumnFilled)).Inc()
		o.logger.InfoContext(ctx, "empty column refilled from parent level",
			slog.String("variable", col),
			slog.String("level", string(up)))
	}
	return nil
}

// buildStrategies assembles the ordered fallback chain for this run:
// neighborhood interpolation where available, then tract borrow, then
// county borrow. Supplemental tables are pulled once for all hole
// variables.
func (o *Orchestrator) buildStrategies(ctx context.Context, holes table.Holes, opts Options) ([]Strategy, error) {
	var strategies []Strategy

	if opts.Interpolate && config.InterpolationAvailable(opts.Year) && o.neighbors != nil {
		if vars := bracketVariables(holes.Variables); len(vars) > 0 {
			brackets, err := o.fetcher.Pull(ctx, registry.PullOptions{
				Prefixes:  opts.Prefixes,
				Level:     opts.Level,
				Year:      opts.Year,
				Variables: vars,
			})
			if err != nil {
				return nil, fmt.Errorf("pulling bracket counts: %w", err)
			}
			strategies = append(strategies,
				newInterpolator(brackets, o.neighbors, o.cfg.NeighborSampleFloor, o.logger))
		}
	}

	if opts.Level == table.BoundaryBlockGroup {
		tract, err := o.fetcher.Pull(ctx, registry.PullOptions{
			Prefixes:  opts.Prefixes,
			Level:     table.BoundaryTract,
			Year:      opts.Year,
			Variables: holes.Variables,
		})
		if err != nil {
			return nil, fmt.Errorf("pulling tract fallback table: %w", err)
		}
		strategies = append(strategies, newTractFiller(tract))
	}

	county, err := o.fetcher.Pull(ctx, registry.PullOptions{
		Prefixes:  opts.Prefixes,
		Level:     table.BoundaryCounty,
		Year:      opts.Year,
		Variables: holes.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("pulling county fallback table: %w", err)
	}
	strategies = append(strategies, newCountyFiller(county))

	return strategies, nil
}

// bracketVariables collects the grouped-frequency columns needed to
// interpolate whichever point variables are among the holes.
func bracketVariables(holeVars []string) []string {
	specs := catalog.GroupedFrequencies()
	seen := make(map[string]bool)
	var out []string
	for _, v := range holeVars {
		spec, ok := specs[v]
		if !ok {
			continue
		}
		for _, code := range append([]string{spec.Total}, bracketCodes(spec)...) {
			if !seen[code] {
				seen[code] = true
				out = append(out, code)
			}
		}
	}
	return out
}

func bracketCodes(spec catalog.GroupedFrequency) []string {
	var out []string
	for _, b := range spec.Brackets {
		out = append(out, b.Codes...)
	}
	return out
}
