// Package pipeline ties the stages together: pull raw variables from the
// registry, repair holes, compile indicators, synthesize both index methods,
// and reconcile their orientation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"svindex/internal/config"
	"svindex/internal/errs"
	"svindex/internal/registry"
	"svindex/internal/resolve"
	"svindex/internal/svi"
	"svindex/internal/table"
)

// Puller pulls a batch of variables for a study area.
type Puller interface {
	Pull(ctx context.Context, opts registry.PullOptions) (*table.Table, error)
}

// Resolver repairs holes in a pulled table.
type Resolver interface {
	Resolve(ctx context.Context, tbl *table.Table, opts resolve.Options) (*table.Audit, error)
}

// RunRequest describes one index computation.
type RunRequest struct {
	// GeoIDs are the study-area prefixes: 2-digit states or 5-digit
	// state+county pairs, never mixed.
	GeoIDs   []string
	Boundary string
	Year     int
	Include  []string
	Exclude  []string
	// Variables overrides the built-in indicator set when non-nil.
	Variables *config.VariableSet
	// Interpolate overrides the configured default when non-nil.
	Interpolate *bool
}

// RunResult is everything one run produced.
type RunResult struct {
	RunID     uuid.UUID
	Resolved  *table.Table
	Output    *table.Table
	Audit     *table.Audit
	Synthesis *svi.Result
}

// Pipeline executes index runs.
type Pipeline struct {
	puller   Puller
	resolver Resolver
	cfg      config.PipelineConfig
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(puller Puller, resolver Resolver, cfg config.PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		puller:   puller,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("svindex/pipeline"),
	}
}

// Run executes the full computation for one request.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	const op = "pipeline.Run"

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	vars := req.Variables
	if vars == nil {
		vars = config.DefaultVariableSet()
	}
	if err := vars.Configure(req.Include, req.Exclude); err != nil {
		return nil, err
	}

	runID := uuid.New()
	logger := p.logger.With(slog.String("run_id", runID.String()))

	ctx, span := p.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("run_id", runID.String()),
		attribute.String("boundary", req.Boundary),
		attribute.Int("year", req.Year),
		attribute.Int("prefixes", len(req.GeoIDs)),
	))
	defer span.End()

	logger.InfoContext(ctx, "starting index run",
		slog.String("boundary", req.Boundary),
		slog.Int("year", req.Year),
		slog.Int("indicators", len(vars.Names())))

	level := table.Boundary(req.Boundary)

	raw, err := p.pull(ctx, req, vars.Variables(), level)
	if err != nil {
		return nil, err
	}
	if raw.Len() == 0 {
		return nil, errs.DataUnavailable(op, "registry returned no areas for the requested region")
	}

	interpolate := p.cfg.Interpolate
	if req.Interpolate != nil {
		interpolate = *req.Interpolate
	}
	audit, err := p.resolver.Resolve(ctx, raw, resolve.Options{
		Prefixes:    req.GeoIDs,
		Level:       level,
		Year:        req.Year,
		Interpolate: interpolate,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving holes: %w", err)
	}
	audit.RunID = runID

	result, err := p.synthesize(ctx, raw, vars)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "index run complete",
		slog.Int("areas", raw.Len()),
		slog.Int("issues", len(result.Issues)),
		slog.Int("unresolved", len(audit.Unresolved())),
		slog.Bool("orientation_flipped", result.Flipped))

	return &RunResult{
		RunID:     runID,
		Resolved:  raw,
		Output:    result.Table(),
		Audit:     audit,
		Synthesis: result,
	}, nil
}

func (p *Pipeline) pull(ctx context.Context, req RunRequest, variables []string, level table.Boundary) (*table.Table, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.pull",
		trace.WithAttributes(attribute.Int("variables", len(variables))))
	defer span.End()

	raw, err := p.puller.Pull(ctx, registry.PullOptions{
		Prefixes:  req.GeoIDs,
		Level:     level,
		Year:      req.Year,
		Variables: variables,
		Filter: &registry.PopulationFilter{
			PopulationVariable:    p.cfg.PopulationVariable,
			Floor:                 p.cfg.PopulationFloor,
			HouseholdSizeVariable: p.cfg.HouseholdSizeVariable,
			SizeFloor:             p.cfg.HouseholdSizeFloor,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pulling raw data: %w", err)
	}
	return raw, nil
}

func (p *Pipeline) synthesize(ctx context.Context, resolved *table.Table, vars *config.VariableSet) (*svi.Result, error) {
	_, span := p.tracer.Start(ctx, "pipeline.synthesize")
	defer span.End()

	compiled, issues := svi.CompileIndicators(resolved, vars.Indicators())
	for _, issue := range issues {
		p.logger.WarnContext(ctx, "indicator cell left empty",
			slog.String("geo_id", issue.GeoID),
			slog.String("indicator", issue.Indicator),
			slog.String("reason", issue.Reason))
	}

	synth := svi.NewSynthesizer(p.cfg.SignificanceThreshold, p.logger)
	fa, err := synth.Synthesize(compiled)
	if err != nil {
		return nil, fmt.Errorf("factor synthesis: %w", err)
	}
	rm := svi.SynthesizeRank(compiled)
	flipped := svi.Reconcile(fa, rm)
	if flipped {
		p.logger.InfoContext(ctx, "factor scores flipped to match rank-sum orientation")
	}

	return &svi.Result{
		Compiled:   compiled,
		Issues:     issues,
		Factor:     fa,
		RankMethod: rm,
		Flipped:    flipped,
	}, nil
}

func validateRequest(req RunRequest) error {
	const op = "pipeline.validateRequest"

	if err := config.ValidateYear(req.Year); err != nil {
		return err
	}
	if err := config.ValidateBoundary(req.Boundary); err != nil {
		return err
	}
	if len(req.GeoIDs) == 0 {
		return errs.Configuration(op, "at least one study-area geoid is required")
	}
	width := len(req.GeoIDs[0])
	if width != 2 && width != 5 {
		return errs.Configuration(op, "geoid %q must be a 2-digit state or 5-digit county identifier", req.GeoIDs[0])
	}
	for _, id := range req.GeoIDs[1:] {
		if len(id) != width {
			return errs.Configuration(op, "geoids mix hierarchy levels: %q and %q", req.GeoIDs[0], id)
		}
	}
	return nil
}
