// Command svindex computes social vulnerability indexes from registry data.
// It either runs one computation and writes the artifacts to disk, or
// serves the pipeline over HTTP with -serve.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"svindex/internal/config"
	"svindex/internal/exporter"
	"svindex/internal/geometry"
	"svindex/internal/infrastructure"
	"svindex/internal/pipeline"
	"svindex/internal/registry"
	"svindex/internal/resolve"
	transport "svindex/internal/transport/http"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		geoids      = flag.String("geoids", "", "comma-separated study area geoids (2-digit states or 5-digit counties)")
		boundary    = flag.String("boundary", "bg", "boundary level: bg or tract")
		year        = flag.Int("year", 2019, "survey year")
		include     = flag.String("include", "", "comma-separated indicators to keep (all others dropped)")
		exclude     = flag.String("exclude", "", "comma-separated indicators to drop")
		variables   = flag.String("variables", "", "path to a custom variable-set YAML")
		boundaries  = flag.String("boundaries", "", "path to a GeoJSON file of area polygons for neighbor interpolation")
		idProperty  = flag.String("id-property", "GEOID", "GeoJSON property holding the area identifier")
		outDir      = flag.String("out", "output", "directory for run artifacts")
		name        = flag.String("name", "svindex", "artifact name prefix")
		interpolate = flag.Bool("interpolate", true, "estimate suppressed point values from neighboring areas")
		serve       = flag.Bool("serve", false, "serve the pipeline over HTTP instead of running once")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := infrastructure.InitializeLogger(cfg.Logging)

	client := registry.NewHTTPClient(
		cfg.Registry.BaseURL,
		cfg.Registry.APIKey,
		cfg.Registry.Timeout,
		cfg.Registry.RequestsPerSecond,
		cfg.Registry.Burst,
	)
	fetcher := registry.NewFetcher(client, cfg.Pipeline.FetchConcurrency, logger)

	neighbors, err := loadNeighbors(*boundaries, *idProperty, logger)
	if err != nil {
		logger.Error("failed to load boundary polygons", "error", err)
		os.Exit(1)
	}

	orchestrator := resolve.NewOrchestrator(fetcher, neighbors, cfg.Pipeline, logger)
	p := pipeline.New(fetcher, orchestrator, cfg.Pipeline, logger)

	if *serve {
		runServer(cfg, p, logger)
		return
	}

	req := pipeline.RunRequest{
		GeoIDs:      splitList(*geoids),
		Boundary:    *boundary,
		Year:        *year,
		Include:     splitList(*include),
		Exclude:     splitList(*exclude),
		Interpolate: interpolate,
	}
	if *variables != "" {
		req.Variables, err = loadVariables(*variables)
		if err != nil {
			logger.Error("failed to load variable set", "error", err)
			os.Exit(1)
		}
	}

	if err := runOnce(context.Background(), p, req, *outDir, *name, *year, *boundary, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, req pipeline.RunRequest, outDir, name string, year int, boundary string, logger *slog.Logger) error {
	result, err := p.Run(ctx, req)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("%s_%d_%s", name, year, boundary)
	csv := exporter.NewCSVWriter(outDir, logger)
	wb := exporter.NewWorkbookWriter(outDir, logger)

	if err := csv.WriteTable(prefix+"_rawdata.csv", result.Resolved); err != nil {
		return err
	}
	if err := csv.WriteTable(prefix+"_svi.csv", result.Output); err != nil {
		return err
	}
	if err := csv.WriteAudit(prefix+"_audit.csv", result.Audit); err != nil {
		return err
	}
	if err := wb.WriteMethodology(prefix+".xlsx", result.Synthesis.Factor); err != nil {
		return err
	}

	logger.Info("run complete",
		slog.String("run_id", result.RunID.String()),
		slog.Int("areas", result.Output.Len()),
		slog.String("output_dir", outDir))
	return nil
}

func runServer(cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) {
	srv := transport.NewServer(p, logger)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	logger.Info("serving HTTP", slog.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadNeighbors(path, idProperty string, logger *slog.Logger) (geometry.NeighborIndex, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := geometry.LoadGeoJSON(f, idProperty)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded boundary polygons",
		slog.String("path", path),
		slog.Int("areas", idx.Len()))
	return idx, nil
}

func loadVariables(path string) (*config.VariableSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.LoadVariableSet(f)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
