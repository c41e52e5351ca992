package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shopfront/catalogimport/category"
	"github.com/shopfront/catalogimport/config"
	"github.com/shopfront/catalogimport/images"
	"github.com/shopfront/catalogimport/importer"
	"github.com/shopfront/catalogimport/output"
	"github.com/shopfront/catalogimport/pipeline"
	"github.com/shopfront/catalogimport/tabular"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	if err := applyEnvDefaults(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := &cobra.Command{
		Use:          "catimport [input.csv ...]",
		Short:        "Merge, enrich, and import product tables",
		Long:         "catimport merges raw product CSV exports into canonical records, resolves category specifications and product images, writes an enriched table, and optionally imports it into the catalog database.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputFiles = args
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.SpecCatalog, "specs", cfg.SpecCatalog, "JSON category specification index")
	flags.StringVar(&cfg.ImageCatalog, "image-catalog", cfg.ImageCatalog, "CSV catalog of known image URLs")
	flags.StringVar(&cfg.KeyColumn, "key-column", cfg.KeyColumn, "Product key column name")
	flags.StringVar(&cfg.OutputFile, "out", cfg.OutputFile, "Enriched table destination")
	flags.StringVar(&cfg.ImageDir, "image-dir", cfg.ImageDir, "Directory for downloaded images")
	flags.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "Directory for run report artifacts")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Concurrent image downloads")
	flags.DurationVar(&cfg.HostInterval, "host-interval", cfg.HostInterval, "Minimum interval between requests to one host")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-download timeout")
	flags.BoolVar(&cfg.NoDownload, "no-download", cfg.NoDownload, "Resolve image candidates without fetching them")
	flags.BoolVar(&cfg.Apply, "apply", cfg.Apply, "Write to the catalog database instead of reporting a dry run")
	flags.StringVar(&cfg.WebSearchURL, "web-search", cfg.WebSearchURL, "Search URL template with %s placeholder for image discovery")
	flags.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "PostgreSQL connection string")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")

	return cmd
}

func applyEnvDefaults(cfg *config.Config) error {
	if value, ok := config.EnvString("CATIMPORT_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("CATIMPORT_DSN"); ok {
		cfg.DatabaseDSN = value
	}
	if value, ok, err := config.EnvInt("CATIMPORT_CONCURRENCY"); err != nil {
		return fmt.Errorf("invalid CATIMPORT_CONCURRENCY: %w", err)
	} else if ok {
		cfg.Concurrency = value
	}
	if value, ok, err := config.EnvDuration("CATIMPORT_HOST_INTERVAL"); err != nil {
		return fmt.Errorf("invalid CATIMPORT_HOST_INTERVAL: %w", err)
	} else if ok {
		cfg.HostInterval = value
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	setLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && deps.Fetcher != nil && deps.Fetcher.Metrics() != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(deps.Fetcher.Metrics().Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting import run",
		slog.Int("inputs", len(cfg.InputFiles)),
		slog.Bool("apply", cfg.Apply),
		slog.Int("workers", cfg.Concurrency),
	)

	startTime := time.Now()
	outcome, err := pipeline.New(cfg, deps).Run(ctx)
	if err != nil {
		slog.Error("import run failed", slog.Any("error", err))
		return err
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(outcome, time.Since(startTime))
	return nil
}

// buildDeps assembles the pipeline collaborators from configuration. The
// returned cleanup releases the database pool, if any.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, func(), error) {
	deps := pipeline.Deps{Writer: output.NewWriter()}
	cleanup := func() {}

	if cfg.SpecCatalog != "" {
		index, err := category.LoadIndex(cfg.SpecCatalog)
		if err != nil {
			slog.Error("loading specification index", slog.Any("error", err))
			return deps, cleanup, err
		}
		deps.Index = index
	}

	if cfg.ImageCatalog != "" {
		table, err := tabular.Load(cfg.ImageCatalog)
		if err != nil {
			slog.Error("loading image catalog", slog.Any("error", err))
			return deps, cleanup, err
		}
		catalog, err := images.NewCSVCatalog(table, cfg.KeyColumn)
		if err != nil {
			slog.Error("building image catalog", slog.Any("error", err))
			return deps, cleanup, err
		}
		deps.Catalogs = append(deps.Catalogs, catalog)
	}

	if cfg.WebSearchURL != "" {
		catalog, err := images.NewWebCatalog(cfg.WebSearchURL, cfg.Timeout)
		if err != nil {
			slog.Error("building web catalog", slog.Any("error", err))
			return deps, cleanup, err
		}
		deps.Catalogs = append(deps.Catalogs, catalog)
	}

	if !cfg.NoDownload {
		fetcher, err := images.NewFetcher(images.Options{
			Concurrency:  cfg.Concurrency,
			HostInterval: cfg.HostInterval,
			Timeout:      cfg.Timeout,
			DestRoot:     cfg.ImageDir,
			Metrics:      images.NewMetrics(),
		})
		if err != nil {
			slog.Error("initialising image fetcher", slog.Any("error", err))
			return deps, cleanup, err
		}
		deps.Fetcher = fetcher
	}

	if cfg.DatabaseDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			slog.Error("connecting to database", slog.Any("error", err))
			return deps, cleanup, err
		}
		deps.Target = importer.NewPostgresTarget(pool)
		cleanup = pool.Close
	}

	return deps, cleanup, nil
}

func printSummary(outcome *pipeline.Outcome, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Import run complete")

	counts := outcome.Report.Counts
	fmt.Printf("  Run ID:        %s\n", outcome.Report.RunID)
	fmt.Printf("  Processed:     %d\n", counts.Processed)
	fmt.Printf("  Skipped rows:  %d\n", counts.Skipped)
	fmt.Printf("  Specs found:   %d\n", counts.Resolved)
	fmt.Printf("  Downloaded:    %d\n", counts.Downloaded)
	fmt.Printf("  Reused images: %d\n", counts.Reused)
	fmt.Printf("  Failed images: %d\n", counts.Failed)
	if n := len(outcome.Report.Unresolved); n > 0 {
		fmt.Printf("  Needs review:  %d\n", n)
	}
	if n := len(outcome.Report.Ambiguous); n > 0 {
		fmt.Printf("  Ambiguous:     %d\n", n)
	}
	printImportSummary(outcome)
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outcome.OutputPath)
	if outcome.BackupPath != "" {
		fmt.Printf("  Backup:        %s\n", outcome.BackupPath)
	}
	fmt.Printf("  Run report:    %s\n", outcome.ReportPath)
	fmt.Println(separator)
}

func printImportSummary(outcome *pipeline.Outcome) {
	if outcome.DryRun != nil {
		fmt.Printf("  Dry run:       %d inserts, %d updates, %d problems\n",
			len(outcome.DryRun.Inserts), len(outcome.DryRun.Updates), len(outcome.DryRun.Problems))
		for _, problem := range outcome.DryRun.Problems {
			fmt.Printf("    row %d: %s\n", problem.Row, problem.Reason)
		}
	}
	if outcome.Applied != nil {
		fmt.Printf("  Applied rows:  %d\n", len(outcome.Applied.Keys))
		fmt.Printf("  Snapshot:      %s\n", outcome.SnapshotPath)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
