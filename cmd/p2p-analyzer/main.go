// Command p2p-analyzer reads a P2P trade export CSV and writes
// segmented statistical reports: CSV tables, Excel workbooks and HTML
// dashboards per (period, status) partition.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"p2pulse/internal/app"
	"p2pulse/internal/config"
	"p2pulse/internal/dataprocessing"
	"p2pulse/internal/infrastructure"
)

func main() {
	csvPath := flag.String("csv", "", "path to the trade export CSV (required)")
	outDir := flag.String("out", "p2p_reports", "output directory for generated reports")
	configPath := flag.String("config", "", "optional YAML configuration file")
	logLevel := flag.String("log-level", "", "override configured log level (debug, info, warn, error)")
	years := flag.String("year", "", "comma-separated years to keep (e.g. 2022,2023)")
	fiats := flag.String("fiat", "", "comma-separated fiat currencies to keep")
	assets := flag.String("asset", "", "comma-separated asset types to keep")
	statuses := flag.String("status", "", "comma-separated raw statuses to keep")
	payments := flag.String("payment", "", "comma-separated payment methods to keep")
	eventDate := flag.String("event-date", "", "event date (YYYY-MM-DD) for before/after comparison")
	detectOutliers := flag.Bool("detect-outliers", false, "run isolation-forest price outlier detection")
	noAnnual := flag.Bool("no-annual-breakdown", false, "skip per-year partitions")
	concurrency := flag.Int("concurrency", 0, "override configured partition worker count")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: -csv")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *noAnnual {
		cfg.AnnualBreakdown = false
	}
	if *concurrency > 0 {
		cfg.MaxConcurrency = *concurrency
	}

	logger, closeLog, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx := infrastructure.WithRunID(context.Background(), infrastructure.NewRunID())

	tracer, shutdownTracing, err := infrastructure.InitTracing(ctx, cfg.Tracing.Enabled)
	if err != nil {
		logger.Error("tracing initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(ctx)

	opts, err := buildOptions(*csvPath, *outDir, *years, *fiats, *assets, *statuses, *payments, *eventDate, *detectOutliers)
	if err != nil {
		logger.Error("invalid flags", slog.String("error", err.Error()))
		os.Exit(1)
	}

	summary, err := app.Run(ctx, cfg, opts, tracer, logger)
	if err != nil {
		logger.Error("analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if summary.Empty {
		logger.Info("nothing to report: dataset empty after loading and filtering")
		return
	}
	logger.Info("analysis complete",
		slog.Int("rows_loaded", summary.RowsLoaded),
		slog.Int("rows_analyzed", summary.RowsAnalyzed),
		slog.Int("partitions", summary.Partitions),
		slog.String("output", *outDir))
}

func buildOptions(csvPath, outDir, years, fiats, assets, statuses, payments, eventDate string, detectOutliers bool) (app.Options, error) {
	opts := app.Options{
		CSVPath:        csvPath,
		OutputDir:      outDir,
		DetectOutliers: detectOutliers,
		Filters: dataprocessing.Filters{
			Fiats:          splitList(fiats),
			Assets:         splitList(assets),
			Statuses:       splitList(statuses),
			PaymentMethods: splitList(payments),
		},
	}

	for _, y := range splitList(years) {
		year, err := strconv.Atoi(y)
		if err != nil {
			return opts, fmt.Errorf("invalid -year value %q", y)
		}
		opts.Filters.Years = append(opts.Filters.Years, year)
	}

	if eventDate != "" {
		t, err := time.Parse("2006-01-02", eventDate)
		if err != nil {
			return opts, fmt.Errorf("invalid -event-date %q, want YYYY-MM-DD", eventDate)
		}
		opts.EventTime = &t
	}
	return opts, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
