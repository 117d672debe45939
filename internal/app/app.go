// Package app wires the pipeline stages: load, normalize, partition,
// per-partition metrics and emission.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"p2pulse/internal/analytics"
	"p2pulse/internal/config"
	"p2pulse/internal/dataprocessing"
	apperrors "p2pulse/internal/errors"
	"p2pulse/internal/exporter"
	"p2pulse/internal/files"
	"p2pulse/internal/outliers"
	"p2pulse/internal/partition"
	"p2pulse/pkg/contracts/domain"
)

// Options are the per-run parameters collected from the command line.
type Options struct {
	CSVPath        string
	OutputDir      string
	Filters        dataprocessing.Filters
	DetectOutliers bool
	EventTime      *time.Time
}

// Summary reports what a run produced.
type Summary struct {
	RowsLoaded   int
	RowsAnalyzed int
	Partitions   int
	Empty        bool
}

// Run executes the full pipeline. It returns ErrNoRows via Summary.Empty
// rather than as an error: an empty dataset is a clean no-op.
func Run(ctx context.Context, cfg *config.Config, opts Options, tracer trace.Tracer, logger *slog.Logger) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "run")
	defer span.End()

	rows, err := loadStage(ctx, cfg, opts, tracer, logger)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoRows) {
			logger.Warn("no rows to analyze after loading and filtering")
			return &Summary{Empty: true}, nil
		}
		return nil, err
	}

	parts := partitionStage(ctx, cfg, rows.analyzed, tracer, logger)
	if len(parts) == 0 {
		logger.Warn("no non-empty partitions")
		return &Summary{RowsLoaded: rows.loaded, RowsAnalyzed: len(rows.analyzed), Empty: true}, nil
	}

	results, err := metricsStage(ctx, cfg, opts, parts, tracer, logger)
	if err != nil {
		return nil, err
	}

	if err := emitStage(ctx, cfg, opts, parts, results, tracer, logger); err != nil {
		return nil, err
	}

	return &Summary{
		RowsLoaded:   rows.loaded,
		RowsAnalyzed: len(rows.analyzed),
		Partitions:   len(parts),
	}, nil
}

type loadResult struct {
	loaded   int
	analyzed []domain.Transaction
}

func loadStage(ctx context.Context, cfg *config.Config, opts Options, tracer trace.Tracer, logger *slog.Logger) (*loadResult, error) {
	_, span := tracer.Start(ctx, "load")
	defer span.End()

	ds, err := dataprocessing.LoadCSV(opts.CSVPath, logger)
	if err != nil {
		return nil, err
	}
	if len(ds.Rows) == 0 {
		return nil, apperrors.ErrNoRows
	}

	idx := dataprocessing.MapColumns(ds.Header, cfg.ColumnMapping, logger)
	txs := dataprocessing.BuildTransactions(ds, idx)
	dataprocessing.ApplyTimeFeatures(txs, idx, ds, cfg.Location(), logger)
	dataprocessing.NewStatusClassifier(cfg.StatusBuckets).ClassifyAll(txs)
	dataprocessing.PatchPrices(txs, logger)
	dataprocessing.ComputeUSDEquivalent(txs)

	analyzed := opts.Filters.Apply(txs, logger)
	if len(analyzed) == 0 {
		return nil, apperrors.ErrNoRows
	}

	span.SetAttributes(
		attribute.Int("rows.loaded", len(txs)),
		attribute.Int("rows.analyzed", len(analyzed)),
	)
	return &loadResult{loaded: len(txs), analyzed: analyzed}, nil
}

func partitionStage(ctx context.Context, cfg *config.Config, rows []domain.Transaction, tracer trace.Tracer, logger *slog.Logger) []partition.Partition {
	_, span := tracer.Start(ctx, "partition")
	defer span.End()

	parts := partition.Build(rows, cfg.AnnualBreakdown, logger)
	span.SetAttributes(attribute.Int("partitions", len(parts)))
	return parts
}

// metricsStage computes every partition's metrics on a bounded group.
// Results land at their partition's index so emission order is stable.
func metricsStage(ctx context.Context, cfg *config.Config, opts Options, parts []partition.Partition, tracer trace.Tracer, logger *slog.Logger) ([]*analytics.Result, error) {
	ctx, span := tracer.Start(ctx, "metrics")
	defer span.End()

	var detector outliers.Detector
	if opts.DetectOutliers {
		forest, err := outliers.NewIsolationForest(cfg.Outliers)
		if err != nil {
			return nil, err
		}
		detector = forest
	}
	engine := analytics.New(cfg, detector, logger)
	engineOpts := analytics.Options{
		DetectOutliers: opts.DetectOutliers,
		EventTime:      opts.EventTime,
	}

	results := make([]*analytics.Result, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)
	for i, part := range parts {
		g.Go(func() error {
			res, err := engine.Compute(gctx, part, engineOpts)
			if err != nil {
				return fmt.Errorf("partition %s/%s: %w", part.Period, part.Bucket, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// emitStage writes partitions sequentially in presentation order: the
// partition list is already ordered total-first, years ascending,
// all/completed/cancelled.
func emitStage(ctx context.Context, cfg *config.Config, opts Options, parts []partition.Partition, results []*analytics.Result, tracer trace.Tracer, logger *slog.Logger) error {
	_, span := tracer.Start(ctx, "emit")
	defer span.End()

	layout := files.Layout{Root: opts.OutputDir, Suffix: opts.Filters.Suffix()}
	csvWriter := exporter.NewCSVWriter(layout, logger)
	excelWriter := exporter.NewExcelWriter(layout, cfg.Report.IncludeTables, logger)
	htmlWriter := exporter.NewHTMLWriter(layout, cfg.Report.IncludeTables, logger)

	for i, part := range parts {
		res := results[i]
		if err := layout.EnsurePartitionDirs(part.Period, part.Bucket); err != nil {
			return err
		}
		tables := exporter.BuildTables(res)
		if err := csvWriter.WriteTables(part.Period, part.Bucket, tables); err != nil {
			return err
		}
		if err := excelWriter.WriteWorkbook(res, tables); err != nil {
			return err
		}
		if err := htmlWriter.WriteDashboard(res, tables); err != nil {
			return err
		}
	}
	return nil
}
