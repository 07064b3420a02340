// Package pipeline drives one run over a dataset: load, normalize, resolve, aggregate, emit.
// Stages run strictly in order and exchange explicit values; a failed stage aborts the run and
// nothing is emitted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/aggregation"
	"github.com/Ramsey-B/thistle/pkg/identity"
	"github.com/Ramsey-B/thistle/pkg/loader"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// Result is everything a run produced. Sinks receive it read-only.
type Result struct {
	Report     *models.Report
	Dataset    *NormalizedDataset
	Resolution *identity.Resolution
}

// Sink receives the result of a successful run
type Sink interface {
	Name() string
	Write(ctx context.Context, result *Result) error
}

// Config contains configuration for the pipeline
type Config struct {
	EURToUSDRate float64            // Euro conversion rate (default: 1.2)
	Workers      int                // Concurrent order normalization chunks (default: 4)
	Aggregation  aggregation.Config // Ranking sizes
	Now          func() time.Time   // Clock used for year sanitation and report time
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	return Config{
		EURToUSDRate: normalizers.DefaultEURToUSDRate,
		Workers:      4,
		Aggregation:  aggregation.DefaultConfig(),
		Now:          time.Now,
	}
}

// Pipeline runs the reconciliation and analytics stages
type Pipeline struct {
	logger     ectologger.Logger
	config     Config
	loader     *loader.Loader
	resolver   *identity.Resolver
	aggregator *aggregation.Aggregator
	sinks      []Sink
}

// NewPipeline creates a new pipeline. Sinks are written in the given order.
func NewPipeline(logger ectologger.Logger, config Config, sinks ...Sink) *Pipeline {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.EURToUSDRate <= 0 {
		config.EURToUSDRate = normalizers.DefaultEURToUSDRate
	}
	return &Pipeline{
		logger:     logger,
		config:     config,
		loader:     loader.NewLoader(logger),
		resolver:   identity.NewResolver(logger),
		aggregator: aggregation.NewAggregator(logger, config.Aggregation),
		sinks:      sinks,
	}
}

// Run executes a run over the dataset directory under a fresh run id
func (p *Pipeline) Run(ctx context.Context, dir string) (*Result, error) {
	return p.RunWithID(ctx, uuid.NewString(), dir)
}

// RunWithID executes a run over the dataset directory.
// When only sinks fail the result is returned together with the joined sink errors.
func (p *Pipeline) RunWithID(ctx context.Context, runID, dir string) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	logger := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":  runID,
		"dataset": dir,
	})
	logger.Info("Starting pipeline run")

	metrics.RunsInFlight.Inc()
	defer func() {
		metrics.RunsInFlight.Dec()
		if result == nil && err != nil {
			metrics.RecordRun(StatusFailed)
			logger.WithError(err).Error("Pipeline run failed")
			return
		}
		metrics.RecordRun(StatusDone)
	}()

	var ds *loader.Dataset
	err = p.stage(ctx, "load", func(ctx context.Context) error {
		var loadErr error
		ds, loadErr = p.loader.Load(ctx, dir)
		return loadErr
	})
	if err != nil {
		return nil, err
	}

	result, err = p.Process(ctx, runID, filepath.Base(dir), ds)
	if err != nil {
		return nil, err
	}

	if sinkErr := p.emit(ctx, result); sinkErr != nil {
		logger.WithError(sinkErr).Warn("Pipeline run completed with sink failures")
		return result, sinkErr
	}

	logger.WithField("real_users", result.Report.UniqueRealUsers).Info("Pipeline run completed")
	return result, nil
}

// Process runs normalize, resolve and aggregate over a loaded dataset. Nothing is emitted.
func (p *Pipeline) Process(ctx context.Context, runID, dataset string, ds *loader.Dataset) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Process")
	defer span.End()

	now := p.config.Now()

	var normalized *NormalizedDataset
	err := p.stage(ctx, "normalize", func(ctx context.Context) error {
		var normErr error
		normalized, normErr = p.normalize(ctx, ds, now)
		return normErr
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRows("users", "kept", normalized.Stats.UsersKept)
	metrics.RecordRows("users", "rejected", normalized.Stats.UsersRejected)
	metrics.RecordRows("orders", "loaded", normalized.Stats.OrdersLoaded)
	metrics.RecordRows("books", "kept", normalized.Stats.BooksKept)

	var res *identity.Resolution
	err = p.stage(ctx, "resolve", func(ctx context.Context) error {
		res = p.resolver.Resolve(ctx, normalized.IdentityRows())
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RealUsers.Set(float64(res.Count()))

	var report *models.Report
	err = p.stage(ctx, "aggregate", func(ctx context.Context) error {
		report = p.aggregator.Aggregate(ctx, aggregation.Input{
			Orders:     normalized.Orders,
			Books:      normalized.Books,
			Resolution: res,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.RunID = runID
	report.Dataset = dataset
	report.GeneratedAt = now.UTC()
	report.Stats = normalized.Stats
	report.Stats.IdentityValues = res.ValueCount()

	return &Result{
		Report:     report,
		Dataset:    normalized,
		Resolution: res,
	}, nil
}

// stage runs fn unless the context is already done and records its duration
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted before %s: %w", name, err)
	}

	start := time.Now()
	err := fn(ctx)
	metrics.RecordStage(name, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) emit(ctx context.Context, result *Result) error {
	var errs []error
	for _, sink := range p.sinks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run aborted before sink %s: %w", sink.Name(), err)
		}
		if err := sink.Write(ctx, result); err != nil {
			metrics.RecordSinkWrite(sink.Name(), StatusFailed)
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		metrics.RecordSinkWrite(sink.Name(), StatusDone)
	}
	return errors.Join(errs...)
}
