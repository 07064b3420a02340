package main

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/internal/repositories/report"
	"github.com/Ramsey-B/thistle/pkg/aggregation"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/graph"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/logging"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
	reportfiles "github.com/Ramsey-B/thistle/pkg/report"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// app holds the pipeline and every optional backend enabled by config
type app struct {
	cfg      *config.Config
	logger   ectologger.Logger
	pipeline *pipeline.Pipeline
	reports  *report.Repository
	graph    *graph.Client
	checks   map[string]health.CheckFunc
	closers  []func(ctx context.Context) error
}

func newApp(ctx context.Context, overrides ...func(*config.Config)) (a *app, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	logger, flush, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, err
	}

	a = &app{
		cfg:    cfg,
		logger: logger,
		checks: map[string]health.CheckFunc{},
		closers: []func(context.Context) error{func(context.Context) error {
			flush()
			return nil
		}},
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	if cfg.OtelExporterEnabled {
		shutdown, err := tracing.Setup(ctx, tracing.Config{
			ServiceName: cfg.AppName,
			Endpoint:    cfg.OtelExporterEndpoint,
			Protocol:    cfg.OtelExporterProtocol,
			Insecure:    cfg.OtelExporterInsecure,
			Timeout:     5 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, shutdown)
	}

	sinks := []pipeline.Sink{reportfiles.NewFileSink(cfg.OutputDir, logger)}

	if cfg.DatabaseEnabled {
		repo, err := a.openReports(ctx)
		if err != nil {
			return nil, err
		}
		a.reports = repo
		sinks = append(sinks, repo)
	}

	if cfg.GraphExportEnabled {
		client, err := graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
			Database: cfg.GraphDBName,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := client.VerifyConnectivity(ctx); err != nil {
			return nil, err
		}
		a.graph = client
		a.checks["graph"] = client.VerifyConnectivity
		sinks = append(sinks, graph.NewExporter(client, logger))
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
		sinks = append(sinks, producer)
	}

	a.pipeline = pipeline.NewPipeline(logger, pipeline.Config{
		EURToUSDRate: cfg.EURToUSDRate,
		Workers:      cfg.NormalizeWorkers,
		Aggregation: aggregation.Config{
			TopDays:    cfg.TopDays,
			TopAuthors: cfg.TopAuthors,
		},
		Now: time.Now,
	}, sinks...)

	return a, nil
}

func (a *app) openReports(ctx context.Context) (*report.Repository, error) {
	cfg := a.cfg
	db, err := database.Open(ctx, database.Config{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		Path:            cfg.DatabasePath,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
	})
	if err := migrations.Migrate(db); err != nil {
		return nil, err
	}

	a.checks["database"] = db.PingContext
	return report.NewRepository(db, a.logger), nil
}

// close releases backends in reverse order of opening
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
