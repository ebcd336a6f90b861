// Package app wires the pipeline together with uber-fx and executes the requested
// command: a single stage, the orchestrated sequence, or the scheduler loop.
package app

import (
	"context"
	"embed"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gorm.io/gorm"

	"github.com/tigerroll/weatherpipe/internal/adapter/database"
	"github.com/tigerroll/weatherpipe/internal/adapter/storage"
	"github.com/tigerroll/weatherpipe/internal/adapter/storage/local"
	"github.com/tigerroll/weatherpipe/internal/config"
	"github.com/tigerroll/weatherpipe/internal/metadata"
	"github.com/tigerroll/weatherpipe/internal/metrics"
	"github.com/tigerroll/weatherpipe/internal/migration"
	"github.com/tigerroll/weatherpipe/internal/pipeline"
	"github.com/tigerroll/weatherpipe/internal/repository"
	"github.com/tigerroll/weatherpipe/internal/stage/dq"
	"github.com/tigerroll/weatherpipe/internal/stage/ingest"
	"github.com/tigerroll/weatherpipe/internal/stage/load"
	"github.com/tigerroll/weatherpipe/internal/stage/process"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// Commands accepted by RunApplication.
const (
	CommandIngest   = "ingest"
	CommandProcess  = "process"
	CommandDQ       = "dq"
	CommandLoad     = "load"
	CommandRun      = "run"
	CommandSchedule = "schedule"
)

// Stores bundles the two storage adapters the stages work against.
type Stores struct {
	// Data holds the raw and processed areas.
	Data storage.Adapter
	// Reports holds quality reports and the pass flag.
	Reports storage.Adapter
}

// Stages bundles the four pipeline stages in execution order.
type Stages struct {
	Ingest  *ingest.Stage
	Process *process.Stage
	DQ      *dq.Stage
	Load    *load.Stage
}

// RunApplication sets up the fx container and runs the requested command.
// It returns the command's error, if any, after the container has shut down.
func RunApplication(appCtx context.Context, command, batchID, envFilePath string, embeddedConfig config.EmbeddedConfig, migrationsFS embed.FS) error {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		return err
	}
	logger.SetLogLevel(cfg.Weatherpipe.System.Logging.Level)

	var runErr error

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger { return logger.NewFxLoggerAdapter() }),
		fx.Supply(cfg),
		fx.Provide(
			newStores,
			newDB(migrationsFS),
			metadata.NewRecorder,
			repository.NewWarehouseRepository,
			newMetricRecorder(command),
			metrics.NewLoggingTracer,
			newRunner,
			newStages,
			newOrchestrator,
			newScheduler,
		),
		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, runner *pipeline.Runner, stages Stages, orch *pipeline.Orchestrator, sched *Scheduler) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						defer func() {
							if r := recover(); r != nil {
								logger.Errorf("Panic recovered during command execution: %v", r)
								runErr = fmt.Errorf("panic: %v", r)
							}
							if err := shutdowner.Shutdown(); err != nil {
								logger.Errorf("Failed to shutdown application: %v", err)
							}
						}()
						runErr = execute(appCtx, command, batchID, runner, stages, orch, sched)
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					logger.Infof("Application is shutting down.")
					return nil
				},
			})
		}),
	)

	app.Run()

	if app.Err() != nil {
		return app.Err()
	}
	return runErr
}

// execute dispatches the command.
func execute(ctx context.Context, command, batchID string, runner *pipeline.Runner, stages Stages, orch *pipeline.Orchestrator, sched *Scheduler) error {
	switch command {
	case CommandIngest:
		return runner.RunStage(ctx, stages.Ingest, batchID)
	case CommandProcess:
		return runner.RunStage(ctx, stages.Process, batchID)
	case CommandDQ:
		return runner.RunStage(ctx, stages.DQ, batchID)
	case CommandLoad:
		return runner.RunStage(ctx, stages.Load, batchID)
	case CommandRun:
		if batchID == "" {
			batchID = pipeline.NewBatchID(time.Now().UTC())
		}
		return orch.Run(ctx, batchID)
	case CommandSchedule:
		return sched.Run(ctx)
	default:
		return exception.NewBatchErrorf("app", "unknown command '%s'", command)
	}
}

// newStores opens the local storage adapters for the data and reports areas.
func newStores(cfg *config.Config) (Stores, error) {
	dataStore, err := local.NewLocalAdapter(cfg.Weatherpipe.Storage.DataDir, "data")
	if err != nil {
		return Stores{}, err
	}
	reportStore, err := local.NewLocalAdapter(cfg.Weatherpipe.Storage.ReportsDir, "reports")
	if err != nil {
		return Stores{}, err
	}
	return Stores{Data: dataStore, Reports: reportStore}, nil
}

// newDB opens the warehouse connection, applies pending migrations for its
// dialect, and ties the connection to the fx lifecycle.
func newDB(migrationsFS embed.FS) func(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	return func(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
		ref := cfg.Weatherpipe.DatabaseRef
		dbConfig, err := database.ResolveConfig(cfg, ref)
		if err != nil {
			return nil, err
		}
		db, err := database.Connect(dbConfig, ref)
		if err != nil {
			return nil, err
		}

		migrator := migration.NewMigrator(db, dbConfig.Type)
		if err := migrator.Up(migrationsFS, "resources/migrations/"+dbConfig.Type); err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return database.Close(db)
			},
		})
		return db, nil
	}
}

// newMetricRecorder picks the metrics backend: Prometheus for the long-lived
// scheduler mode (when enabled), no-op for one-shot invocations.
func newMetricRecorder(command string) func(cfg *config.Config) metrics.MetricRecorder {
	return func(cfg *config.Config) metrics.MetricRecorder {
		if command == CommandSchedule && cfg.Weatherpipe.Metrics.Enabled {
			return metrics.NewPrometheusRecorder()
		}
		return metrics.NewNoopRecorder()
	}
}

func newRunner(recorder metadata.Recorder, metricRecorder metrics.MetricRecorder, tracer metrics.Tracer, cfg *config.Config) *pipeline.Runner {
	return pipeline.NewRunner(recorder, metricRecorder, tracer, cfg.Weatherpipe.Storage.LogsDir)
}

func newStages(cfg *config.Config, stores Stores, repo repository.WarehouseRepository) Stages {
	return Stages{
		Ingest:  ingest.NewStage(ingest.NewClient(cfg.Weatherpipe.API), stores.Data, cfg.Weatherpipe.Cities),
		Process: process.NewStage(stores.Data, "SNAPPY"),
		DQ:      dq.NewStage(stores.Data, repo, dq.NewReporter(stores.Reports), cfg.Weatherpipe.DQ),
		Load:    load.NewStage(repo),
	}
}

func newOrchestrator(runner *pipeline.Runner, stages Stages) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(runner, stages.Ingest, stages.Process, stages.DQ, stages.Load)
}
