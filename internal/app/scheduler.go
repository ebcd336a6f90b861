package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/weatherpipe/internal/config"
	"github.com/tigerroll/weatherpipe/internal/metrics"
	"github.com/tigerroll/weatherpipe/internal/pipeline"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// Scheduler runs the orchestrated pipeline on a cron cadence and, when enabled,
// serves Prometheus metrics for the long-lived process.
type Scheduler struct {
	orchestrator   *pipeline.Orchestrator
	metricRecorder metrics.MetricRecorder
	scheduleConfig config.ScheduleConfig
	metricsConfig  config.MetricsConfig
	timezone       string
}

func newScheduler(orchestrator *pipeline.Orchestrator, metricRecorder metrics.MetricRecorder, cfg *config.Config) *Scheduler {
	return &Scheduler{
		orchestrator:   orchestrator,
		metricRecorder: metricRecorder,
		scheduleConfig: cfg.Weatherpipe.Schedule,
		metricsConfig:  cfg.Weatherpipe.Metrics,
		timezone:       cfg.Weatherpipe.System.Timezone,
	}
}

// Run blocks until ctx is cancelled, kicking off one full batch per cron tick.
// A tick is skipped when the previous batch is still running.
func (s *Scheduler) Run(ctx context.Context) error {
	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		logger.Warnf("Unknown timezone '%s', scheduling in UTC: %v", s.timezone, err)
		loc = time.UTC
	}
	sched := gocron.NewScheduler(loc)
	sched.SingletonModeAll()

	_, err = sched.Cron(s.scheduleConfig.Cron).Do(func() {
		batchID := pipeline.NewBatchID(time.Now().UTC())
		logger.Infof("Scheduled tick fired; starting batch '%s'.", batchID)
		if err := s.orchestrator.Run(ctx, batchID); err != nil {
			logger.Errorf("Scheduled batch '%s' failed: %v", batchID, err)
		}
	})
	if err != nil {
		return exception.NewBatchError("app",
			"failed to register cron schedule '"+s.scheduleConfig.Cron+"'", err, false, false)
	}

	metricsServer := s.startMetricsServer()

	logger.Infof("Scheduler started with cron '%s'.", s.scheduleConfig.Cron)
	sched.StartAsync()

	<-ctx.Done()
	logger.Infof("Scheduler stopping.")
	sched.Stop()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Metrics server shutdown failed: %v", err)
		}
	}
	return nil
}

// startMetricsServer exposes the Prometheus registry on the configured address.
// Returns nil when metrics are disabled or a different recorder is wired.
func (s *Scheduler) startMetricsServer() *http.Server {
	if !s.metricsConfig.Enabled {
		return nil
	}
	promRecorder, ok := s.metricRecorder.(*metrics.PrometheusRecorder)
	if !ok {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRecorder.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: s.metricsConfig.ListenAddress, Handler: mux}

	go func() {
		logger.Infof("Serving metrics on %s/metrics.", s.metricsConfig.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	return server
}
