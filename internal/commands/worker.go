package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/app"
	jobmetrics "github.com/odyssey-erp/glengine/internal/jobs"
	"github.com/odyssey-erp/glengine/internal/observability"
	"github.com/odyssey-erp/glengine/internal/progress"
	"github.com/odyssey-erp/glengine/internal/tbreport"
	"github.com/odyssey-erp/glengine/jobs"
)

const sweepSchedule = "20 3 * * *"

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued trial balance builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			return RunWorker(cmd.Context(), cfg, logger)
		},
	}
}

// RunWorker connects the backends and processes tasks until ctx is done.
func RunWorker(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	b := &backends{cfg: cfg, logger: logger}
	defer b.Close()
	if err := openPostgres(ctx, b); err != nil {
		return err
	}
	if err := openRedis(ctx, b); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	service, err := b.service()
	if err != nil {
		return err
	}
	buildJob := tbreport.NewJob(tbreport.JobConfig{
		Builder:    service,
		Status:     progress.NewStore(b.redis, cfg.ProgressTTL),
		Sinks:      b.sinks(),
		Approvals:  approvalGate(cfg),
		StorageDir: cfg.ReportStorageDir,
		Metrics:    jobmetrics.NewMetrics(metrics.Registerer()),
		Logger:     logger,
	})
	sweepJob := tbreport.NewSweepJob(cfg.ReportStorageDir, logger)

	var cron []jobs.CronRegistration
	if cfg.ReportRetention > 0 {
		sweepTask, err := jobs.NewArtefactSweepTask(cfg.ReportRetention)
		if err != nil {
			return err
		}
		cron = append(cron, jobs.CronRegistration{Spec: sweepSchedule, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(1)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   b.redisOpts(),
		Logger:      logger,
		Concurrency: cfg.ReportConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTrialBalanceBuild, Handler: buildJob.Handle},
			{Type: jobs.TaskArtefactSweep, Handler: sweepJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		return err
	}

	if cfg.WorkerMetricsAddr != "" {
		r := chi.NewRouter()
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: r, ReadTimeout: cfg.AppReadTimeout}
		go func() {
			if err := serveUntilDone(ctx, metricsServer, logger); err != nil {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
	}

	logger.Info("worker started", slog.Int("concurrency", cfg.ReportConcurrency), slog.String("storage_dir", cfg.ReportStorageDir))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
