package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/app"
	"github.com/odyssey-erp/glengine/internal/observability"
	"github.com/odyssey-erp/glengine/internal/progress"
	tbhttp "github.com/odyssey-erp/glengine/internal/tbreport/http"
	"github.com/odyssey-erp/glengine/jobs"
	"github.com/odyssey-erp/glengine/report"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API that queues and serves trial balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	b := &backends{cfg: cfg, logger: logger}
	defer b.Close()
	if err := openRedis(ctx, b); err != nil {
		return err
	}

	queue, err := jobs.NewClient(b.redisOpts(), cfg.BuildOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(b.redisOpts())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	status := progress.NewStore(b.redis, cfg.ProgressTTL)
	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		TrialBalanceHandler: tbhttp.NewHandler(queue, status, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
		ReportHandler:       report.NewHandler(report.NewClient(cfg.GotenbergURL), logger),
		Metrics:             observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	return serveUntilDone(ctx, server, logger)
}

// serveUntilDone runs server until ctx ends and then drains it.
func serveUntilDone(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down", slog.String("addr", server.Addr))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
