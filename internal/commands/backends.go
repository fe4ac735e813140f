package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/glengine/internal/app"
	"github.com/odyssey-erp/glengine/internal/export"
	"github.com/odyssey-erp/glengine/internal/ledger"
	"github.com/odyssey-erp/glengine/internal/platform/cache"
	"github.com/odyssey-erp/glengine/internal/platform/db"
	"github.com/odyssey-erp/glengine/internal/tbreport"
	"github.com/odyssey-erp/glengine/jobs"
	"github.com/odyssey-erp/glengine/report"
)

// backends owns the connections shared by the subcommands.
type backends struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func loadRuntime() (*app.Config, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, app.NewLogger(cfg), nil
}

func openPostgres(ctx context.Context, b *backends) error {
	pool, err := db.New(ctx, b.cfg.PGDSN, db.Options{MaxConns: b.cfg.PGMaxConns})
	if err != nil {
		return err
	}
	b.pool = pool
	return nil
}

func openRedis(ctx context.Context, b *backends) error {
	client, err := cache.New(ctx, b.cfg.RedisAddr)
	if err != nil {
		return err
	}
	b.redis = client
	return nil
}

func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func (b *backends) redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: b.cfg.RedisAddr}
}

// service builds the engine over the Postgres pool.
func (b *backends) service() (*ledger.Service, error) {
	if b.pool == nil {
		return nil, errors.New("postgres not connected")
	}
	settings, err := b.cfg.LedgerSettings()
	if err != nil {
		return nil, err
	}
	return ledger.NewService(ledger.PostgresSnapshots(b.pool), settings, b.logger), nil
}

// sinks returns a factory that renders PDFs through Gotenberg.
func (b *backends) sinks() tbreport.SinkFactory {
	pdf := report.NewClient(b.cfg.GotenbergURL)
	return func(format export.Format) (export.Sink, error) {
		return export.New(format, pdf)
	}
}

func approvalGate(cfg *app.Config) tbreport.ApprovalGate {
	if len(cfg.ApprovedCompanies) == 0 {
		if cfg.ApproveUnscoped {
			return tbreport.AllowAll
		}
		return tbreport.ApprovalFunc(func(_ context.Context, payload jobs.TrialBalancePayload) error {
			if payload.CompanyID <= 0 {
				return tbreport.ErrNotApproved
			}
			return nil
		})
	}
	return tbreport.CompanyAllowList(cfg.ApproveUnscoped, cfg.ApprovedCompanies...)
}
