package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/glengine/internal/platform/db"
)

// AllCompaniesName labels reports run without a company scope.
const AllCompaniesName = "All Companies"

// SnapshotFunc runs fn against a Store bound to one consistent read snapshot.
type SnapshotFunc func(ctx context.Context, fn func(Store) error) error

// PostgresSnapshots opens a read-only repeatable-read transaction per run.
func PostgresSnapshots(pool db.Beginner) SnapshotFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return db.WithSnapshot(ctx, pool, func(tx pgx.Tx) error {
			return fn(NewRepository(tx))
		})
	}
}

// StaticSnapshots always hands out the same store.
func StaticSnapshots(store Store) SnapshotFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return fn(store)
	}
}

// Service is the entry point used by jobs and the CLI.
type Service struct {
	snapshots SnapshotFunc
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the trial balance service.
func NewService(snapshots SnapshotFunc, settings Settings, logger *slog.Logger) *Service {
	return &Service{snapshots: snapshots, settings: settings, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Settings exposes the engine constants in use.
func (s *Service) Settings() Settings {
	return s.settings
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// BuildTrialBalance computes a full trial balance. Any failure aborts the
// whole report; partial rows are never returned.
func (s *Service) BuildTrialBalance(ctx context.Context, p Params, progress ProgressFunc) (TrialBalance, error) {
	if s == nil || s.snapshots == nil {
		return TrialBalance{}, ErrNotConfigured
	}
	if err := s.settings.Validate(); err != nil {
		return TrialBalance{}, err
	}
	if p.FSFilter == "" {
		p.FSFilter = FSAll
	}
	if err := p.Validate(); err != nil {
		return TrialBalance{}, err
	}

	logger := s.log().With(
		slog.Int64("company_id", p.CompanyID),
		slog.String("accounts", p.StartAccount+".."+p.EndAccount),
		slog.String("from", p.StartDate.Format(DateLayout)),
		slog.String("to", p.EndDate.Format(DateLayout)),
		slog.String("fs", string(p.FSFilter)),
	)
	started := s.now()

	var tb TrialBalance
	err := s.snapshots(ctx, func(store Store) error {
		name, err := store.CompanyName(ctx, p.CompanyID)
		if err != nil {
			return err
		}
		assembler := NewAssembler(s.settings, store, s.logger).WithProgress(progress)
		assembler.WithNow(s.now)
		built, err := assembler.Build(ctx, p)
		if err != nil {
			return err
		}
		built.CompanyName = name
		if p.CompanyID <= 0 {
			built.CompanyName = AllCompaniesName
		}
		tb = built
		return nil
	})
	if err != nil {
		var dsErr *DataSourceError
		switch {
		case errors.Is(err, ErrNoAccountsInRange):
			logger.Info("trial balance has no accounts")
		case errors.As(err, &dsErr):
			logger.Error("trial balance data source", slog.String("op", dsErr.Op), slog.String("family", dsErr.Family), slog.Any("error", err))
		default:
			logger.Error("trial balance failed", slog.Any("error", err))
		}
		return TrialBalance{}, err
	}
	logger.Info("trial balance built", slog.Int("rows", len(tb.Rows)), slog.Duration("duration", s.now().Sub(started)))
	return tb, nil
}
