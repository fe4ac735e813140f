package tbreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/glengine/internal/export"
	jobmetrics "github.com/odyssey-erp/glengine/internal/jobs"
	"github.com/odyssey-erp/glengine/internal/ledger"
	"github.com/odyssey-erp/glengine/internal/progress"
	"github.com/odyssey-erp/glengine/jobs"
)

const metricsJobName = "tb_build"

// Builder computes a trial balance. *ledger.Service satisfies it.
type Builder interface {
	BuildTrialBalance(ctx context.Context, p ledger.Params, progress ledger.ProgressFunc) (ledger.TrialBalance, error)
}

// StatusStore records ticket transitions. *progress.Store satisfies it.
type StatusStore interface {
	Set(ctx context.Context, ticket string, status progress.Status, percent int, message string) error
	Finish(ctx context.Context, ticket string, status progress.Status, message, result string) error
	Reporter(ctx context.Context, ticket string, logger *slog.Logger) ledger.ProgressFunc
}

// SinkFactory returns the renderer for a format.
type SinkFactory func(format export.Format) (export.Sink, error)

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Builder    Builder
	Status     StatusStore
	Sinks      SinkFactory
	Approvals  ApprovalGate
	StorageDir string
	Metrics    *jobmetrics.Metrics
	Logger     *slog.Logger
}

// Job processes trial balance requests coming from the queue.
type Job struct {
	builder    Builder
	status     StatusStore
	sinks      SinkFactory
	approvals  ApprovalGate
	storageDir string
	metrics    *jobmetrics.Metrics
	logger     *slog.Logger
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	approvals := cfg.Approvals
	if approvals == nil {
		approvals = AllowAll
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		builder:    cfg.Builder,
		status:     cfg.Status,
		sinks:      cfg.Sinks,
		approvals:  approvals,
		storageDir: cfg.StorageDir,
		metrics:    cfg.Metrics,
		logger:     logger.With(slog.String("job", jobs.TaskTrialBalanceBuild)),
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.builder == nil || j.status == nil || j.sinks == nil {
		return fmt.Errorf("tbreport job not configured")
	}
	var payload jobs.TrialBalancePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if !ValidTicket(payload.Ticket) {
		j.logger.Warn("discarding task with invalid ticket", slog.String("ticket", payload.Ticket))
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(metricsJobName)
	_, outcome, err := j.run(ctx, payload)
	return tracker.End(outcome, err)
}

// Run executes one request synchronously and returns the artefact path. It is
// the body of Handle without the queue envelope.
func (j *Job) Run(ctx context.Context, payload jobs.TrialBalancePayload) (string, error) {
	if j == nil || j.builder == nil || j.status == nil || j.sinks == nil {
		return "", fmt.Errorf("tbreport job not configured")
	}
	if !ValidTicket(payload.Ticket) {
		return "", &ledger.InputError{Field: "ticket", Reason: "invalid ticket"}
	}
	path, _, err := j.run(ctx, payload)
	return path, err
}

func (j *Job) run(ctx context.Context, payload jobs.TrialBalancePayload) (path, outcome string, err error) {
	logger := j.logger.With(slog.String("ticket", payload.Ticket), slog.Int64("company_id", payload.CompanyID))
	params, format, err := RequestFromPayload(payload).Params()
	if err != nil {
		j.finish(ctx, logger, payload.Ticket, progress.StatusFailed, err.Error(), "")
		return "", "invalid", skipRetry(err)
	}
	if err := j.approvals.Approve(ctx, payload); err != nil {
		j.finish(ctx, logger, payload.Ticket, progress.StatusFailed, err.Error(), "")
		if errors.Is(err, ErrNotApproved) {
			return "", "rejected", skipRetry(err)
		}
		return "", "", err
	}
	if err := j.status.Set(ctx, payload.Ticket, progress.StatusRunning, 1, "starting"); err != nil {
		logger.Warn("progress update failed", slog.Any("error", err))
	}

	tb, err := j.builder.BuildTrialBalance(ctx, params, j.status.Reporter(ctx, payload.Ticket, logger))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNoAccountsInRange):
			j.finish(ctx, logger, payload.Ticket, progress.StatusNoData, "no accounts in the requested range", "")
			return "", "no_data", skipRetry(err)
		case errors.Is(err, ledger.ErrInvalidInput):
			j.finish(ctx, logger, payload.Ticket, progress.StatusFailed, err.Error(), "")
			return "", "invalid", skipRetry(err)
		default:
			j.finish(ctx, logger, payload.Ticket, progress.StatusFailed, "trial balance computation failed: "+err.Error(), "")
			return "", "", err
		}
	}
	if tb.Totals.Drift().Abs().GreaterThan(ledger.InvariantTolerance) {
		j.metrics.InvariantViolated()
	}

	if err := j.status.Set(ctx, payload.Ticket, progress.StatusRunning, 97, "rendering "+string(format)); err != nil {
		logger.Warn("progress update failed", slog.Any("error", err))
	}
	path, err = j.render(ctx, payload.Ticket, format, tb)
	if err != nil {
		j.finish(ctx, logger, payload.Ticket, progress.StatusFailed, "rendering failed: "+err.Error(), "")
		return "", "", err
	}
	j.metrics.AddRows(string(format), len(tb.Rows))
	j.finish(ctx, logger, payload.Ticket, progress.StatusDone, "ready", path)
	logger.Info("trial balance ready", slog.String("file", path), slog.Int("rows", len(tb.Rows)), slog.String("requested_by", payload.RequestedBy))
	return path, "success", nil
}

// finish writes a terminal state even when ctx has already expired, so a
// timed-out run is never left in running.
func (j *Job) finish(ctx context.Context, logger *slog.Logger, ticket string, status progress.Status, message, result string) {
	if err := j.status.Finish(context.WithoutCancel(ctx), ticket, status, message, result); err != nil {
		logger.Warn("progress finish failed", slog.String("status", string(status)), slog.Any("error", err))
	}
}

func (j *Job) render(ctx context.Context, ticket string, format export.Format, tb ledger.TrialBalance) (string, error) {
	sink, err := j.sinks(format)
	if err != nil {
		return "", err
	}
	dir := j.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+ticket+"-*.partial")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := sink.Write(ctx, tmp, tb); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := j.artefactPath(ticket, format)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

func (j *Job) dir() string {
	if strings.TrimSpace(j.storageDir) == "" {
		return filepath.Join(os.TempDir(), "trial-balances")
	}
	return j.storageDir
}

func (j *Job) artefactPath(ticket string, format export.Format) string {
	return filepath.Join(j.dir(), ticket+"."+format.Extension())
}

func skipRetry(err error) error {
	return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
}
