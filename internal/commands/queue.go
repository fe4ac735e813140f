package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/progress"
	"github.com/odyssey-erp/glengine/jobs"
)

// queueCLI wraps manual management helpers for the report queue.
type queueCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func newQueueCLI(opts asynq.RedisClientOpt) *queueCLI {
	return &queueCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *queueCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// Stats reports the metrics for the default queue.
func (c *queueCLI) Stats() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("queue cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// Scheduled returns scheduled task infos.
func (c *queueCLI) Scheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("queue cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// Sweep enqueues an artefact sweep now.
func (c *queueCLI) Sweep(ctx context.Context, olderThan time.Duration) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("queue cli: client not configured")
	}
	task, err := jobs.NewArtefactSweepTask(olderThan)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(1))
}

func newQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the report queue",
	}
	cmd.AddCommand(newQueueStatsCommand(), newQueueScheduledCommand(), newQueueStatusCommand(), newQueueSweepCommand())
	return cmd
}

func withQueue(fn func(cmd *cobra.Command, q *queueCLI) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadRuntime()
		if err != nil {
			return err
		}
		q := newQueueCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = q.Close() }()
		return fn(cmd, q)
	}
}

func newQueueStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts for the default queue",
		Args:  cobra.NoArgs,
		RunE: withQueue(func(cmd *cobra.Command, q *queueCLI) error {
			stats, err := q.Stats()
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), stats)
		}),
	}
}

func writeStats(w io.Writer, stats QueueStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return tw.Flush()
}

func newQueueScheduledCommand() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: withQueue(func(cmd *cobra.Command, q *queueCLI) error {
			tasks, err := q.Scheduled(size)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format(time.RFC3339))
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&size, "size", 10, "page size")
	return cmd
}

func newQueueSweepCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Queue an immediate cleanup of old report files",
		Args:  cobra.NoArgs,
		RunE: withQueue(func(cmd *cobra.Command, q *queueCLI) error {
			info, err := q.Sweep(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return err
		}),
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "remove files older than this")
	return cmd
}

func newQueueStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <ticket>",
		Short: "Show the progress of a queued trial balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			b := &backends{cfg: cfg, logger: logger}
			defer b.Close()
			if err := openRedis(cmd.Context(), b); err != nil {
				return err
			}
			rec, err := progress.NewStore(b.redis, cfg.ProgressTTL).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d%%\t%s\t%s\n",
				rec.Ticket, rec.Status, rec.Percent, rec.Message, rec.UpdatedAt.UTC().Format(time.RFC3339))
			return err
		},
	}
}
