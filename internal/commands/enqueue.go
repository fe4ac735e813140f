package commands

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/progress"
	"github.com/odyssey-erp/glengine/internal/tbreport"
	"github.com/odyssey-erp/glengine/jobs"
)

func newEnqueueCommand() *cobra.Command {
	var req tbreport.Request

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a trial balance build and print its ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Validate(nil); err != nil {
				return err
			}
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			b := &backends{cfg: cfg, logger: logger}
			defer b.Close()
			if err := openRedis(cmd.Context(), b); err != nil {
				return err
			}
			queue, err := jobs.NewClient(b.redisOpts(), cfg.BuildOptions())
			if err != nil {
				return err
			}
			defer func() { _ = queue.Close() }()

			ticket := uuid.NewString()
			status := progress.NewStore(b.redis, cfg.ProgressTTL)
			if err := status.Set(cmd.Context(), ticket, progress.StatusQueued, 0, "queued"); err != nil {
				return err
			}
			info, err := queue.EnqueueTrialBalance(cmd.Context(), req.Payload(ticket))
			if err != nil {
				if ferr := status.Finish(cmd.Context(), ticket, progress.StatusFailed, "enqueue failed", ""); ferr != nil {
					logger.Warn("progress finish failed", slog.Any("error", ferr))
				}
				return fmt.Errorf("enqueue: %w", err)
			}
			logger.Info("trial balance queued", slog.String("ticket", ticket), slog.String("task_id", info.ID))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ticket)
			return err
		},
	}

	bindRequestFlags(cmd, &req)
	return cmd
}
