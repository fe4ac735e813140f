package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/ledger"
	"github.com/odyssey-erp/glengine/internal/progress"
	"github.com/odyssey-erp/glengine/internal/tbreport"
)

func newRunCommand() *cobra.Command {
	var (
		req    tbreport.Request
		outDir string
		ticket string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build one trial balance synchronously and write it to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Validate(nil); err != nil {
				return err
			}
			if ticket == "" {
				ticket = uuid.NewString()
			}
			if !tbreport.ValidTicket(ticket) {
				return fmt.Errorf("invalid ticket %q", ticket)
			}
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.ReportStorageDir
			}

			b := &backends{cfg: cfg, logger: logger}
			defer b.Close()
			if err := openPostgres(cmd.Context(), b); err != nil {
				return err
			}
			service, err := b.service()
			if err != nil {
				return err
			}
			job := tbreport.NewJob(tbreport.JobConfig{
				Builder:    service,
				Status:     newConsoleStatus(cmd.ErrOrStderr()),
				Sinks:      b.sinks(),
				StorageDir: outDir,
				Logger:     logger,
			})
			path, err := job.Run(cmd.Context(), req.Payload(ticket))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	bindRequestFlags(cmd, &req)
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to REPORT_STORAGE_DIR)")
	cmd.Flags().StringVar(&ticket, "ticket", "", "file name stem (defaults to a new UUID)")

	return cmd
}

// consoleStatus prints ticket transitions instead of storing them.
type consoleStatus struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleStatus(w io.Writer) *consoleStatus {
	return &consoleStatus{w: w}
}

func (c *consoleStatus) Set(_ context.Context, _ string, status progress.Status, percent int, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%3d%%] %s %s\n", percent, status, message)
	return err
}

func (c *consoleStatus) Finish(_ context.Context, _ string, status progress.Status, message, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s: %s\n", status, message)
	return err
}

func (c *consoleStatus) Reporter(ctx context.Context, ticket string, logger *slog.Logger) ledger.ProgressFunc {
	return func(percent int, message string) {
		if err := c.Set(ctx, ticket, progress.StatusRunning, percent, message); err != nil {
			logger.Warn("progress output failed", slog.Any("error", err))
		}
	}
}
