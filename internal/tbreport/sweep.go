package tbreport

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/glengine/internal/export"
	"github.com/odyssey-erp/glengine/jobs"
)

// SweepJob removes rendered reports older than the requested retention.
type SweepJob struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewSweepJob constructs the cleanup handler for dir.
func NewSweepJob(dir string, logger *slog.Logger) *SweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{dir: dir, logger: logger.With(slog.String("job", jobs.TaskArtefactSweep)), now: time.Now}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (s *SweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.ArtefactSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OlderThan <= 0 {
		return asynq.SkipRetry
	}
	removed, err := s.Sweep(ctx, payload.OlderThan)
	if err != nil {
		return err
	}
	s.logger.Info("report artefacts swept", slog.Int("removed", removed), slog.Duration("older_than", payload.OlderThan))
	return nil
}

// Sweep deletes artefacts and stale partial files last modified before
// now - olderThan.
func (s *SweepJob) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !isArtefact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("remove artefact", slog.String("file", entry.Name()), slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, nil
}

func isArtefact(name string) bool {
	if strings.HasSuffix(name, ".partial") {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	switch export.Format(ext) {
	case export.FormatXLSX, export.FormatCSV, export.FormatPDF:
		return true
	}
	return false
}
