package tbreport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesExpiredArtefactsOnly(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	write := func(name string, age time.Duration) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, now.Add(-age), now.Add(-age)))
	}
	write("old.xlsx", 10*24*time.Hour)
	write("old.pdf", 8*24*time.Hour)
	write(".abc-1.partial", 9*24*time.Hour)
	write("fresh.csv", time.Hour)
	write("notes.txt", 30*24*time.Hour)

	sweep := NewSweepJob(dir, nil)
	sweep.now = func() time.Time { return now }

	removed, err := sweep.Sweep(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.FileExists(t, filepath.Join(dir, "fresh.csv"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "old.xlsx"))
}

func TestSweepMissingDirectory(t *testing.T) {
	removed, err := NewSweepJob(filepath.Join(t.TempDir(), "missing"), nil).Sweep(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
