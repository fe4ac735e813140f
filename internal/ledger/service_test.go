package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLabelsCompany(t *testing.T) {
	store := newMemStore().
		addAccount(1, "1000", "BS").
		addAccount(2, "1000", "BS")
	store.companies[1] = "Northwind Trading"
	clock := func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }
	svc := NewService(StaticSnapshots(store), DefaultSettings(), quietLogger())
	svc.WithNow(clock)

	tb, err := svc.BuildTrialBalance(context.Background(), march2025("1000", "1999"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Northwind Trading", tb.CompanyName)
	assert.Equal(t, clock(), tb.GeneratedAt)
	assert.Equal(t, FSAll, tb.Params.FSFilter)

	p := march2025("1000", "1999")
	p.CompanyID = 0
	tb, err = svc.BuildTrialBalance(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, AllCompaniesName, tb.CompanyName)
	assert.Len(t, tb.Rows, 1, "unscoped runs list each account code once")
}

func TestServiceRejectsInvalidInputWithoutOpeningSnapshot(t *testing.T) {
	opened := false
	snapshots := func(ctx context.Context, fn func(Store) error) error {
		opened = true
		return fn(newMemStore())
	}
	svc := NewService(snapshots, DefaultSettings(), quietLogger())

	p := march2025("9", "1")
	_, err := svc.BuildTrialBalance(context.Background(), p, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, opened)
}

func TestServiceRejectsInconsistentSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.FirstFlowYear = 2024
	svc := NewService(StaticSnapshots(newMemStore()), settings, quietLogger())

	_, err := svc.BuildTrialBalance(context.Background(), march2025("1", "9"), nil)
	assert.Error(t, err)
}

func TestServiceLogsDataSourceFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := newMemStore().addAccount(1, "1000", "BS")
	store.failOn = func(w Window) error {
		return &DataSourceError{Op: "postings", Family: "general_journal", Window: w, Err: errors.New("timeout")}
	}
	svc := NewService(StaticSnapshots(store), DefaultSettings(), logger)

	_, err := svc.BuildTrialBalance(context.Background(), march2025("1000", "1999"), nil)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "family=general_journal")
	assert.Contains(t, buf.String(), "op=postings")
}

func TestServiceNilIsNotConfigured(t *testing.T) {
	var svc *Service
	_, err := svc.BuildTrialBalance(context.Background(), Params{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
