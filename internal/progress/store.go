// Package progress persists trial balance job status in Redis so that the
// HTTP surface and the CLI can poll a ticket while the worker computes it.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/glengine/internal/ledger"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusNoData  Status = "no_data"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusNoData || s == StatusFailed
}

const keyPrefix = "glengine:tb:status:"

// ErrNotFound is returned for unknown or expired tickets.
var ErrNotFound = errors.New("progress: ticket not found")

// Record is the stored state of one ticket.
type Record struct {
	Ticket    string    `json:"ticket"`
	Status    Status    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Result    string    `json:"result,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// The stored percentage never decreases, even across retries.
var updateScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'percent') or '-1')
local pct = tonumber(ARGV[2])
if cur ~= nil and pct < cur then pct = cur end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'percent', pct, 'message', ARGV[3], 'updated_at', ARGV[4])
if ARGV[5] ~= '' then redis.call('HSET', KEYS[1], 'result', ARGV[5]) end
redis.call('PEXPIRE', KEYS[1], ARGV[6])
return pct
`)

// Store reads and writes ticket state.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore constructs a Store. Records expire ttl after their last update.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func key(ticket string) string {
	return keyPrefix + ticket
}

// Set records a transition. Percent is clamped to [0,100] and never moves
// backwards for a ticket.
func (s *Store) Set(ctx context.Context, ticket string, status Status, percent int, message string) error {
	return s.update(ctx, ticket, status, percent, message, "")
}

// Finish records a terminal state. result is the artefact location for done
// tickets and may be empty otherwise.
func (s *Store) Finish(ctx context.Context, ticket string, status Status, message, result string) error {
	if !status.Terminal() {
		return fmt.Errorf("progress: %s is not a terminal status", status)
	}
	percent := 0
	if status == StatusDone || status == StatusNoData {
		percent = 100
	}
	return s.update(ctx, ticket, status, percent, message, result)
}

func (s *Store) update(ctx context.Context, ticket string, status Status, percent int, message, result string) error {
	if s == nil || s.client == nil {
		return errors.New("progress: store not configured")
	}
	if ticket == "" {
		return errors.New("progress: ticket required")
	}
	percent = min(max(percent, 0), 100)
	args := []any{
		string(status),
		percent,
		message,
		s.now().UTC().Format(time.RFC3339Nano),
		result,
		s.ttl.Milliseconds(),
	}
	if err := updateScript.Run(ctx, s.client, []string{key(ticket)}, args...).Err(); err != nil {
		return fmt.Errorf("progress: update %s: %w", ticket, err)
	}
	return nil
}

// Get loads the current state of ticket.
func (s *Store) Get(ctx context.Context, ticket string) (Record, error) {
	if s == nil || s.client == nil {
		return Record{}, errors.New("progress: store not configured")
	}
	fields, err := s.client.HGetAll(ctx, key(ticket)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("progress: get %s: %w", ticket, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	rec := Record{
		Ticket:  ticket,
		Status:  Status(fields["status"]),
		Message: fields["message"],
		Result:  fields["result"],
	}
	rec.Percent, _ = strconv.Atoi(fields["percent"])
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, nil
}

// Reporter adapts the store to the engine's progress callback. Store errors
// are logged and never abort the computation.
func (s *Store) Reporter(ctx context.Context, ticket string, logger *slog.Logger) ledger.ProgressFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(percent int, message string) {
		if err := s.Set(ctx, ticket, StatusRunning, percent, message); err != nil {
			logger.Warn("progress update failed", slog.String("ticket", ticket), slog.Any("error", err))
		}
	}
}
