package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue trial balance builds run on.
	QueueDefault = "default"
	// TaskTrialBalanceBuild computes and renders one trial balance ticket.
	TaskTrialBalanceBuild = "tb:build"
	// TaskArtefactSweep removes report files past their retention.
	TaskArtefactSweep = "tb:sweep"
)

// DefaultBuildTimeout bounds a single trial balance run.
const DefaultBuildTimeout = 15 * time.Minute

// TrialBalancePayload describes one report request. Dates use YYYY-MM-DD.
type TrialBalancePayload struct {
	Ticket       string `json:"ticket"`
	CompanyID    int64  `json:"company_id"`
	StartAccount string `json:"start_account"`
	EndAccount   string `json:"end_account"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	FSFilter     string `json:"fs_filter,omitempty"`
	Format       string `json:"format,omitempty"`
	RequestedBy  string `json:"requested_by,omitempty"`
}

// BuildOptions tunes how a build task is queued.
type BuildOptions struct {
	Timeout  time.Duration
	MaxRetry int
}

// NewTrialBalanceTask constructs the Asynq task for payload. The ticket is
// used as the task ID so a ticket cannot be queued twice.
func NewTrialBalanceTask(payload TrialBalancePayload, opts BuildOptions) (*asynq.Task, error) {
	if payload.Ticket == "" {
		return nil, errors.New("jobs: ticket required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	options := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.TaskID(payload.Ticket),
		asynq.Timeout(timeout),
	}
	if opts.MaxRetry >= 0 {
		options = append(options, asynq.MaxRetry(opts.MaxRetry))
	}
	return asynq.NewTask(TaskTrialBalanceBuild, body, options...), nil
}

// ArtefactSweepPayload carries the retention window.
type ArtefactSweepPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewArtefactSweepTask constructs the periodic cleanup task.
func NewArtefactSweepTask(olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(ArtefactSweepPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArtefactSweep, body, asynq.Queue(QueueDefault)), nil
}
