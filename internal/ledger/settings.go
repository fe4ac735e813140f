package ledger

import (
	"fmt"
	"time"
)

const (
	// DefaultREThreshold is the numeric code of the retained earnings account.
	// Codes above it are profit and loss accounts.
	DefaultREThreshold = 4031
	// DefaultFirstFlowYear is the first year rolled forward from the baseline.
	DefaultFirstFlowYear = 2025
	// DefaultWorkers bounds the per-account fan-out.
	DefaultWorkers = 4
)

// DefaultBaselineDate is the frozen go-live snapshot date.
var DefaultBaselineDate = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

// Settings carries the constants the engine is parameterised with.
type Settings struct {
	REThreshold   int64
	BaselineDate  time.Time
	FirstFlowYear int
	// ApplyBaselineBackout subtracts the baseline backout from balance sheet
	// openings that start inside the baseline year.
	ApplyBaselineBackout bool
	Workers              int
}

// DefaultSettings returns the production constants.
func DefaultSettings() Settings {
	return Settings{
		REThreshold:   DefaultREThreshold,
		BaselineDate:  DefaultBaselineDate,
		FirstFlowYear: DefaultFirstFlowYear,
		Workers:       DefaultWorkers,
	}
}

// Validate checks settings consistency.
func (s Settings) Validate() error {
	if s.REThreshold <= 0 {
		return fmt.Errorf("ledger: retained earnings threshold must be positive")
	}
	if s.BaselineDate.IsZero() {
		return fmt.Errorf("ledger: baseline date required")
	}
	if s.FirstFlowYear <= s.BaselineDate.Year() {
		return fmt.Errorf("ledger: first flow year %d must follow baseline year %d", s.FirstFlowYear, s.BaselineDate.Year())
	}
	return nil
}

// FlowStart is the first day after the baseline cutover.
func (s Settings) FlowStart() time.Time {
	return dateOnly(s.BaselineDate).AddDate(0, 0, 1)
}

func (s Settings) workers() int {
	if s.Workers <= 0 {
		return 1
	}
	return s.Workers
}
