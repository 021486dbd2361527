// Package job tracks the lifecycle of a single backfill run.
package job

import (
	"fmt"
	"time"
)

// Phase represents one stage of the backfill run.
type Phase string

// Phase values, in run order. Seeding is skipped when the table already
// holds rows, so Advance accepts any forward jump.
const (
	PhasePending      Phase = "pending"
	PhaseLoadingModel Phase = "loading_model"
	PhaseConnecting   Phase = "connecting"
	PhaseSeeding      Phase = "seeding"
	PhaseEmbedding    Phase = "embedding"
	PhaseCommitting   Phase = "committing"
	PhaseVerifying    Phase = "verifying"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

var phaseOrder = map[Phase]int{
	PhasePending:      0,
	PhaseLoadingModel: 1,
	PhaseConnecting:   2,
	PhaseSeeding:      3,
	PhaseEmbedding:    4,
	PhaseCommitting:   5,
	PhaseVerifying:    6,
	PhaseCompleted:    7,
}

// IsTerminal returns true if the phase represents a final state.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Status represents the state of a backfill run with progress tracking.
type Status struct {
	phase        Phase
	startedAt    time.Time
	updatedAt    time.Time
	total        int
	current      int
	errorMessage string
}

// NewStatus creates a Status in the pending phase.
func NewStatus() Status {
	now := time.Now().UTC()
	return Status{
		phase:     PhasePending,
		startedAt: now,
		updatedAt: now,
	}
}

// Phase returns the current phase.
func (s Status) Phase() Phase { return s.phase }

// StartedAt returns when the run started.
func (s Status) StartedAt() time.Time { return s.startedAt }

// UpdatedAt returns when the status last changed.
func (s Status) UpdatedAt() time.Time { return s.updatedAt }

// Total returns the number of rows the run processes.
func (s Status) Total() int { return s.total }

// Current returns how many rows have been processed so far.
func (s Status) Current() int { return s.current }

// Error returns the error message if the run failed.
func (s Status) Error() string { return s.errorMessage }

// Advance moves the run to a later phase. Moves to earlier phases and
// changes out of terminal phases are ignored, so callers can advance
// unconditionally.
func (s Status) Advance(next Phase) Status {
	if s.phase.IsTerminal() {
		return s
	}
	nextIdx, ok := phaseOrder[next]
	if !ok || nextIdx <= phaseOrder[s.phase] {
		return s
	}
	s.phase = next
	s.updatedAt = time.Now().UTC()
	return s
}

// Fail marks the run as failed with the given error message. Failing a
// terminal run is a no-op.
func (s Status) Fail(errorMsg string) Status {
	if s.phase.IsTerminal() {
		return s
	}
	s.phase = PhaseFailed
	s.errorMessage = errorMsg
	s.updatedAt = time.Now().UTC()
	return s
}

// Complete marks the run as completed and forces progress to 100%.
func (s Status) Complete() Status {
	if s.phase.IsTerminal() {
		return s
	}
	s.phase = PhaseCompleted
	s.current = s.total
	s.updatedAt = time.Now().UTC()
	return s
}

// SetTotal sets the number of rows the run will process.
func (s Status) SetTotal(total int) Status {
	s.total = total
	s.updatedAt = time.Now().UTC()
	return s
}

// SetCurrent records per-row progress within the embedding phase.
func (s Status) SetCurrent(current int) Status {
	s.current = current
	s.updatedAt = time.Now().UTC()
	return s
}

// CompletionPercent calculates the completion percentage.
func (s Status) CompletionPercent() float64 {
	if s.total == 0 {
		return 0.0
	}
	percent := float64(s.current) / float64(s.total) * 100.0
	if percent < 0 {
		return 0.0
	}
	if percent > 100 {
		return 100.0
	}
	return percent
}

// Elapsed returns how long the run has been going.
func (s Status) Elapsed() time.Duration {
	return s.updatedAt.Sub(s.startedAt)
}

// String renders the status for log output, e.g. "embedding 2/3".
func (s Status) String() string {
	if s.total > 0 && !s.phase.IsTerminal() {
		return fmt.Sprintf("%s %d/%d", s.phase, s.current, s.total)
	}
	return string(s.phase)
}
