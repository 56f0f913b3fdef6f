// Package history holds the append-only step log for a single backtest run.
package history

import (
	"time"

	"crypto-backtest-lab/internal/domain"
)

// Recorder accumulates StepRecords in insertion order. It is append-only:
// records are never updated or evicted, because exact metrics require the
// full history. There is no intra-run concurrency, so the Recorder is not
// synchronized; each run owns its own instance.
type Recorder struct {
	records []domain.StepRecord
}

// NewRecorder creates an empty step recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one step outcome. The driver guarantees step indices are
// recorded once and in order; the recorder does not deduplicate.
func (r *Recorder) Record(step int, timestamp time.Time, info *domain.StepInfo, reward float64) {
	r.records = append(r.records, domain.StepRecord{
		Step:      step,
		Timestamp: timestamp,
		Info:      info,
		Reward:    reward,
	})
}

// Records returns the full history in insertion order. The returned slice is
// the recorder's backing store; callers must not mutate it.
func (r *Recorder) Records() []domain.StepRecord {
	return r.records
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int {
	return len(r.records)
}
