package pipeline

import (
	"sync"
	"time"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// StageHistogram accumulates outcome counts and total duration for one stage
// across every record an Executor has processed.
type StageHistogram struct {
	OK            int
	Skipped       int
	Failed        int
	TotalDuration time.Duration
}

// Accounting is the Executor's run-wide counters, grounded on the
// mutex-guarded tally pattern in pkg/queue/pool.go. Safe for concurrent use
// across the bounded fan-out workers in pkg/runner.
type Accounting struct {
	mu           sync.Mutex
	StagesOK     int
	StagesSkipped int
	StagesFailed int
	PerStage     map[docmodel.StageID]*StageHistogram
}

// NewAccounting returns an empty Accounting ready for use.
func NewAccounting() *Accounting {
	return &Accounting{PerStage: make(map[docmodel.StageID]*StageHistogram)}
}

func (a *Accounting) record(stage docmodel.StageID, status docmodel.StageStatus, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.PerStage[stage]
	if !ok {
		h = &StageHistogram{}
		a.PerStage[stage] = h
	}
	h.TotalDuration += d

	switch status {
	case docmodel.StatusOK:
		a.StagesOK++
		h.OK++
	case docmodel.StatusSkipped:
		a.StagesSkipped++
		h.Skipped++
	case docmodel.StatusFailed:
		a.StagesFailed++
		h.Failed++
	}
}

// Snapshot returns a copy of the per-stage histograms safe to read without
// holding the Executor's lock.
func (a *Accounting) Snapshot() map[docmodel.StageID]StageHistogram {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[docmodel.StageID]StageHistogram, len(a.PerStage))
	for k, v := range a.PerStage {
		out[k] = *v
	}
	return out
}
