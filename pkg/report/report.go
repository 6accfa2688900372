// Package report builds the end-of-run summary spec.md §6 requires: total
// attempted, new/updated/unchanged/error counts, per-stage histograms,
// average completeness by category, and operator-triage lists of unresolved
// courts and unmatched judge initials.
package report

import (
	"log/slog"

	"github.com/courtlens/enrichpipe/pkg/dedup"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/runner"
	"github.com/courtlens/enrichpipe/pkg/store"
)

// StageCounts is the ok/skipped/failed tally for one stage across a run.
type StageCounts struct {
	OK      int `json:"ok"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Report is the run-level summary emitted at the end of a run (spec.md §6).
//
// new+updated+unchanged+errors+cancelled == total_attempted always holds
// (spec.md §8 property 4, extended to account for run cancellation, which
// the property's original four buckets predate): a record cut short by
// context cancellation is neither an error nor a completed write, so it
// gets its own bucket rather than silently dropping out of the
// reconciliation.
type Report struct {
	TotalAttempted int `json:"total_attempted"`
	New            int `json:"new"`
	Updated        int `json:"updated"`
	Unchanged      int `json:"unchanged"`
	Errors         int `json:"errors"`
	Cancelled      int `json:"cancelled"`

	PerStage map[docmodel.StageID]StageCounts `json:"per_stage"`

	// AverageCompletenessByCategory excludes every cancelled, errored or
	// dedup-skipped record, including one that errored at upsert after its
	// completeness score was computed.
	AverageCompletenessByCategory map[docmodel.Category]float64 `json:"average_completeness_by_category"`

	// UnresolvedCourts/UnmatchedJudgeInitials list the source ids of every
	// record that failed that one signal, for operator triage (spec.md §6).
	UnresolvedCourts       []string `json:"unresolved_courts"`
	UnmatchedJudgeInitials []string `json:"unmatched_judge_initials"`
}

// Build aggregates a run's RecordOutcomes and the executor's stage
// accounting into a Report.
func Build(outcomes []runner.RecordOutcome, stageSnapshot map[docmodel.StageID]pipeline.StageHistogram) Report {
	r := Report{
		TotalAttempted:                len(outcomes),
		PerStage:                      make(map[docmodel.StageID]StageCounts, len(stageSnapshot)),
		AverageCompletenessByCategory: make(map[docmodel.Category]float64),
	}

	for stage, h := range stageSnapshot {
		r.PerStage[stage] = StageCounts{OK: h.OK, Skipped: h.Skipped, Failed: h.Failed}
	}

	completenessSum := make(map[docmodel.Category]float64)
	completenessCount := make(map[docmodel.Category]int)

	for _, o := range outcomes {
		switch {
		case o.Cancelled:
			r.Cancelled++
		case o.Error != nil:
			r.Errors++
		case o.Decision == dedup.DecisionSkipDuplicate, o.Decision == dedup.DecisionSkipUnchanged:
			// Both decisions short-circuit before Persistence.Upsert ever
			// runs (runner.go), so UpsertAction is never set for them; a
			// record unchanged since the last run is unchanged all the
			// same, and a within-run duplicate never reaches new/updated/
			// unchanged/errors either — without this branch it would fall
			// out of every bucket, breaking the new+updated+unchanged+
			// errors == total_attempted reconciliation (spec.md §8
			// property 4).
			r.Unchanged++
		case o.UpsertAction == string(store.ActionNew):
			r.New++
		case o.UpsertAction == string(store.ActionUpdated):
			r.Updated++
		case o.UpsertAction == string(store.ActionUnchanged):
			r.Unchanged++
		}

		if !o.Cancelled && o.Error == nil && o.Decision != dedup.DecisionSkipDuplicate && o.Decision != dedup.DecisionSkipUnchanged {
			completenessSum[o.Category] += o.CompletenessScore
			completenessCount[o.Category]++
		}

		if o.UnresolvedCourt {
			r.UnresolvedCourts = append(r.UnresolvedCourts, o.SourceID)
		}
		if o.UnmatchedJudge {
			r.UnmatchedJudgeInitials = append(r.UnmatchedJudgeInitials, o.SourceID)
		}
	}

	for category, sum := range completenessSum {
		r.AverageCompletenessByCategory[category] = sum / float64(completenessCount[category])
	}

	return r
}

// Log emits the report as a structured log line, mirroring the teacher's
// slog field-based shutdown summaries (pkg/queue/pool.go).
func (r Report) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("run complete",
		"total_attempted", r.TotalAttempted,
		"new", r.New,
		"updated", r.Updated,
		"unchanged", r.Unchanged,
		"errors", r.Errors,
		"cancelled", r.Cancelled,
		"unresolved_courts", len(r.UnresolvedCourts),
		"unmatched_judge_initials", len(r.UnmatchedJudgeInitials),
	)
	for stage, counts := range r.PerStage {
		logger.Info("stage tally", "stage", stage, "ok", counts.OK, "skipped", counts.Skipped, "failed", counts.Failed)
	}
	for category, avg := range r.AverageCompletenessByCategory {
		logger.Info("completeness by category", "category", category, "average_score", avg)
	}
}
