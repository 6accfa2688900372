package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/courtlens/enrichpipe/pkg/dedup"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/runner"
)

func TestBuild_TalliesActionsAndErrors(t *testing.T) {
	outcomes := []runner.RecordOutcome{
		{SourceID: "a", Decision: dedup.DecisionInsertNew, Category: docmodel.CategoryOrder, CompletenessScore: 80, UpsertAction: "new"},
		{SourceID: "b", Decision: dedup.DecisionUpdateExisting, Category: docmodel.CategoryOrder, CompletenessScore: 60, UpsertAction: "updated"},
		{SourceID: "c", Decision: dedup.DecisionInsertNew, Category: docmodel.CategoryOrder, UpsertAction: "", Error: assert.AnError},
		{SourceID: "d", Decision: dedup.DecisionSkipUnchanged},
	}

	r := Build(outcomes, nil)

	assert.Equal(t, 4, r.TotalAttempted)
	assert.Equal(t, 1, r.New)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Unchanged)
	assert.Equal(t, 1, r.Errors)
}

func TestBuild_AverageCompletenessExcludesErroredAndSkippedRecords(t *testing.T) {
	outcomes := []runner.RecordOutcome{
		{SourceID: "a", Category: docmodel.CategoryOrder, CompletenessScore: 100, UpsertAction: "new"},
		{SourceID: "b", Category: docmodel.CategoryOrder, CompletenessScore: 50, UpsertAction: "new"},
		{SourceID: "c", Category: docmodel.CategoryOrder, Error: assert.AnError},
		{SourceID: "d", Category: docmodel.CategoryOrder, Decision: dedup.DecisionSkipDuplicate},
	}

	r := Build(outcomes, nil)

	assert.InDelta(t, 75.0, r.AverageCompletenessByCategory[docmodel.CategoryOrder], 0.001)
}

func TestBuild_CollectsUnresolvedCourtsAndUnmatchedJudges(t *testing.T) {
	outcomes := []runner.RecordOutcome{
		{SourceID: "a", UnresolvedCourt: true},
		{SourceID: "b", UnmatchedJudge: true},
		{SourceID: "c", UnresolvedCourt: true, UnmatchedJudge: true},
	}

	r := Build(outcomes, nil)

	assert.ElementsMatch(t, []string{"a", "c"}, r.UnresolvedCourts)
	assert.ElementsMatch(t, []string{"b", "c"}, r.UnmatchedJudgeInitials)
}

func TestBuild_PerStageMirrorsAccountingSnapshot(t *testing.T) {
	snapshot := map[docmodel.StageID]pipeline.StageHistogram{
		docmodel.StageCourt: {OK: 3, Skipped: 1, Failed: 0, TotalDuration: time.Second},
	}

	r := Build(nil, snapshot)

	assert.Equal(t, StageCounts{OK: 3, Skipped: 1, Failed: 0}, r.PerStage[docmodel.StageCourt])
}
