// Package pipeline implements the PipelineExecutor: it runs a
// ClassifiedRecord's stage plan to completion with per-stage isolation,
// accounting, and timeouts, never letting a single stage's failure stop the
// rest of the plan (spec.md §4.2).
package pipeline

import (
	"context"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// StageResult is what a Stage implementation returns for the non-error case:
// a genuine success with a non-trivial payload, a self-reported skip with a
// reason, or a self-reported failure with a reason (the court and judge
// stages report failed when no signal resolves). Stages never report "ok"
// with an empty payload —
// spec.md §9 forbids "successful empty outcomes" as control flow; a stage
// that found nothing meaningful must return Skipped.
type StageResult struct {
	Status  docmodel.StageStatus // StatusOK, StatusSkipped or StatusFailed
	Payload map[string]any
	Reason  string // required when Status is StatusSkipped or StatusFailed
}

// Prior is the read-only view of StageOutcomes already recorded earlier in
// the current record's plan, letting a downstream stage consult an upstream
// one (e.g. judge resolution reads court resolution's jurisdiction_id).
type Prior map[docmodel.StageID]docmodel.StageOutcome

// Stage is the contract every enrichment stage implements. Run must not
// panic for ordinary failure conditions — return an error instead — but the
// executor recovers from panics regardless, treating them like any other
// stage error (spec.md §4.2 isolation).
type Stage interface {
	ID() docmodel.StageID
	Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior Prior) (StageResult, error)
}

// StageFunc adapts a plain function to the Stage interface for stages simple
// enough not to need their own type.
type StageFunc struct {
	StageID StageID
	Fn      func(ctx context.Context, rec *docmodel.ClassifiedRecord, prior Prior) (StageResult, error)
}

// StageID is a convenience alias so StageFunc reads naturally at call sites;
// it is identical to docmodel.StageID.
type StageID = docmodel.StageID

func (f StageFunc) ID() docmodel.StageID { return f.StageID }

func (f StageFunc) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior Prior) (StageResult, error) {
	return f.Fn(ctx, rec, prior)
}
