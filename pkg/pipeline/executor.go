package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtlens/enrichpipe/pkg/classifier"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// DefaultStageTimeout is the per-stage execution budget from spec.md §5. PDF
// fetch and persistence upsert have their own suspension-point timeouts owned
// by pkg/source and pkg/store respectively — this one bounds only the stage
// body itself.
const DefaultStageTimeout = 5 * time.Second

// Executor runs a ClassifiedRecord's stage plan to completion, isolating
// each stage's failure from the rest of the plan (spec.md §4.2) and
// recording a StageOutcome for every PlannedStage — including the ones
// skipped for category reasons, whose real Stage implementation is never
// invoked (spec.md §8 property 7).
type Executor struct {
	stages     map[docmodel.StageID]Stage
	timeout    time.Duration
	Accounting *Accounting
}

// NewExecutor builds an Executor from the given stages, keyed by their own
// ID(). Panics if two stages report the same ID — that is a wiring bug, not
// a runtime condition.
func NewExecutor(stages []Stage) *Executor {
	m := make(map[docmodel.StageID]Stage, len(stages))
	for _, s := range stages {
		if _, dup := m[s.ID()]; dup {
			panic(fmt.Sprintf("pipeline: duplicate stage registered for %s", s.ID()))
		}
		m[s.ID()] = s
	}
	return &Executor{
		stages:     m,
		timeout:    DefaultStageTimeout,
		Accounting: NewAccounting(),
	}
}

// WithTimeout overrides the per-stage timeout (used by tests).
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// Run executes every PlannedStage for rec in plan order and returns an
// EnrichedRecord carrying one StageOutcome per planned stage. If ctx is
// cancelled partway through, Run stops after the in-flight stage finishes
// and returns the partial EnrichedRecord together with docmodel.ErrCancelled
// — spec.md §5 requires partial outcomes to be preserved for a cancelled
// record even though the record itself is not persisted.
func (e *Executor) Run(ctx context.Context, rec docmodel.ClassifiedRecord) (docmodel.EnrichedRecord, error) {
	enriched := docmodel.EnrichedRecord{ClassifiedRecord: rec}

	log := slog.With("internal_id", rec.InternalID, "category", rec.CategoryValue)

	for _, planned := range rec.StagePlan {
		if err := ctx.Err(); err != nil {
			log.Warn("record processing cancelled mid-plan", "stage", planned.Stage, "error", err)
			return enriched, fmt.Errorf("%w: %v", docmodel.ErrCancelled, err)
		}

		if !planned.Applicable {
			enriched.Outcomes = append(enriched.Outcomes, docmodel.StageOutcome{
				Stage:  planned.Stage,
				Status: docmodel.StatusSkipped,
				Reason: classifier.SkippedReason(rec.CategoryValue),
			})
			e.Accounting.record(planned.Stage, docmodel.StatusSkipped, 0)
			continue
		}

		outcome := e.runStage(ctx, planned, &enriched.ClassifiedRecord, enriched.Outcomes)
		enriched.Outcomes = append(enriched.Outcomes, outcome)
	}

	return enriched, nil
}

// priorOutcomes builds the Prior lookup a stage sees from everything recorded
// so far in this record's run.
func priorOutcomes(outcomes []docmodel.StageOutcome) Prior {
	p := make(Prior, len(outcomes))
	for _, o := range outcomes {
		p[o.Stage] = o
	}
	return p
}

// runStage invokes one applicable stage with its own timeout and panic
// isolation, grounded on the recover-and-continue loop in
// pkg/queue/worker.go's run method (there per-session, here per-stage).
func (e *Executor) runStage(ctx context.Context, planned docmodel.PlannedStage, rec *docmodel.ClassifiedRecord, prior []docmodel.StageOutcome) (outcome docmodel.StageOutcome) {
	stage, known := e.stages[planned.Stage]
	if !known {
		return docmodel.StageOutcome{
			Stage:  planned.Stage,
			Status: docmodel.StatusFailed,
			Reason: "no implementation registered for stage",
		}
	}

	stageCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	outcome.Stage = planned.Stage

	defer func() {
		d := time.Since(start)
		outcome.Duration = d
		e.Accounting.record(planned.Stage, outcome.Status, d)
	}()

	result, err := e.invoke(stageCtx, stage, rec, priorOutcomes(prior))

	if err != nil {
		reason := err.Error()
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		slog.Warn("stage failed", "stage", planned.Stage, "internal_id", rec.InternalID, "reason", reason)
		outcome.Status = docmodel.StatusFailed
		outcome.Reason = reason
		return outcome
	}

	outcome.Status = result.Status
	outcome.Payload = result.Payload
	outcome.Reason = result.Reason
	return outcome
}

// invoke calls the stage's Run, converting a panic into an error so one
// misbehaving stage can never take down the executor or a sibling stage.
func (e *Executor) invoke(ctx context.Context, stage Stage, rec *docmodel.ClassifiedRecord, prior Prior) (result StageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = docmodel.NewStageError(stage.ID(), "panic", fmt.Errorf("%v", r))
		}
	}()

	result, err = stage.Run(ctx, rec, prior)
	if err != nil {
		return StageResult{}, docmodel.NewStageError(stage.ID(), "execution error", err)
	}
	return result, nil
}
