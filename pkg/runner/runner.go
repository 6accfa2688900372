// Package runner implements the bounded fan-out orchestrator that drives one
// run end to end: DocumentSource → DeduplicationManager → Classifier →
// PipelineExecutor → MetadataAssembler → Persistence → IndexSink (spec.md
// §5, §6).
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/courtlens/enrichpipe/pkg/assembler"
	"github.com/courtlens/enrichpipe/pkg/classifier"
	"github.com/courtlens/enrichpipe/pkg/dedup"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/indexsink"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/source"
	"github.com/courtlens/enrichpipe/pkg/store"
)

// DefaultConcurrency is the bounded fan-out width, spec.md §5 ("up to N
// records concurrently, default 5").
const DefaultConcurrency = 5

// RateLimitThreshold and RateLimitSleep implement spec.md §5's backpressure
// rule: the spec requires slowing down below some threshold but doesn't name
// one, so this package fixes a concrete value (see DESIGN.md).
const (
	RateLimitThreshold = 10
	RateLimitSleep     = 2 * time.Second
)

// Persistence is the subset of pkg/store.Repository the runner depends on.
type Persistence interface {
	Upsert(ctx context.Context, rec docmodel.StoredRecord) (store.UpsertResult, error)
}

// Deduplicator is the subset of pkg/dedup.Manager the runner depends on.
type Deduplicator interface {
	Evaluate(ctx context.Context, rec docmodel.RawRecord) (dedup.Decision, docmodel.Fingerprint, error)
}

// Orchestrator wires the six collaborators together and drives one run.
type Orchestrator struct {
	Source       source.DocumentSource
	PDFExtractor source.PDFExtractor
	Fulfillment  source.FulfillmentClient
	Budget       *source.Budget
	Dedup        Deduplicator
	Executor     *pipeline.Executor
	Persistence  Persistence
	Index        indexsink.IndexSink

	Concurrency int // 0 means DefaultConcurrency
	Logger      *slog.Logger
}

// RecordOutcome is what became of one RawRecord over the course of a run.
type RecordOutcome struct {
	SourceID          string
	Decision          dedup.Decision
	Category          docmodel.Category
	CompletenessScore float64
	UpsertAction      string
	UnresolvedCourt   bool
	UnmatchedJudge    bool

	// Cancelled marks a record whose pipeline run was cut short by run
	// cancellation (spec.md §5, §8 Scenario E). A cancelled record is
	// reported as its own status, distinct from Error, and is never
	// persisted.
	Cancelled bool
	Error     error
}

// Run drives filter through the full pipeline, fetching pages until the
// source reports no further cursor or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, filter source.Filter) ([]RecordOutcome, error) {
	logger := o.logger()
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	// Each run starts with an empty in-run dedup set and fresh stage counters.
	if d, ok := o.Dedup.(interface{ Reset() }); ok {
		d.Reset()
	}
	o.Executor.Accounting = pipeline.NewAccounting()

	var (
		outcomes []RecordOutcome
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, concurrency)
	)

	cursor := filter.Cursor
	for {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return outcomes, err
		}

		pageFilter := filter
		pageFilter.Cursor = cursor
		page, err := o.Source.Fetch(ctx, pageFilter)
		if err != nil {
			wg.Wait()
			return outcomes, err
		}

		for _, rec := range page.Records {
			rec := rec
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				outcome := o.processOne(ctx, rec)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}()
		}

		if page.RateRemaining > 0 && page.RateRemaining < RateLimitThreshold {
			logger.Warn("source rate budget low, slowing down", "rate_remaining", page.RateRemaining)
			select {
			case <-ctx.Done():
				wg.Wait()
				return outcomes, ctx.Err()
			case <-time.After(RateLimitSleep):
			}
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	wg.Wait()
	return outcomes, nil
}

// processOne runs one RawRecord through dedup, classification, enrichment,
// assembly, persistence, and index handoff, recovering from anything short
// of the run's own cancellation so one bad record never aborts the batch.
func (o *Orchestrator) processOne(ctx context.Context, rec docmodel.RawRecord) RecordOutcome {
	logger := o.logger()

	if err := docmodel.SynthesizeIDs(&rec); err != nil {
		return RecordOutcome{SourceID: rec.SourceID, Error: err}
	}

	decision, _, err := o.Dedup.Evaluate(ctx, rec)
	if err != nil {
		logger.Error("dedup evaluation failed", "source_id", rec.SourceID, "error", err)
		return RecordOutcome{SourceID: rec.SourceID, Error: err}
	}
	if decision == dedup.DecisionSkipDuplicate || decision == dedup.DecisionSkipUnchanged {
		return RecordOutcome{SourceID: rec.SourceID, Decision: decision}
	}

	rec = o.resolveBody(ctx, rec)

	classified := classifier.Classify(rec)

	enriched, err := o.Executor.Run(ctx, classified)
	if err != nil {
		if errors.Is(err, docmodel.ErrCancelled) {
			logger.Warn("pipeline run cancelled mid-record, not persisting", "source_id", rec.SourceID)
			return RecordOutcome{SourceID: rec.SourceID, Decision: decision, Category: classified.CategoryValue, Cancelled: true}
		}
		logger.Error("pipeline execution failed", "source_id", rec.SourceID, "error", err)
	}

	assembled := assembler.Assemble(enriched)

	var jurisdictionID *string
	if outcome, ok := enriched.Outcome(docmodel.StageCourt); ok && outcome.Status == docmodel.StatusOK {
		if id, ok := outcome.Payload["jurisdiction_id"].(string); ok {
			jurisdictionID = &id
		}
	}

	stored := docmodel.StoredRecord{
		InternalID:     rec.InternalID,
		Kind:           classified.CategoryValue,
		CaseNumber:     rec.CaseNumber,
		JurisdictionID: jurisdictionID,
		Content:        rec.Content,
		ContentHash:    docmodel.ContentHash(rec.Content),
		MetadataBlob:   assembled.MetadataBlob,
		UpdatedAt:      time.Now(),
	}

	upsertResult, err := o.Persistence.Upsert(ctx, stored)
	if err != nil {
		logger.Error("persistence upsert failed", "internal_id", stored.InternalID, "error", err)
		return RecordOutcome{
			SourceID:          rec.SourceID,
			Decision:          decision,
			Category:          classified.CategoryValue,
			CompletenessScore: assembled.CompletenessScore,
			Error:             err,
		}
	}

	// IndexSink handoff only after upsert succeeds (spec.md §5 ordering
	// guarantee); an index failure does not undo the persisted row.
	if o.Index != nil {
		doc := indexsink.FromStoredRecord(stored)
		if err := o.Index.Index(ctx, []indexsink.Document{doc}); err != nil {
			logger.Error("index handoff failed", "internal_id", stored.InternalID, "error", err)
		}
	}

	return RecordOutcome{
		SourceID:          rec.SourceID,
		Decision:          decision,
		Category:          classified.CategoryValue,
		CompletenessScore: assembled.CompletenessScore,
		UpsertAction:      string(upsertResult.Action),
		UnresolvedCourt:   assembled.UnresolvedCourt,
		UnmatchedJudge:    assembled.UnmatchedJudgeInitials,
	}
}

// resolveBody fetches rec's body when the source didn't inline it, and
// kicks off paid-source fulfillment when the body requires purchase
// (spec.md §6, §9). A record still pending purchase is returned unchanged
// and is persisted with whatever stages could run on its empty content;
// nothing in the runner submits it again once the purchase completes.
func (o *Orchestrator) resolveBody(ctx context.Context, rec docmodel.RawRecord) docmodel.RawRecord {
	if rec.Content != "" {
		return rec
	}

	if rec.PDFReference != "" {
		return o.resolvePDFBody(ctx, rec)
	}

	body, err := o.Source.FetchBody(ctx, rec)
	if err != nil {
		o.logger().Warn("fetch_body failed", "source_id", rec.SourceID, "error", err)
		return rec
	}

	if body != source.BodySentinel {
		rec.Content = body
		return rec
	}

	o.requestPurchase(ctx, rec)
	return rec
}

// resolvePDFBody fetches the raw PDF bytes behind rec.PDFReference and runs
// them through the PDF extractor, a distinct suspension point from the
// DocumentSource fetch (spec.md §5). A failed extraction is isolated to this
// record — it is persisted with whatever metadata-only stages could run.
func (o *Orchestrator) resolvePDFBody(ctx context.Context, rec docmodel.RawRecord) docmodel.RawRecord {
	pdfBytes, err := o.Source.FetchPDF(ctx, rec.PDFReference)
	if err != nil {
		o.logger().Warn("fetch_pdf failed", "source_id", rec.SourceID, "error", err)
		return rec
	}

	if o.PDFExtractor == nil {
		return rec
	}

	result, err := o.PDFExtractor.ExtractText(ctx, pdfBytes)
	if err != nil {
		o.logger().Warn("pdf extraction failed", "source_id", rec.SourceID, "error", err)
		return rec
	}

	rec.Content = result.Text
	return rec
}

func (o *Orchestrator) requestPurchase(ctx context.Context, rec docmodel.RawRecord) {
	if o.Fulfillment == nil {
		return
	}
	if o.Budget != nil && !o.Budget.Reserve(1.0) {
		o.logger().Info("paid-source budget exhausted, skipping purchase", "source_id", rec.SourceID, "reason", "budget_exhausted")
		return
	}
	if err := o.Fulfillment.RequestPurchase(ctx, source.PurchaseRequest{SourceID: rec.SourceID}); err != nil {
		o.logger().Warn("purchase request failed", "source_id", rec.SourceID, "error", err)
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
