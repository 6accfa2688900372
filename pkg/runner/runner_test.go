package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlens/enrichpipe/pkg/dedup"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/indexsink"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/source"
	"github.com/courtlens/enrichpipe/pkg/store"
)

// fakeSource serves a fixed sequence of pages. FetchBody always reports the
// must-purchase sentinel, so a record without inline content takes the
// purchase path; PDF fetch is never exercised.
type fakeSource struct {
	pages []source.Page
	idx   int
	mu    sync.Mutex
}

func (f *fakeSource) Fetch(ctx context.Context, filter source.Filter) (source.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.pages) {
		return source.Page{}, nil
	}
	p := f.pages[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeSource) FetchBody(ctx context.Context, rec docmodel.RawRecord) (string, error) {
	return source.BodySentinel, nil
}

func (f *fakeSource) FetchPDF(ctx context.Context, pdfReference string) ([]byte, error) {
	return nil, nil
}

// fakePersistence records every Upsert call, always reporting ActionNew.
type fakePersistence struct {
	mu    sync.Mutex
	calls []docmodel.StoredRecord
}

func (f *fakePersistence) Upsert(ctx context.Context, rec docmodel.StoredRecord) (store.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rec)
	return store.UpsertResult{Action: store.ActionNew, RowID: rec.InternalID}, nil
}

func (f *fakePersistence) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeIndexSink records every batch handed to it.
type fakeIndexSink struct {
	mu    sync.Mutex
	calls [][]indexsink.Document
}

func (f *fakeIndexSink) Index(ctx context.Context, docs []indexsink.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, docs)
	return nil
}

func (f *fakeIndexSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func trivialExecutor() *pipeline.Executor {
	ok := func(stage docmodel.StageID) pipeline.Stage {
		return pipeline.StageFunc{
			StageID: stage,
			Fn: func(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
				payload := map[string]any{"done": true}
				if stage == docmodel.StageCourt {
					payload["jurisdiction_id"] = "txed"
				}
				return pipeline.StageResult{Status: docmodel.StatusOK, Payload: payload}, nil
			},
		}
	}
	return pipeline.NewExecutor([]pipeline.Stage{
		ok(docmodel.StageCourt),
		ok(docmodel.StageCitation),
		ok(docmodel.StageReporter),
		ok(docmodel.StageJudge),
		ok(docmodel.StageStructure),
		ok(docmodel.StageKeyword),
	})
}

func newOrchestrator(src *fakeSource, persist *fakePersistence, index *fakeIndexSink) *Orchestrator {
	return &Orchestrator{
		Source:      src,
		Dedup:       dedup.New(nil),
		Executor:    trivialExecutor(),
		Persistence: persist,
		Index:       index,
		Concurrency: 2,
	}
}

func TestOrchestrator_PersistsAndIndexesFetchedRecords(t *testing.T) {
	src := &fakeSource{pages: []source.Page{
		{Records: []docmodel.RawRecord{
			{InternalID: "a", SourceID: "s-a", Content: "content a"},
			{InternalID: "b", SourceID: "s-b", Content: "content b"},
		}},
	}}
	persist := &fakePersistence{}
	index := &fakeIndexSink{}
	orch := newOrchestrator(src, persist, index)

	outcomes, err := orch.Run(context.Background(), source.Filter{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, 2, persist.count())
	assert.Equal(t, 2, index.count())

	for _, o := range outcomes {
		assert.Equal(t, dedup.DecisionInsertNew, o.Decision)
		assert.Equal(t, "new", o.UpsertAction)
		assert.Greater(t, o.CompletenessScore, 0.0)
	}
}

func TestOrchestrator_DuplicateWithinRunNeverReachesPersistenceOrIndex(t *testing.T) {
	rec := docmodel.RawRecord{InternalID: "a", SourceID: "s-a", Content: "same content", CaseNumber: "cv-1"}
	src := &fakeSource{pages: []source.Page{{Records: []docmodel.RawRecord{rec, rec}}}}
	persist := &fakePersistence{}
	index := &fakeIndexSink{}
	orch := newOrchestrator(src, persist, index)
	orch.Concurrency = 1 // deterministic: process sequentially so one is guaranteed the duplicate

	outcomes, err := orch.Run(context.Background(), source.Filter{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	decisions := []dedup.Decision{outcomes[0].Decision, outcomes[1].Decision}
	assert.Contains(t, decisions, dedup.DecisionInsertNew)
	assert.Contains(t, decisions, dedup.DecisionSkipDuplicate)
	assert.Equal(t, 1, persist.count(), "only the first occurrence should reach persistence")
	assert.Equal(t, 1, index.count(), "only the first occurrence should reach the index")
}

func TestOrchestrator_NoFulfillmentClientSkipsPurchaseSilently(t *testing.T) {
	src := &fakeSource{pages: []source.Page{
		{Records: []docmodel.RawRecord{{InternalID: "a", SourceID: "s-a"}}},
	}}
	persist := &fakePersistence{}
	index := &fakeIndexSink{}
	orch := newOrchestrator(src, persist, index)
	orch.Fulfillment = nil

	outcomes, err := orch.Run(context.Background(), source.Filter{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Error)
}

// cancelMidPlanExecutor cancels ctx as a side effect of its first stage, so
// the executor observes cancellation before its second stage and returns
// docmodel.ErrCancelled with a partial EnrichedRecord (pipeline/executor.go).
func cancelMidPlanExecutor(cancel context.CancelFunc) *pipeline.Executor {
	cancelling := pipeline.StageFunc{
		StageID: docmodel.StageCourt,
		Fn: func(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
			cancel()
			return pipeline.StageResult{Status: docmodel.StatusOK, Payload: map[string]any{"jurisdiction_id": "txed"}}, nil
		},
	}
	ok := func(stage docmodel.StageID) pipeline.Stage {
		return pipeline.StageFunc{
			StageID: stage,
			Fn: func(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
				return pipeline.StageResult{Status: docmodel.StatusOK}, nil
			},
		}
	}
	return pipeline.NewExecutor([]pipeline.Stage{
		cancelling,
		ok(docmodel.StageCitation),
		ok(docmodel.StageReporter),
		ok(docmodel.StageJudge),
		ok(docmodel.StageStructure),
		ok(docmodel.StageKeyword),
	})
}

// TestOrchestrator_CancelledRecordIsNotPersisted covers spec.md §5 and §8
// Scenario E: a record whose pipeline run is cut short by cancellation is
// reported as Cancelled, not as an Error, and never reaches Persistence or
// the IndexSink.
func TestOrchestrator_CancelledRecordIsNotPersisted(t *testing.T) {
	src := &fakeSource{pages: []source.Page{
		{Records: []docmodel.RawRecord{{InternalID: "a", SourceID: "s-a", Content: "content a"}}},
	}}
	persist := &fakePersistence{}
	index := &fakeIndexSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := &Orchestrator{
		Source:      src,
		Dedup:       dedup.New(nil),
		Executor:    cancelMidPlanExecutor(cancel),
		Persistence: persist,
		Index:       index,
		Concurrency: 1,
	}

	outcomes, err := orch.Run(ctx, source.Filter{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.True(t, outcomes[0].Cancelled)
	assert.NoError(t, outcomes[0].Error)
	assert.Equal(t, 0, persist.count())
	assert.Equal(t, 0, index.count())
}

func TestOrchestrator_CancelledContextStopsFetchingFurtherPages(t *testing.T) {
	src := &fakeSource{pages: []source.Page{
		{Records: []docmodel.RawRecord{{InternalID: "a", SourceID: "s-a", Content: "x"}}, NextCursor: "page2"},
		{Records: []docmodel.RawRecord{{InternalID: "b", SourceID: "s-b", Content: "y"}}},
	}}
	persist := &fakePersistence{}
	index := &fakeIndexSink{}
	orch := newOrchestrator(src, persist, index)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx, source.Filter{})
	require.Error(t, err)
}

func TestOrchestrator_RateLimitBackpressureSleepsButRespectsCancellation(t *testing.T) {
	src := &fakeSource{pages: []source.Page{
		{Records: []docmodel.RawRecord{{InternalID: "a", SourceID: "s-a", Content: "x"}}, NextCursor: "page2", RateRemaining: 1},
		{Records: []docmodel.RawRecord{{InternalID: "b", SourceID: "s-b", Content: "y"}}},
	}}
	persist := &fakePersistence{}
	index := &fakeIndexSink{}
	orch := newOrchestrator(src, persist, index)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := orch.Run(ctx, source.Filter{})
	require.Error(t, err, "the backpressure sleep must still honor context cancellation")
}
