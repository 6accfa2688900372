package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

type fakePersistence struct {
	hashes map[string]string
}

func (f *fakePersistence) ContentHashFor(ctx context.Context, sourceID string) (string, bool, error) {
	h, ok := f.hashes[sourceID]
	return h, ok, nil
}

func TestDedup_DuplicateWithinRun(t *testing.T) {
	m := New(nil)
	rec := docmodel.RawRecord{SourceID: "src1", Content: "hello world"}

	d1, fp1, err := m.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DecisionInsertNew, d1)

	d2, fp2, err := m.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DecisionSkipDuplicate, d2)
	assert.Equal(t, fp1, fp2)
}

func TestDedup_InsertNewWhenNoPriorRow(t *testing.T) {
	m := New(&fakePersistence{hashes: map[string]string{}})
	rec := docmodel.RawRecord{SourceID: "src1", Content: "hello"}
	d, _, err := m.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DecisionInsertNew, d)
}

func TestDedup_SkipUnchangedWhenSameHash(t *testing.T) {
	rec := docmodel.RawRecord{SourceID: "src1", Content: "hello"}
	m := New(&fakePersistence{hashes: map[string]string{"src1": docmodel.ContentHash("hello")}})
	d, _, err := m.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DecisionSkipUnchanged, d)
}

func TestDedup_UpdateExistingWhenDifferentHash(t *testing.T) {
	rec := docmodel.RawRecord{SourceID: "src1", Content: "hello, changed"}
	m := New(&fakePersistence{hashes: map[string]string{"src1": docmodel.ContentHash("hello")}})
	d, _, err := m.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DecisionUpdateExisting, d)
}

func TestDedup_ResetClearsRunState(t *testing.T) {
	m := New(nil)
	rec := docmodel.RawRecord{SourceID: "src1", Content: "hello"}
	_, _, _ = m.Evaluate(context.Background(), rec)
	assert.Equal(t, 1, m.Seen())
	m.Reset()
	assert.Equal(t, 0, m.Seen())

	d, _, err := m.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DecisionInsertNew, d, "after reset the same record is no longer a within-run duplicate")
}
