// Package dedup implements the DeduplicationManager: it prevents repeated
// work within a single run via an in-memory fingerprint set, and across runs
// by consulting Persistence for a source_id's last known content_hash
// (spec.md §4.9).
package dedup

import (
	"context"
	"sync"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// Decision is the action the caller should take for a record.
type Decision string

const (
	// DecisionSkipDuplicate means an identical record was already seen within
	// this run; no stage should run for it.
	DecisionSkipDuplicate Decision = "skip_duplicate"
	// DecisionSkipUnchanged means Persistence already has this source_id with
	// an identical content_hash.
	DecisionSkipUnchanged Decision = "skip_unchanged"
	// DecisionUpdateExisting means Persistence has this source_id with a
	// different content_hash.
	DecisionUpdateExisting Decision = "update_existing"
	// DecisionInsertNew means Persistence has no row for this source_id.
	DecisionInsertNew Decision = "insert_new"
)

// PriorContent is the subset of the Persistence contract the
// DeduplicationManager needs: a lookup of a previously stored content hash
// by source id.
type PriorContent interface {
	ContentHashFor(ctx context.Context, sourceID string) (hash string, found bool, err error)
}

// Manager is the DeduplicationManager. Safe for concurrent use across the
// bounded fan-out workers in pkg/runner, mirroring the mutex-guarded map in
// pkg/session/manager.go.
type Manager struct {
	persistence PriorContent

	mu        sync.RWMutex
	seenInRun map[docmodel.Fingerprint]struct{}
}

// New builds a Manager. persistence may be nil, in which case every record
// not already seen within the run is reported insert_new — useful for tests
// and for a first cold run with no backing store wired yet.
func New(persistence PriorContent) *Manager {
	return &Manager{
		persistence: persistence,
		seenInRun:   make(map[docmodel.Fingerprint]struct{}),
	}
}

// Evaluate computes rec's fingerprint, checks it against records already
// seen in this run, and — if it's new to this run — consults Persistence for
// cross-run state. A fingerprint not yet seen is added to the in-run set
// before Persistence is consulted, whatever the decision turns out to be.
// It always returns the fingerprint.
func (m *Manager) Evaluate(ctx context.Context, rec docmodel.RawRecord) (Decision, docmodel.Fingerprint, error) {
	fp := docmodel.ComputeFingerprint(rec.SourceID, rec.CaseNumber, rec.Content)

	m.mu.Lock()
	_, dup := m.seenInRun[fp]
	if !dup {
		m.seenInRun[fp] = struct{}{}
	}
	m.mu.Unlock()

	if dup {
		return DecisionSkipDuplicate, fp, nil
	}

	if m.persistence == nil {
		return DecisionInsertNew, fp, nil
	}

	priorHash, found, err := m.persistence.ContentHashFor(ctx, rec.SourceID)
	if err != nil {
		return "", fp, err
	}
	if !found {
		return DecisionInsertNew, fp, nil
	}

	if priorHash == docmodel.ContentHash(rec.Content) {
		return DecisionSkipUnchanged, fp, nil
	}
	return DecisionUpdateExisting, fp, nil
}

// Reset clears the in-run fingerprint set. Used between runs by pkg/runner;
// Persistence state is untouched.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seenInRun = make(map[docmodel.Fingerprint]struct{})
}

// Seen reports the number of distinct fingerprints observed in the current
// run, for run-report accounting.
func (m *Manager) Seen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seenInRun)
}
