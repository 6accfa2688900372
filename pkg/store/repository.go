package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/courtlens/enrichpipe/pkg/assembler"
	"github.com/courtlens/enrichpipe/pkg/docmodel"
)

// UpsertAction is what happened to a row on Upsert (spec.md §6 Persistence).
type UpsertAction string

const (
	ActionNew       UpsertAction = "new"
	ActionUpdated   UpsertAction = "updated"
	ActionUnchanged UpsertAction = "unchanged"
)

// UpsertResult is the outcome of one Upsert call.
type UpsertResult struct {
	Action UpsertAction
	RowID  string // internal_id; there is no separate surrogate key
}

// BatchResult aggregates per-row Upsert outcomes across one run (spec.md
// §4.11: "one failed row does not abort the batch").
type BatchResult struct {
	New       int
	Updated   int
	Unchanged int
	Errors    int
	RowErrors []RowError
}

// RowError names the record an Upsert call failed for.
type RowError struct {
	InternalID string
	Err        error
}

// Repository is the Persistence implementation backed by Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository builds a Repository over an already-migrated pool.
func NewRepository(c *Client) *Repository {
	return &Repository{db: c.db}
}

// ContentHashFor implements dedup.PriorContent: it looks up the stored
// content_hash for a source_id so DeduplicationManager can classify a record
// as skip_unchanged or update_existing before any stage runs. The table has
// no source_id column: sourceID is matched against internal_id, so a row is
// found only when the record's source_id equals its internal_id (a source_id
// filled in by SynthesizeIDs, "internal:<internal_id>", never matches).
func (r *Repository) ContentHashFor(ctx context.Context, sourceID string) (string, bool, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT content_hash FROM enriched_documents WHERE internal_id = $1`, sourceID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up content hash for %s: %w", sourceID, err)
	}
	return hash, true, nil
}

// Upsert inserts or updates one row keyed by internal_id (spec.md §4.11).
// On conflict, content_hash is compared: an equal hash is a no-op
// (unchanged); a different hash updates content, metadata_blob (deep-merged
// with the existing blob) and updated_at.
func (r *Repository) Upsert(ctx context.Context, rec docmodel.StoredRecord) (UpsertResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingHash string
	var existingBlobRaw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT content_hash, metadata_blob FROM enriched_documents WHERE internal_id = $1 FOR UPDATE`,
		rec.InternalID,
	).Scan(&existingHash, &existingBlobRaw)

	switch {
	case err == sql.ErrNoRows:
		if err := r.insert(ctx, tx, rec); err != nil {
			return UpsertResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("committing insert for %s: %w", rec.InternalID, err)
		}
		return UpsertResult{Action: ActionNew, RowID: rec.InternalID}, nil

	case err != nil:
		return UpsertResult{}, fmt.Errorf("reading existing row for %s: %w", rec.InternalID, err)
	}

	if existingHash == rec.ContentHash {
		return UpsertResult{Action: ActionUnchanged, RowID: rec.InternalID}, nil
	}

	var existingBlob map[string]any
	if len(existingBlobRaw) > 0 {
		if err := json.Unmarshal(existingBlobRaw, &existingBlob); err != nil {
			return UpsertResult{}, fmt.Errorf("decoding existing metadata_blob for %s: %w", rec.InternalID, err)
		}
	}

	merged := DeepMergeMetadataBlob(existingBlob, rec.MetadataBlob)

	if err := r.update(ctx, tx, rec, merged); err != nil {
		return UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("committing update for %s: %w", rec.InternalID, err)
	}
	return UpsertResult{Action: ActionUpdated, RowID: rec.InternalID}, nil
}

func (r *Repository) insert(ctx context.Context, tx *sql.Tx, rec docmodel.StoredRecord) error {
	blob, err := json.Marshal(rec.MetadataBlob)
	if err != nil {
		return fmt.Errorf("encoding metadata_blob for %s: %w", rec.InternalID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO enriched_documents
			(internal_id, kind, case_number, jurisdiction_id, content, content_hash, metadata_blob, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.InternalID, string(rec.Kind), rec.CaseNumber, rec.JurisdictionID,
		rec.Content, rec.ContentHash, blob, timeOrNow(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", rec.InternalID, err)
	}
	return nil
}

func (r *Repository) update(ctx context.Context, tx *sql.Tx, rec docmodel.StoredRecord, mergedBlob map[string]any) error {
	blob, err := json.Marshal(mergedBlob)
	if err != nil {
		return fmt.Errorf("encoding merged metadata_blob for %s: %w", rec.InternalID, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE enriched_documents
		SET kind = $2, case_number = $3, jurisdiction_id = $4, content = $5,
		    content_hash = $6, metadata_blob = $7, updated_at = $8
		WHERE internal_id = $1`,
		rec.InternalID, string(rec.Kind), rec.CaseNumber, rec.JurisdictionID,
		rec.Content, rec.ContentHash, blob, timeOrNow(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", rec.InternalID, err)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// UpsertBatch runs Upsert for every record, isolating per-row failures
// (spec.md §4.11: "one failed row does not abort the batch").
func (r *Repository) UpsertBatch(ctx context.Context, recs []docmodel.StoredRecord) BatchResult {
	var result BatchResult
	for _, rec := range recs {
		res, err := r.Upsert(ctx, rec)
		if err != nil {
			result.Errors++
			result.RowErrors = append(result.RowErrors, RowError{InternalID: rec.InternalID, Err: err})
			continue
		}
		switch res.Action {
		case ActionNew:
			result.New++
		case ActionUpdated:
			result.Updated++
		case ActionUnchanged:
			result.Unchanged++
		}
	}
	return result
}

// DeepMergeMetadataBlob merges newBlob onto existing, with special handling
// for the "enrichments" sub-key (spec.md §4.11): a stage's prior successful
// outcome is never silently downgraded by a new non-ok outcome for the same
// stage — both are recorded, with the prior ok kept as the current value and
// the new non-ok attempt attached as superseded_attempt. Every other
// top-level key is replaced by newBlob's value when present.
func DeepMergeMetadataBlob(existing, newBlob map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(newBlob))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range newBlob {
		if k == assembler.EnrichmentsKey {
			continue
		}
		merged[k] = v
	}

	existingEnrichments, _ := existing[assembler.EnrichmentsKey].(map[string]any)
	newEnrichments, _ := newBlob[assembler.EnrichmentsKey].(map[string]any)
	merged[assembler.EnrichmentsKey] = mergeEnrichments(existingEnrichments, newEnrichments)

	return merged
}

func mergeEnrichments(existing, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}

	for stage, newEntryRaw := range incoming {
		newEntry, ok := newEntryRaw.(map[string]any)
		if !ok {
			out[stage] = newEntryRaw
			continue
		}

		priorEntryRaw, hadPrior := existing[stage]
		priorEntry, priorIsMap := priorEntryRaw.(map[string]any)

		if statusOf(newEntry) == string(docmodel.StatusOK) || !hadPrior || !priorIsMap || statusOf(priorEntry) != string(docmodel.StatusOK) {
			out[stage] = newEntry
			continue
		}

		// Prior was ok, new attempt was not: keep the prior ok current, but
		// record the new attempt so it isn't lost.
		kept := make(map[string]any, len(priorEntry)+1)
		for k, v := range priorEntry {
			kept[k] = v
		}
		kept["superseded_attempt"] = newEntry
		out[stage] = kept
	}

	return out
}

func statusOf(entry map[string]any) string {
	s, _ := entry["status"].(string)
	return s
}
