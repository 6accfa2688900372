package docmodel

import (
	"fmt"

	"github.com/google/uuid"
)

// SynthesizeIDs fills in SourceID when the source omitted it, following the
// priority order from spec.md §3: fall back to InternalID, and if both are
// absent, synthesize from (CaseNumber, IngestTimestamp).
//
// An empty InternalID is itself synthesized from (CaseNumber,
// IngestTimestamp), and SourceID is then derived from it. When either of
// those is missing too, SynthesizeIDs returns an ErrInputInvalid error (the
// Input error kind in spec.md §7).
func SynthesizeIDs(r *RawRecord) error {
	if r.InternalID == "" {
		if r.CaseNumber == "" || r.IngestTimestamp.IsZero() {
			return fmt.Errorf("%w: record has no internal_id and insufficient data to synthesize one", ErrInputInvalid)
		}
		r.InternalID = fmt.Sprintf("synth:%s:%d", r.CaseNumber, r.IngestTimestamp.UnixNano())
		r.IDWasSynthesized = true
	}

	if r.SourceID == "" {
		if r.InternalID != "" {
			r.SourceID = "internal:" + r.InternalID
		} else if r.CaseNumber != "" && !r.IngestTimestamp.IsZero() {
			r.SourceID = fmt.Sprintf("synth:%s:%d", r.CaseNumber, r.IngestTimestamp.UnixNano())
		} else {
			r.SourceID = "uuid:" + uuid.NewString()
		}
		r.IDWasSynthesized = true
	}

	return nil
}

// NormalizeMetadata wraps a non-mapping Metadata value as {"raw": <original>}
// and records MetadataWasScalar, per the input-adapter rule in spec.md §9.
// Nil metadata becomes an empty mapping so downstream stages can always
// operate on a map.
func NormalizeMetadata(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, false
	case map[string]any:
		return v, false
	default:
		return map[string]any{"raw": v}, true
	}
}
