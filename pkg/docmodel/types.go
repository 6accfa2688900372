// Package docmodel contains the shared record types that flow through the
// enrichment pipeline: RawRecord in, StoredRecord out, with ClassifiedRecord,
// StageOutcome and EnrichedRecord as the intermediate shapes.
package docmodel

import "time"

// Category is the document kind a RawRecord is classified into.
type Category string

// Known categories, in classifier precedence order.
const (
	CategoryFullOpinion      Category = "full_opinion"
	CategoryMetadataDocument Category = "metadata_document"
	CategoryOrder            Category = "order"
	CategoryUnknown          Category = "unknown"
)

// StageID names one of the six enrichment stages.
type StageID string

// Stage identifiers, in the order they run within a plan.
const (
	StageCourt      StageID = "court_resolution"
	StageCitation   StageID = "citation_extraction"
	StageReporter   StageID = "reporter_normalization"
	StageJudge      StageID = "judge_resolution"
	StageStructure  StageID = "structure_analysis"
	StageKeyword    StageID = "keyword_extraction"
)

// StageStatus is the terminal state of one StageOutcome.
type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusSkipped StageStatus = "skipped"
	StatusFailed  StageStatus = "failed"
)

// RawRecord is a document as received from a DocumentSource, before
// classification. Fields mirror spec.md §3 exactly.
type RawRecord struct {
	SourceID      string         `json:"source_id,omitempty"`
	InternalID    string         `json:"internal_id"`
	KindHint      string         `json:"kind_hint,omitempty"`
	Content       string         `json:"content,omitempty"`
	Metadata      map[string]any `json:"metadata"`
	CaseNumber    string         `json:"case_number,omitempty"`
	PDFReference  string         `json:"pdf_reference,omitempty"`

	// IDWasSynthesized records that SourceID (or both ids) had to be derived;
	// see SynthesizeIDs.
	IDWasSynthesized bool `json:"id_was_synthesized,omitempty"`

	// MetadataWasScalar records that the upstream Metadata field arrived as a
	// non-mapping value and was wrapped under "raw" by the input adapter.
	MetadataWasScalar bool `json:"metadata_was_scalar,omitempty"`

	// Origin marks a record that re-entered the pipeline after paid-source
	// fulfillment completed (spec.md §9).
	Origin string `json:"origin,omitempty"`

	IngestTimestamp time.Time `json:"ingest_timestamp,omitempty"`
}

// PlannedStage is one entry in a ClassifiedRecord's stage plan. A stage that
// is part of the plan but not Applicable for the record's category is still
// attempted by the executor — it immediately resolves to a StageOutcome with
// status=skipped without the stage's real implementation ever running
// (spec.md §4.1, §8 property 7). A stage the category excludes entirely
// (e.g. structure analysis for "unknown") is never a PlannedStage at all.
type PlannedStage struct {
	Stage      StageID `json:"stage"`
	Applicable bool    `json:"applicable"`

	// JudgeMode is only meaningful for StageJudge: which lookup mode to try
	// first (spec.md §4.6). Empty for every other stage.
	JudgeMode JudgeMode `json:"judge_mode,omitempty"`
}

// JudgeMode selects which of judge resolution's lookup strategies runs
// first for a record's category (spec.md §4.6).
type JudgeMode string

const (
	JudgeModeContentFirst  JudgeMode = "content_first"
	JudgeModeMetadataFirst JudgeMode = "metadata_first"
)

// ClassifiedRecord is a RawRecord plus the classifier's decision.
type ClassifiedRecord struct {
	RawRecord
	CategoryValue Category       `json:"category"`
	StagePlan     []PlannedStage `json:"stage_plan"`
}

// StageIDs returns the ordered list of stage identifiers in the plan,
// regardless of applicability — this is the set spec.md §8 property 2
// requires to equal the set of stages with a recorded StageOutcome.
func (c *ClassifiedRecord) StageIDs() []StageID {
	ids := make([]StageID, len(c.StagePlan))
	for i, p := range c.StagePlan {
		ids[i] = p.Stage
	}
	return ids
}

// PlannedFor reports whether stage appears in the plan at all (applicable or
// not), and whether it is Applicable.
func (c *ClassifiedRecord) PlannedFor(stage StageID) (planned, applicable bool) {
	for _, p := range c.StagePlan {
		if p.Stage == stage {
			return true, p.Applicable
		}
	}
	return false, false
}

// StageOutcome is the result of running one stage against one record.
type StageOutcome struct {
	Stage    StageID        `json:"stage"`
	Status   StageStatus    `json:"status"`
	Payload  map[string]any `json:"payload,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// EnrichedRecord is a ClassifiedRecord with every attempted StageOutcome
// attached, ready for MetadataAssembler.
type EnrichedRecord struct {
	ClassifiedRecord
	Outcomes []StageOutcome `json:"outcomes"`
}

// Outcome returns the StageOutcome for the given stage, if one was recorded.
func (e *EnrichedRecord) Outcome(stage StageID) (StageOutcome, bool) {
	for _, o := range e.Outcomes {
		if o.Stage == stage {
			return o, true
		}
	}
	return StageOutcome{}, false
}

// StoredRecord is the persisted row shape described in spec.md §6.
type StoredRecord struct {
	InternalID     string         `json:"internal_id"`
	Kind           Category       `json:"kind"`
	CaseNumber     string         `json:"case_number"`
	JurisdictionID *string        `json:"jurisdiction_id"`
	Content        string         `json:"content"`
	ContentHash    string         `json:"content_hash"`
	MetadataBlob   map[string]any `json:"metadata_blob"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Fingerprint is the deterministic dedup key described in spec.md §4.9.
type Fingerprint string
