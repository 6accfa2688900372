// Package assembler implements the MetadataAssembler: it merges a record's
// StageOutcomes into one semi-structured metadata_blob and computes a
// per-record completeness score relative to the record's own stage plan
// (spec.md §4.10, §4.12).
package assembler

import "github.com/courtlens/enrichpipe/pkg/docmodel"

// EnrichmentsKey is the metadata_blob sub-key enrichments are nested under.
const EnrichmentsKey = "enrichments"

// SummaryKey is the metadata_blob sub-key the fast-query summary flags live
// under.
const SummaryKey = "summary"

// signalWeight names one scored completeness signal and the stage it derives
// from. "key metadata fields present" has no backing stage; it is computed
// directly from the record's upstream metadata.
type signalWeight struct {
	stage  docmodel.StageID
	weight float64
}

// weightsByCategory transcribes spec.md §4.12's table. Unknown has no row in
// the spec's table; see DESIGN.md for the rationale behind the weights
// chosen for it here (structure analysis is excluded from unknown's plan
// entirely by the classifier, so it carries no weight for that category,
// exactly as it carries none for metadata_document).
var weightsByCategory = map[docmodel.Category][]signalWeight{
	docmodel.CategoryFullOpinion: {
		{docmodel.StageCourt, 15},
		{docmodel.StageJudge, 15},
		{docmodel.StageCitation, 25},
		{docmodel.StageReporter, 10},
		{docmodel.StageStructure, 15},
	},
	docmodel.CategoryMetadataDocument: {
		{docmodel.StageCourt, 40},
		{docmodel.StageJudge, 40},
	},
	docmodel.CategoryOrder: {
		{docmodel.StageCourt, 25},
		{docmodel.StageJudge, 25},
		{docmodel.StageCitation, 20},
		{docmodel.StageReporter, 10},
		{docmodel.StageStructure, 10},
	},
	docmodel.CategoryUnknown: {
		{docmodel.StageCourt, 20},
		{docmodel.StageJudge, 20},
		{docmodel.StageCitation, 30},
		{docmodel.StageReporter, 15},
	},
}

// keyMetadataWeight is the "key metadata fields present" signal's weight,
// per category (spec.md §4.12's last row).
var keyMetadataWeight = map[docmodel.Category]float64{
	docmodel.CategoryFullOpinion:      20,
	docmodel.CategoryMetadataDocument: 20,
	docmodel.CategoryOrder:            10,
	docmodel.CategoryUnknown:          15,
}

// keyMetadataFields is the set of upstream metadata fields whose presence
// marks a record as carrying the "key metadata fields" signal: the docket
// identification fields (date_filed, nature_of_suit, docket_number,
// case_name) plus the court/judge fields the court and judge stages
// themselves look up (court, court_id, assigned_to, assigned_to_str) — a
// record naming its court and judge in metadata is carrying key metadata
// just as much as one naming its docket number.
var keyMetadataFields = []string{
	"date_filed", "nature_of_suit", "docket_number", "case_name",
	"court", "court_id", "assigned_to", "assigned_to_str",
}

// Assembled is the MetadataAssembler's output for one record.
type Assembled struct {
	MetadataBlob         map[string]any
	CompletenessScore    float64 // 0..100
	UnresolvedCourt      bool
	UnmatchedJudgeInitials bool
}

// Assemble merges rec's StageOutcomes and original metadata into a
// metadata_blob and computes the completeness score.
func Assemble(rec docmodel.EnrichedRecord) Assembled {
	enrichments := make(map[string]any, len(rec.Outcomes))
	summary := make(map[string]any)

	for _, o := range rec.Outcomes {
		entry := map[string]any{
			"status":   string(o.Status),
			"duration": o.Duration.String(),
		}
		if o.Payload != nil {
			entry["payload"] = o.Payload
		}
		if o.Reason != "" {
			entry["reason"] = o.Reason
		}
		enrichments[string(o.Stage)] = entry
	}

	if outcome, ok := rec.Outcome(docmodel.StageCourt); ok {
		summary["court_resolved"] = outcome.Status == docmodel.StatusOK
	}
	if outcome, ok := rec.Outcome(docmodel.StageJudge); ok {
		summary["judge_identified"] = outcome.Status == docmodel.StatusOK
	}
	if outcome, ok := rec.Outcome(docmodel.StageCitation); ok && outcome.Status == docmodel.StatusOK {
		if n, ok := outcome.Payload["count"].(int); ok {
			summary["citations_found_count"] = n
		}
	}
	if outcome, ok := rec.Outcome(docmodel.StageKeyword); ok {
		summary["keyword_matched"] = outcome.Status == docmodel.StatusOK
	}

	blob := make(map[string]any, len(rec.Metadata)+2)
	for k, v := range rec.Metadata {
		blob[k] = v
	}
	blob[EnrichmentsKey] = enrichments
	blob[SummaryKey] = summary

	return Assembled{
		MetadataBlob:           blob,
		CompletenessScore:      completeness(rec),
		UnresolvedCourt:        isFailed(rec, docmodel.StageCourt),
		UnmatchedJudgeInitials: isFailed(rec, docmodel.StageJudge),
	}
}

func isFailed(rec docmodel.EnrichedRecord, stage docmodel.StageID) bool {
	o, ok := rec.Outcome(stage)
	return ok && o.Status == docmodel.StatusFailed
}

// completeness implements spec.md §4.12: for each weighted signal in the
// record's plan, ok credits the full weight; a stage excluded from the plan
// or planned as not applicable (skipped-by-plan) drops out of both numerator
// and denominator;
// anything else (failed, or an applicable stage that self-reported skipped)
// credits zero but still counts toward the denominator.
func completeness(rec docmodel.EnrichedRecord) float64 {
	weights := weightsByCategory[rec.CategoryValue]

	var num, denom float64
	for _, sw := range weights {
		planned, applicable := rec.PlannedFor(sw.stage)
		if !planned || !applicable {
			continue // skipped-by-plan: excluded from both, spec.md §4.12
		}
		denom += sw.weight
		if o, ok := rec.Outcome(sw.stage); ok && o.Status == docmodel.StatusOK {
			num += sw.weight
		}
	}

	kmWeight := keyMetadataWeight[rec.CategoryValue]
	denom += kmWeight
	if hasKeyMetadataFields(rec.Metadata) {
		num += kmWeight
	}

	if denom == 0 {
		return 0
	}
	return (num / denom) * 100
}

func hasKeyMetadataFields(metadata map[string]any) bool {
	for _, field := range keyMetadataFields {
		if v, ok := metadata[field]; ok {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return true
		}
	}
	return false
}
