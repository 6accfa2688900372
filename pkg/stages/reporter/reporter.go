// Package reporter implements the reporter normalization stage: it replaces
// each citation's reporter_abbrev with its canonical ReporterRegistry form
// (spec.md §4.5), reading the citation extraction stage's prior outcome.
package reporter

import (
	"context"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/registry"
	"github.com/courtlens/enrichpipe/pkg/stages/citation"
)

// Stage implements pipeline.Stage for reporter normalization.
type Stage struct {
	Reporters *registry.ReporterRegistry
}

func New(reporters *registry.ReporterRegistry) *Stage {
	return &Stage{Reporters: reporters}
}

func (s *Stage) ID() docmodel.StageID { return docmodel.StageReporter }

func (s *Stage) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
	citationOutcome, ok := prior[docmodel.StageCitation]
	if !ok || citationOutcome.Status != docmodel.StatusOK {
		return pipeline.StageResult{
			Status: docmodel.StatusSkipped,
			Reason: "no citation extraction output to normalize",
		}, nil
	}

	citations, ok := citationOutcome.Payload["citations"].([]citation.Citation)
	if !ok || len(citations) == 0 {
		return pipeline.StageResult{
			Status: docmodel.StatusSkipped,
			Reason: "no citations to normalize",
		}, nil
	}

	normalizedSeen := make(map[string]bool)
	out := make([]citation.Citation, len(citations))
	unknownCount := 0

	for i, c := range citations {
		rep, found := s.Reporters.Resolve(c.ReporterAbbrev)
		if !found {
			c.Normalized = false
			out[i] = c
			unknownCount++
			continue
		}
		c.NormalizedReporter = rep.CanonicalName
		c.Normalized = true
		normalizedSeen[rep.CanonicalName] = true
		out[i] = c
	}

	return pipeline.StageResult{
		Status: docmodel.StatusOK,
		Payload: map[string]any{
			"citations":                 out,
			"unique_normalized_count":   len(normalizedSeen),
			"unrecognized_abbrev_count": unknownCount,
		},
	}, nil
}
