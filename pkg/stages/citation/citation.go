// Package citation implements the citation extraction stage: it finds legal
// citations in a record's content (spec.md §4.4). It is skipped entirely
// for metadata_document by the classifier's stage plan, so this package
// never has to special-case that category itself.
package citation

import (
	"context"
	"regexp"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
)

// SoftCap is the content length, in bytes, beyond which citation scanning
// truncates the document (spec.md §4.4 "configurable soft cap").
const SoftCap = 200_000

// Citation is one extracted legal citation before reporter normalization
// fills in NormalizedReporter.
type Citation struct {
	RawText            string `json:"raw_text"`
	ReporterAbbrev     string `json:"reporter_abbrev"`
	Volume             string `json:"volume"`
	Page               string `json:"page"`
	Year               string `json:"year,omitempty"`
	Parties            string `json:"parties,omitempty"`
	NormalizedReporter string `json:"normalized_reporter,omitempty"`
	Normalized         bool   `json:"normalized"`
	Count              int    `json:"count"`
}

// citationPattern matches the common "<volume> <reporter> <page>" shape,
// e.g. "123 F.3d 456" or "550 U.S. 1", with an optional trailing parenthetical
// year, and an optional leading "Party v. Party," caption.
var citationPattern = regexp.MustCompile(
	`(?:([A-Z][\w.&' -]+\s+v\.\s+[A-Z][\w.&' -]+),\s*)?(\d{1,4})\s+([A-Z][A-Za-z.]*\.?\s?\d?[a-z]{0,2})\s+(\d{1,5})(?:\s*\((\d{4})\))?`,
)

// Stage implements pipeline.Stage for citation extraction.
type Stage struct{}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() docmodel.StageID { return docmodel.StageCitation }

func (s *Stage) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
	content := rec.Content
	truncated := false
	if len(content) > SoftCap {
		content = content[:SoftCap]
		truncated = true
	}

	matches := citationPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return pipeline.StageResult{
			Status: docmodel.StatusSkipped,
			Reason: "no citations found",
		}, nil
	}

	order := make([]string, 0, len(matches))
	byRaw := make(map[string]*Citation, len(matches))

	for _, m := range matches {
		// Occurrences are merged on volume, reporter, page and year, so a
		// leading case caption on one of them does not split the count.
		raw := m[2] + " " + m[3] + " " + m[4] + " " + m[5]
		if c, seen := byRaw[raw]; seen {
			c.Count++
			continue
		}
		c := &Citation{
			RawText:        m[0],
			Parties:        m[1],
			Volume:         m[2],
			ReporterAbbrev: m[3],
			Page:           m[4],
			Year:           m[5],
			Count:          1,
		}
		byRaw[raw] = c
		order = append(order, raw)
	}

	citations := make([]Citation, 0, len(order))
	for _, raw := range order {
		citations = append(citations, *byRaw[raw])
	}

	payload := map[string]any{
		"citations": citations,
		"count":     len(citations),
	}
	if truncated {
		payload["truncated"] = true
	}

	return pipeline.StageResult{Status: docmodel.StatusOK, Payload: payload}, nil
}
