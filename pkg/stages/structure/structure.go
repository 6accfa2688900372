// Package structure implements the structure analysis stage: a shallow
// structural outline of a document's content — section headers, paragraph
// count, estimated opinion boundaries (spec.md §4.7).
package structure

import (
	"context"
	"regexp"
	"strings"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
)

// headingPattern matches short, capitalized, numbered-or-bare lines that read
// as section headers: "I. BACKGROUND", "A. Legal Standard", "CONCLUSION".
var headingPattern = regexp.MustCompile(`(?m)^\s*(?:[IVXLC]+\.|[A-Z]\.|\d+\.)?\s*[A-Z][A-Z ,.'&-]{3,60}\s*$`)

// boundaryPattern marks common opening/closing phrases of an opinion body,
// used to estimate where the substantive opinion begins and ends.
var boundaryPattern = regexp.MustCompile(`(?i)\b(IT IS SO ORDERED|IT IS HEREBY ORDERED|CONCLUSION|BACKGROUND|OPINION AND ORDER)\b`)

// paragraphPattern splits content into paragraphs on blank lines.
var paragraphPattern = regexp.MustCompile(`\n\s*\n`)

// Stage implements pipeline.Stage for structure analysis.
type Stage struct{}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() docmodel.StageID { return docmodel.StageStructure }

func (s *Stage) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
	if strings.TrimSpace(rec.Content) == "" {
		return pipeline.StageResult{
			Status: docmodel.StatusSkipped,
			Reason: "no content to analyze",
		}, nil
	}

	headings := headingPattern.FindAllString(rec.Content, -1)
	for i, h := range headings {
		headings[i] = strings.TrimSpace(h)
	}

	paragraphs := splitParagraphs(rec.Content)

	boundaries := boundaryPattern.FindAllString(rec.Content, -1)

	return pipeline.StageResult{
		Status: docmodel.StatusOK,
		Payload: map[string]any{
			"section_headers":   headings,
			"paragraph_count":   len(paragraphs),
			"estimated_boundaries": boundaries,
		},
	}, nil
}

func splitParagraphs(content string) []string {
	raw := paragraphPattern.Split(content, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
