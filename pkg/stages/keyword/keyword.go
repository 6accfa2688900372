// Package keyword implements the keyword extraction stage: a closed
// vocabulary match against content, explicitly labeled as matching rather
// than inference (spec.md §4.8).
package keyword

import (
	"context"
	"regexp"
	"strings"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
)

// Vocabulary is the closed set of legal phrases matched against content.
// Extending it is a data change, not a code change.
var Vocabulary = []string{
	"summary judgment",
	"motion to dismiss",
	"claim construction",
	"preliminary injunction",
	"temporary restraining order",
	"motion for reconsideration",
	"class certification",
	"venue transfer",
	"judgment as a matter of law",
	"motion in limine",
	"discovery sanctions",
	"default judgment",
}

var vocabularyPatterns = buildPatterns(Vocabulary)

type phrasePattern struct {
	phrase  string
	pattern *regexp.Regexp
}

func buildPatterns(vocab []string) []phrasePattern {
	out := make([]phrasePattern, len(vocab))
	for i, phrase := range vocab {
		out[i] = phrasePattern{
			phrase:  phrase,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
		}
	}
	return out
}

// Stage implements pipeline.Stage for keyword extraction.
type Stage struct{}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() docmodel.StageID { return docmodel.StageKeyword }

func (s *Stage) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
	if strings.TrimSpace(rec.Content) == "" {
		return pipeline.StageResult{
			Status: docmodel.StatusSkipped,
			Reason: "no content to match against",
		}, nil
	}

	var matches []string
	for _, p := range vocabularyPatterns {
		if p.pattern.MatchString(rec.Content) {
			matches = append(matches, p.phrase)
		}
	}

	if len(matches) == 0 {
		return pipeline.StageResult{
			Status: docmodel.StatusSkipped,
			Reason: "no vocabulary phrases matched",
		}, nil
	}

	return pipeline.StageResult{
		Status: docmodel.StatusOK,
		Payload: map[string]any{
			"matches": matches,
			"method":  "keyword_match",
		},
	}, nil
}
