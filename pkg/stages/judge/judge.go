// Package judge implements the judge resolution stage: it identifies the
// assigned judge via metadata, initials, or content, in the mode order the
// record's category selects (spec.md §4.6).
package judge

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/registry"
)

// ContentScanWindow bounds the content-mode regex scan to the top of the
// document (spec.md §4.6 "a bounded window at the top of content").
const ContentScanWindow = 3000

// metadataFields is the ordered list of metadata keys consulted by metadata
// mode (spec.md §4.6).
var metadataFields = []string{"assigned_to", "assigned_to_str", "judge", "judge_name"}

// initialsFields holds the metadata keys that may carry a judge-initials
// code rather than a full name.
var initialsFields = []string{"judge_initials", "assigned_to_initials"}

// knownURLHosts are hosts whose trailing path segment is a judge slug.
var knownURLHosts = map[string]bool{
	"www.courtlistener.com": true,
	"courtlistener.com":     true,
}

// contentJudgePattern matches "Before Judge <Name>" / "Judge <Name> presiding"
// style lead-ins at the top of an opinion or order.
var contentJudgePattern = regexp.MustCompile(
	`(?:Before\s+(?:the\s+Honorable|Judge)|Judge)\s+([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){0,3})`,
)

// Stage implements pipeline.Stage for judge resolution.
type Stage struct {
	Judges *registry.JudgeInitialsMap
}

func New(judges *registry.JudgeInitialsMap) *Stage {
	return &Stage{Judges: judges}
}

func (s *Stage) ID() docmodel.StageID { return docmodel.StageJudge }

func (s *Stage) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
	mode := docmodel.JudgeModeContentFirst
	for _, p := range rec.StagePlan {
		if p.Stage == docmodel.StageJudge {
			mode = p.JudgeMode
		}
	}

	jurisdictionID := jurisdictionFromPrior(prior)

	var order []func() (string, string, string, bool)
	metadataFirst := func() (string, string, string, bool) { return s.metadataMode(rec) }
	initialsFirst := func() (string, string, string, bool) { return s.initialsMode(rec, jurisdictionID) }
	contentFirst := func() (string, string, string, bool) { return s.contentMode(rec) }

	if mode == docmodel.JudgeModeMetadataFirst {
		order = []func() (string, string, string, bool){metadataFirst, initialsFirst, contentFirst}
	} else {
		order = []func() (string, string, string, bool){contentFirst, metadataFirst, initialsFirst}
	}

	for _, try := range order {
		name, source, confidence, ok := try()
		if ok {
			return pipeline.StageResult{
				Status: docmodel.StatusOK,
				Payload: map[string]any{
					"name":       name,
					"source":     source,
					"confidence": confidence,
				},
			}, nil
		}
	}

	return pipeline.StageResult{
		Status: docmodel.StatusFailed,
		Reason: "no judge signal",
	}, nil
}

func jurisdictionFromPrior(prior pipeline.Prior) string {
	outcome, ok := prior[docmodel.StageCourt]
	if !ok || outcome.Status != docmodel.StatusOK {
		return ""
	}
	id, _ := outcome.Payload["jurisdiction_id"].(string)
	return id
}

// metadataMode looks up metadataFields in order. An integer value is an
// upstream quirk (spec.md §4.6) and is treated as if the field were absent.
func (s *Stage) metadataMode(rec *docmodel.ClassifiedRecord) (name, source, confidence string, ok bool) {
	for _, field := range metadataFields {
		raw, present := rec.Metadata[field]
		if !present {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v == "" {
				continue
			}
			if resolved, isURL := resolveJudgeURL(v); isURL {
				return resolved, "metadata", "high", true
			}
			return v, "metadata", "high", true
		case int, int64, float64:
			continue
		default:
			continue
		}
	}
	return "", "", "", false
}

func resolveJudgeURL(v string) (string, bool) {
	u, err := url.Parse(v)
	if err != nil || u.Host == "" || !knownURLHosts[u.Host] {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return "", false
	}
	slug := segments[len(segments)-1]
	return titleCaseSlug(slug), true
}

func titleCaseSlug(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// initialsMode requires a known jurisdiction first (spec.md §4.6).
func (s *Stage) initialsMode(rec *docmodel.ClassifiedRecord, jurisdictionID string) (name, source, confidence string, ok bool) {
	if jurisdictionID == "" || s.Judges == nil {
		return "", "", "", false
	}
	for _, field := range initialsFields {
		raw, present := rec.Metadata[field]
		if !present {
			continue
		}
		initials, isStr := raw.(string)
		if !isStr || !registry.LooksLikeInitials(initials) {
			continue
		}
		if full, found := s.Judges.Resolve(initials, jurisdictionID); found {
			return full, "initials", "medium", true
		}
	}
	return "", "", "", false
}

func (s *Stage) contentMode(rec *docmodel.ClassifiedRecord) (name, source, confidence string, ok bool) {
	content := rec.Content
	if len(content) > ContentScanWindow {
		content = content[:ContentScanWindow]
	}
	m := contentJudgePattern.FindStringSubmatch(content)
	if m == nil {
		return "", "", "", false
	}
	return strings.TrimSpace(m[1]), "content", "low", true
}
