// Package court implements the court resolution stage: it resolves a
// record's jurisdiction_id by consulting metadata, an embedded URL, the
// case number, and finally a content scan, in the priority order spec.md
// §4.3 defines. It never falls back to a default jurisdiction.
package court

import (
	"context"
	"regexp"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/registry"
)

// ContentScanWindow is the number of opening characters of content consulted
// by step 5 (spec.md §4.3).
const ContentScanWindow = 2000

// courtURLPattern matches a trailing ".../courts/<id>/" path segment.
var courtURLPattern = regexp.MustCompile(`(?i)/courts/([a-z0-9_-]+)/?`)

// Stage implements pipeline.Stage for court resolution.
type Stage struct {
	Courts *registry.CourtRegistry
}

// New builds the court resolution stage against the given registry.
func New(courts *registry.CourtRegistry) *Stage {
	return &Stage{Courts: courts}
}

func (s *Stage) ID() docmodel.StageID { return docmodel.StageCourt }

func (s *Stage) Run(ctx context.Context, rec *docmodel.ClassifiedRecord, prior pipeline.Prior) (pipeline.StageResult, error) {
	var attempted []string

	if id, ok := s.byCourtID(rec); ok {
		return ok1(id, "metadata.court_id"), nil
	}
	attempted = append(attempted, "metadata.court_id")

	if id, ok := s.byCourtName(rec); ok {
		return ok1(id, "metadata.court"), nil
	}
	attempted = append(attempted, "metadata.court")

	if id, ok := s.byURL(rec); ok {
		return ok1(id, "url"), nil
	}
	attempted = append(attempted, "url")

	prefixID, prefixOK := s.byCaseNumberPrefix(rec)
	attempted = append(attempted, "case_number_prefix")

	contentID, contentOK := s.byContentScan(rec)
	attempted = append(attempted, "content_scan")

	switch {
	case prefixOK && contentOK && prefixID != contentID:
		return pipeline.StageResult{
			Status: docmodel.StatusOK,
			Payload: map[string]any{
				"jurisdiction_id": prefixID,
				"source":          "case_number_prefix",
				"conflict": map[string]any{
					"case_number_prefix": prefixID,
					"content_scan":       contentID,
				},
			},
		}, nil
	case prefixOK:
		return ok1(prefixID, "case_number_prefix"), nil
	case contentOK:
		return ok1(contentID, "content_scan"), nil
	}

	return pipeline.StageResult{
		Status: docmodel.StatusFailed,
		Reason: "no court signal found",
		Payload: map[string]any{
			"attempted": attempted,
		},
	}, nil
}

func ok1(jurisdictionID, source string) pipeline.StageResult {
	return pipeline.StageResult{
		Status: docmodel.StatusOK,
		Payload: map[string]any{
			"jurisdiction_id": jurisdictionID,
			"source":          source,
		},
	}
}

func (s *Stage) byCourtID(rec *docmodel.ClassifiedRecord) (string, bool) {
	raw, ok := rec.Metadata["court_id"]
	if !ok {
		return "", false
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", false
	}
	c, ok := s.Courts.ByID(id)
	if !ok {
		return "", false
	}
	return c.JurisdictionID, true
}

func (s *Stage) byCourtName(rec *docmodel.ClassifiedRecord) (string, bool) {
	raw, ok := rec.Metadata["court"]
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return "", false
	}
	c, ok := s.Courts.ByNameOrAlias(name)
	if !ok {
		return "", false
	}
	return c.JurisdictionID, true
}

func (s *Stage) byURL(rec *docmodel.ClassifiedRecord) (string, bool) {
	for _, key := range []string{"court_url", "url", "absolute_url"} {
		raw, ok := rec.Metadata[key]
		if !ok {
			continue
		}
		u, ok := raw.(string)
		if !ok {
			continue
		}
		m := courtURLPattern.FindStringSubmatch(u)
		if m == nil {
			continue
		}
		if c, ok := s.Courts.ByID(m[1]); ok {
			return c.JurisdictionID, true
		}
	}
	return "", false
}

func (s *Stage) byCaseNumberPrefix(rec *docmodel.ClassifiedRecord) (string, bool) {
	if rec.CaseNumber == "" {
		return "", false
	}
	c, ok := s.Courts.ByCaseNumberPrefix(rec.CaseNumber)
	if !ok {
		return "", false
	}
	return c.JurisdictionID, true
}

func (s *Stage) byContentScan(rec *docmodel.ClassifiedRecord) (string, bool) {
	if rec.Content == "" {
		return "", false
	}
	c, ok := s.Courts.ScanContent(rec.Content, ContentScanWindow)
	if !ok {
		return "", false
	}
	return c.JurisdictionID, true
}
