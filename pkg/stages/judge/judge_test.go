package judge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlens/enrichpipe/pkg/docmodel"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/registry"
)

func testJudges() *registry.JudgeInitialsMap {
	return registry.NewJudgeInitialsMap([]registry.JudgeInitialsEntry{
		{Initials: "RG", JurisdictionID: "txed", FullName: "Rodney Gilstrap"},
	})
}

func withCourt(jurisdictionID string) pipeline.Prior {
	if jurisdictionID == "" {
		return pipeline.Prior{}
	}
	return pipeline.Prior{
		docmodel.StageCourt: docmodel.StageOutcome{
			Stage:  docmodel.StageCourt,
			Status: docmodel.StatusOK,
			Payload: map[string]any{"jurisdiction_id": jurisdictionID},
		},
	}
}

func planWith(category docmodel.Category, mode docmodel.JudgeMode) docmodel.ClassifiedRecord {
	return docmodel.ClassifiedRecord{
		CategoryValue: category,
		StagePlan: []docmodel.PlannedStage{
			{Stage: docmodel.StageJudge, Applicable: true, JudgeMode: mode},
		},
	}
}

func TestJudge_MetadataModeDirectName(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryFullOpinion, docmodel.JudgeModeContentFirst)
	rec.Metadata = map[string]any{"judge": "Lucy A. Koh"}
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusOK, res.Status)
	assert.Equal(t, "Lucy A. Koh", res.Payload["name"])
	assert.Equal(t, "metadata", res.Payload["source"])
}

func TestJudge_MetadataFirstForMetadataDocument(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryMetadataDocument, docmodel.JudgeModeMetadataFirst)
	rec.Metadata = map[string]any{"judge": "Alan D. Albright"}
	rec.Content = "Judge Someone Else presiding over this matter today."
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, "Alan D. Albright", res.Payload["name"], "metadata must be tried before content")
}

func TestJudge_ContentFirstForFullOpinion(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryFullOpinion, docmodel.JudgeModeContentFirst)
	rec.Metadata = map[string]any{"judge": "Metadata Judge"}
	rec.Content = "Before Judge Jane Q. Public, the parties submit as follows."
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, "content", res.Payload["source"], "content must be tried before metadata")
	assert.Contains(t, res.Payload["name"], "Jane Q. Public")
}

func TestJudge_IntegerMetadataTreatedAsAbsent(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryFullOpinion, docmodel.JudgeModeContentFirst)
	rec.Metadata = map[string]any{"judge": 404}
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusFailed, res.Status)
}

func TestJudge_InitialsModeRequiresKnownJurisdiction(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryMetadataDocument, docmodel.JudgeModeMetadataFirst)
	rec.Metadata = map[string]any{"judge_initials": "RG"}

	// No jurisdiction resolved yet: initials must not resolve.
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusFailed, res.Status)

	// Jurisdiction resolved: initials now resolve.
	res, err = s.Run(context.Background(), &rec, withCourt("txed"))
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusOK, res.Status)
	assert.Equal(t, "Rodney Gilstrap", res.Payload["name"])
	assert.Equal(t, "initials", res.Payload["source"])
}

func TestJudge_URLMetadataExtractsTrailingSegment(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryFullOpinion, docmodel.JudgeModeContentFirst)
	rec.Metadata = map[string]any{"assigned_to": "https://www.courtlistener.com/person/1234/rodney-gilstrap/"}
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusOK, res.Status)
	assert.Equal(t, "Rodney Gilstrap", res.Payload["name"])
}

func TestJudge_NoSignalFails(t *testing.T) {
	s := New(testJudges())
	rec := planWith(docmodel.CategoryFullOpinion, docmodel.JudgeModeContentFirst)
	res, err := s.Run(context.Background(), &rec, withCourt(""))
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusFailed, res.Status)
	assert.Equal(t, "no judge signal", res.Reason)
}
