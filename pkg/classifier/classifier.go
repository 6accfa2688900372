// Package classifier implements the DocumentClassifier: it decides a
// RawRecord's Category and the ordered stage plan that follows from it.
package classifier

import "github.com/courtlens/enrichpipe/pkg/docmodel"

// applicability encodes one cell of the spec.md §4.1 stage-plan table: yes
// (applicable), skipped (in the plan but not applicable), or not-in-plan at
// all (the stage never appears in StagePlan and never gets a StageOutcome).
type applicability int

const (
	notInPlan applicability = iota
	applicableStage
	skippedStage
)

type cell struct {
	applicability applicability
	judgeMode     docmodel.JudgeMode // only set on the judge resolution row
}

// stageTable is the spec.md §4.1 table, transcribed column by column.
var stageTable = map[docmodel.Category]map[docmodel.StageID]cell{
	docmodel.CategoryFullOpinion: {
		docmodel.StageCourt:     {applicability: applicableStage},
		docmodel.StageCitation:  {applicability: applicableStage},
		docmodel.StageReporter:  {applicability: applicableStage},
		docmodel.StageJudge:     {applicability: applicableStage, judgeMode: docmodel.JudgeModeContentFirst},
		docmodel.StageStructure: {applicability: applicableStage},
		docmodel.StageKeyword:   {applicability: applicableStage},
	},
	docmodel.CategoryMetadataDocument: {
		docmodel.StageCourt:     {applicability: applicableStage},
		docmodel.StageCitation:  {applicability: skippedStage},
		docmodel.StageReporter:  {applicability: skippedStage},
		docmodel.StageJudge:     {applicability: applicableStage, judgeMode: docmodel.JudgeModeMetadataFirst},
		docmodel.StageStructure: {applicability: skippedStage},
		docmodel.StageKeyword:   {applicability: applicableStage},
	},
	docmodel.CategoryOrder: {
		docmodel.StageCourt:     {applicability: applicableStage},
		docmodel.StageCitation:  {applicability: applicableStage},
		docmodel.StageReporter:  {applicability: applicableStage},
		docmodel.StageJudge:     {applicability: applicableStage, judgeMode: docmodel.JudgeModeContentFirst},
		docmodel.StageStructure: {applicability: applicableStage},
		docmodel.StageKeyword:   {applicability: applicableStage},
	},
	docmodel.CategoryUnknown: {
		docmodel.StageCourt:     {applicability: applicableStage},
		docmodel.StageCitation:  {applicability: applicableStage},
		docmodel.StageReporter:  {applicability: applicableStage},
		docmodel.StageJudge:     {applicability: applicableStage, judgeMode: docmodel.JudgeModeContentFirst},
		docmodel.StageStructure: {applicability: notInPlan},
		docmodel.StageKeyword:   {applicability: applicableStage},
	},
}

// stageOrder is the fixed order stages run in within any plan (spec.md §4.2
// "stages run in the order listed in the plan").
var stageOrder = []docmodel.StageID{
	docmodel.StageCourt,
	docmodel.StageCitation,
	docmodel.StageReporter,
	docmodel.StageJudge,
	docmodel.StageStructure,
	docmodel.StageKeyword,
}

// Classify determines the Category and stage plan for a raw record and
// returns a ClassifiedRecord. It never mutates r.
func Classify(r docmodel.RawRecord) docmodel.ClassifiedRecord {
	category := categorize(r)
	table := stageTable[category]

	var plan []docmodel.PlannedStage
	for _, stage := range stageOrder {
		c, ok := table[stage]
		if !ok || c.applicability == notInPlan {
			continue
		}
		plan = append(plan, docmodel.PlannedStage{
			Stage:      stage,
			Applicable: c.applicability == applicableStage,
			JudgeMode:  c.judgeMode,
		})
	}

	return docmodel.ClassifiedRecord{
		RawRecord:     r,
		CategoryValue: category,
		StagePlan:     plan,
	}
}

// categorize applies the category rules in precedence order (spec.md §4.1):
// first match wins.
func categorize(r docmodel.RawRecord) docmodel.Category {
	switch {
	case r.KindHint == "opinion" && len(r.Content) > 5000:
		return docmodel.CategoryFullOpinion
	case isMetadataKind(r.KindHint):
		return docmodel.CategoryMetadataDocument
	case r.KindHint == "order" && len(r.Content) > 1000:
		return docmodel.CategoryOrder
	default:
		return docmodel.CategoryUnknown
	}
}

func isMetadataKind(kindHint string) bool {
	switch kindHint {
	case "docket", "recap_docket", "civil_case":
		return true
	default:
		return false
	}
}

// SkippedReason returns the reason string to record for a stage that is in
// the plan but not applicable for category (spec.md §4.1: "skipped,
// reason=not applicable for category <c>").
func SkippedReason(category docmodel.Category) string {
	return "not applicable for category " + string(category)
}
