package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/scoring"
)

// FinalAnalysis is the single coherent report merged from all four stage
// payloads. List fields preserve the ordering declared by the stage that
// produced them.
type FinalAnalysis struct {
	MeritScore         float64                `json:"meritScore"`
	MeritBand          string                 `json:"meritBand"`
	MeritBreakdown     scoring.MeritBreakdown `json:"meritBreakdown"`
	SuccessProbability string                 `json:"successProbability"`
	Confidence         string                 `json:"confidence"`
	Summary            string                 `json:"summary"`

	KeyIssues    []string     `json:"keyIssues"`
	Strengths    []Strength   `json:"strengths"`
	Weaknesses   []Weakness   `json:"weaknesses"`
	EvidenceGaps []string     `json:"evidenceGaps"`
	RiskFactors  []RiskFactor `json:"riskFactors"`

	RelevantLaws []Law       `json:"relevantLaws"`
	Precedents   []Precedent `json:"precedents"`

	PrimaryStrategy     Strategy            `json:"primaryStrategy"`
	ActionPlan          []ActionStep        `json:"actionPlan"`
	NegotiationStrategy NegotiationStrategy `json:"negotiationStrategy"`
	NextSteps           []ActionStep        `json:"nextSteps"`

	RequiredDocuments  []RequiredDocument `json:"requiredDocuments"`
	KeyArguments       []KeyArgument      `json:"keyArguments"`
	FilingInstructions FilingInstructions `json:"filingInstructions"`
}

// Assemble merges the four completed stage results into one FinalAnalysis.
// It is a pure, total function over complete input: the same stage payloads
// always produce an identical report, and any absent stage or missing
// required field is an AssemblyError rather than a defaulted value.
func Assemble(cc CaseContext, results []StageResult) (*FinalAnalysis, error) {
	if len(results) != len(StageOrder) {
		return nil, &AssemblyError{Err: fmt.Errorf("expected %d stage results, got %d", len(StageOrder), len(results))}
	}
	for i, res := range results {
		if res.Role != StageOrder[i] {
			return nil, &AssemblyError{Err: fmt.Errorf("stage result %d has role %s, want %s", i, res.Role, StageOrder[i])}
		}
	}

	research, ok := results[0].Payload.(ResearchPayload)
	if !ok {
		return nil, &AssemblyError{Field: "researcher payload", Err: errors.New("wrong payload type")}
	}
	analysis, ok := results[1].Payload.(AnalystPayload)
	if !ok {
		return nil, &AssemblyError{Field: "analyst payload", Err: errors.New("wrong payload type")}
	}
	strategy, ok := results[2].Payload.(StrategistPayload)
	if !ok {
		return nil, &AssemblyError{Field: "strategist payload", Err: errors.New("wrong payload type")}
	}
	drafting, ok := results[3].Payload.(DrafterPayload)
	if !ok {
		return nil, &AssemblyError{Field: "drafter payload", Err: errors.New("wrong payload type")}
	}

	required := []struct {
		field string
		value string
	}{
		{"research summary", research.Summary},
		{"analysis summary", analysis.Summary},
		{"strategy summary", strategy.Summary},
		{"drafting summary", drafting.Summary},
		{"analyst confidence", analysis.Confidence},
		{"success probability", analysis.SuccessProbability},
		{"primary strategy approach", strategy.PrimaryStrategy.Approach},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &AssemblyError{Field: r.field, Err: errors.New("missing required field")}
		}
	}

	return &FinalAnalysis{
		MeritScore:         analysis.Breakdown.MeritScore,
		MeritBand:          scoring.Band(analysis.Breakdown.MeritScore),
		MeritBreakdown:     analysis.Breakdown,
		SuccessProbability: analysis.SuccessProbability,
		Confidence:         analysis.Confidence,
		Summary:            joinSummaries(research.Summary, analysis.Summary, strategy.Summary, drafting.Summary),

		KeyIssues:    append([]string(nil), analysis.KeyIssues...),
		Strengths:    append([]Strength(nil), analysis.Strengths...),
		Weaknesses:   append([]Weakness(nil), analysis.Weaknesses...),
		EvidenceGaps: append([]string(nil), analysis.EvidenceGaps...),
		RiskFactors:  append([]RiskFactor(nil), analysis.RiskFactors...),

		RelevantLaws: append([]Law(nil), research.RelevantLaws...),
		Precedents:   append([]Precedent(nil), research.Precedents...),

		PrimaryStrategy:     strategy.PrimaryStrategy,
		ActionPlan:          append([]ActionStep(nil), strategy.ActionPlan...),
		NegotiationStrategy: strategy.NegotiationStrategy,
		NextSteps:           append([]ActionStep(nil), strategy.NextSteps...),

		RequiredDocuments:  append([]RequiredDocument(nil), drafting.RequiredDocuments...),
		KeyArguments:       append([]KeyArgument(nil), drafting.KeyArguments...),
		FilingInstructions: drafting.FilingInstructions,
	}, nil
}

// joinSummaries concatenates the per-stage summaries in stage order,
// skipping empties.
func joinSummaries(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
