package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/scoring"
)

// Analyst is the second pipeline stage. It reads the researcher's findings,
// extracts the raw merit signals from the case, and derives the deterministic
// merit breakdown locally. The model supplies qualitative judgement; the
// arithmetic never leaves this process.
type Analyst struct {
	completer inference.Completer
}

func NewAnalyst(completer inference.Completer) *Analyst {
	return &Analyst{completer: completer}
}

func (a *Analyst) Role() pipeline.Role { return pipeline.RoleAnalyst }

// analystWire is the decode target for the analyst model reply. The seven
// merit signals are pointers so an absent signal is distinguishable from a
// genuine zero; every signal must be present for the score to be computed.
type analystWire struct {
	MeritSignals struct {
		EvidenceQuantity     *float64 `json:"evidenceQuantity"`
		EvidenceRelevance    *float64 `json:"evidenceRelevance"`
		TimelineCompleteness *float64 `json:"timelineCompleteness"`
		InternalConsistency  *float64 `json:"internalConsistency"`
		PrecedentAlignment   *float64 `json:"precedentAlignment"`
		RemedyStrength       *float64 `json:"remedyStrength"`
		Penalty              *float64 `json:"penalty"`
	} `json:"meritSignals"`
	SuccessProbability string                `json:"successProbability"`
	Confidence         string                `json:"confidence"`
	Strengths          []pipeline.Strength   `json:"strengths"`
	Weaknesses         []pipeline.Weakness   `json:"weaknesses"`
	EvidenceGaps       []string              `json:"evidenceGaps"`
	RiskFactors        []pipeline.RiskFactor `json:"riskFactors"`
	KeyIssues          []string              `json:"keyIssues"`
	Summary            string                `json:"summary"`
}

func (a *Analyst) Execute(ctx context.Context, cc pipeline.CaseContext, prior []pipeline.StageResult) (pipeline.StagePayload, error) {
	research, err := findPrior(prior, pipeline.RoleResearcher)
	if err != nil {
		return nil, err
	}

	systemPrompt := fmt.Sprintf(`You are a case analyst for %s, %s law. Assess the strengths, weaknesses, evidence gaps, and risks of this case against the research findings.

Score each merit signal on the scale given. Score a signal 0 if it cannot be assessed from the available information; never omit a signal.
- evidenceQuantity: 0-20, how much supporting evidence exists
- evidenceRelevance: 0-20, how directly the evidence supports the claims
- timelineCompleteness: 0-15, how complete and coherent the timeline of events is
- internalConsistency: 0-15, how free of contradictions the account and evidence are
- precedentAlignment: 0-20, how closely the facts track favourable precedent
- remedyStrength: 0-10, how clearly the law provides the remedy sought
- penalty: 0 or negative, deductions for missed deadlines, wrong venue, or limitation-period risk

Respond with a JSON object of this exact shape:
{
  "meritSignals": {"evidenceQuantity": 0, "evidenceRelevance": 0, "timelineCompleteness": 0, "internalConsistency": 0, "precedentAlignment": 0, "remedyStrength": 0, "penalty": 0},
  "successProbability": "low|moderate|high",
  "confidence": "low|medium|high",
  "strengths": [{"factor": "...", "impact": "...", "evidence": "..."}],
  "weaknesses": [{"factor": "...", "impact": "...", "mitigation": "..."}],
  "evidenceGaps": ["..."],
  "riskFactors": [{"risk": "...", "likelihood": "...", "impact": "..."}],
  "keyIssues": ["..."],
  "summary": "concise analysis summary"
}`, cc.Jurisdiction, cc.CaseType)

	userPrompt := caseContextBlock(cc) + priorSection("Research Findings", research)

	raw, err := a.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var wire analystWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode analysis output: %w", err)
	}

	if err := requireFields([]requiredField{
		{"successProbability", wire.SuccessProbability},
		{"confidence", wire.Confidence},
		{"summary", wire.Summary},
	}); err != nil {
		return nil, err
	}

	signals, err := resolveSignals(wire)
	if err != nil {
		return nil, err
	}

	return pipeline.AnalystPayload{
		Breakdown:          scoring.ComputeMeritScore(signals),
		SuccessProbability: wire.SuccessProbability,
		Confidence:         wire.Confidence,
		Strengths:          wire.Strengths,
		Weaknesses:         wire.Weaknesses,
		EvidenceGaps:       wire.EvidenceGaps,
		RiskFactors:        wire.RiskFactors,
		KeyIssues:          wire.KeyIssues,
		Summary:            wire.Summary,
	}, nil
}

// resolveSignals rejects any absent merit signal so the breakdown is never
// computed over silently defaulted inputs.
func resolveSignals(wire analystWire) (scoring.Signals, error) {
	ms := wire.MeritSignals
	ptrs := []struct {
		name  string
		value *float64
	}{
		{"meritSignals.evidenceQuantity", ms.EvidenceQuantity},
		{"meritSignals.evidenceRelevance", ms.EvidenceRelevance},
		{"meritSignals.timelineCompleteness", ms.TimelineCompleteness},
		{"meritSignals.internalConsistency", ms.InternalConsistency},
		{"meritSignals.precedentAlignment", ms.PrecedentAlignment},
		{"meritSignals.remedyStrength", ms.RemedyStrength},
		{"meritSignals.penalty", ms.Penalty},
	}
	for _, p := range ptrs {
		if p.value == nil {
			return scoring.Signals{}, fmt.Errorf("model output missing required field %q", p.name)
		}
	}

	return scoring.Signals{
		EvidenceQuantity:     *ms.EvidenceQuantity,
		EvidenceRelevance:    *ms.EvidenceRelevance,
		TimelineCompleteness: *ms.TimelineCompleteness,
		InternalConsistency:  *ms.InternalConsistency,
		PrecedentAlignment:   *ms.PrecedentAlignment,
		RemedyStrength:       *ms.RemedyStrength,
		Penalty:              *ms.Penalty,
	}, nil
}
