package pipeline

import (
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/scoring"
)

// Law is one statute or regulation surfaced by the researcher.
type Law struct {
	Name        string   `json:"name"`
	Sections    []string `json:"sections"`
	Application string   `json:"application"`
}

// Precedent is one prior decision surfaced by the researcher.
type Precedent struct {
	Citation  string `json:"citation"`
	Court     string `json:"court"`
	Outcome   string `json:"outcome"`
	Relevance string `json:"relevance"`
}

// ResearchPayload is the researcher stage output: jurisdiction-specific
// statutes and precedents relevant to the case type.
type ResearchPayload struct {
	RelevantLaws []Law       `json:"relevantLaws"`
	Precedents   []Precedent `json:"precedents"`
	KeyIssues    []string    `json:"keyIssues"`
	Summary      string      `json:"summary"`
}

func (ResearchPayload) StageRole() Role { return RoleResearcher }

// Strength is one factor working in the case's favour.
type Strength struct {
	Factor   string `json:"factor"`
	Impact   string `json:"impact"`
	Evidence string `json:"evidence,omitempty"`
}

// Weakness is one factor working against the case.
type Weakness struct {
	Factor     string `json:"factor"`
	Impact     string `json:"impact"`
	Mitigation string `json:"mitigation,omitempty"`
}

// RiskFactor is a downside scenario with its likelihood and impact.
type RiskFactor struct {
	Risk       string `json:"risk"`
	Likelihood string `json:"likelihood"`
	Impact     string `json:"impact"`
}

// AnalystPayload is the analyst stage output: the scored merit breakdown and
// the qualitative assessment it was derived from.
type AnalystPayload struct {
	Breakdown          scoring.MeritBreakdown `json:"meritBreakdown"`
	SuccessProbability string                 `json:"successProbability"`
	Confidence         string                 `json:"confidence"`
	Strengths          []Strength             `json:"strengths"`
	Weaknesses         []Weakness             `json:"weaknesses"`
	EvidenceGaps       []string               `json:"evidenceGaps"`
	RiskFactors        []RiskFactor           `json:"riskFactors"`
	KeyIssues          []string               `json:"keyIssues"`
	Summary            string                 `json:"summary"`
}

func (AnalystPayload) StageRole() Role { return RoleAnalyst }

// ConfidenceLevel reports the analyst's categorical confidence for the
// stage result metadata.
func (p AnalystPayload) ConfidenceLevel() string { return p.Confidence }

// Strategy is the recommended primary approach.
type Strategy struct {
	Approach      string `json:"approach"`
	Rationale     string `json:"rationale"`
	Timeline      string `json:"timeline"`
	EstimatedCost string `json:"estimatedCost"`
}

// ActionStep is one ordered step of the action plan.
type ActionStep struct {
	Step      int    `json:"step"`
	Action    string `json:"action"`
	Deadline  string `json:"deadline"`
	Priority  string `json:"priority"`
	Resources string `json:"resources,omitempty"`
}

// NegotiationStrategy describes the settlement posture.
type NegotiationStrategy struct {
	LeveragePoints   []string `json:"leveragePoints"`
	SettlementTarget string   `json:"settlementTarget"`
	WalkAwayPoint    string   `json:"walkAwayPoint"`
}

// StrategistPayload is the strategist stage output: an actionable plan built
// on the analyst's breakdown.
type StrategistPayload struct {
	PrimaryStrategy     Strategy            `json:"primaryStrategy"`
	ActionPlan          []ActionStep        `json:"actionPlan"`
	NegotiationStrategy NegotiationStrategy `json:"negotiationStrategy"`
	NextSteps           []ActionStep        `json:"nextSteps"`
	Summary             string              `json:"summary"`
}

func (StrategistPayload) StageRole() Role { return RoleStrategist }

// RequiredDocument is one form or document that must be prepared.
type RequiredDocument struct {
	Name        string `json:"name"`
	Form        string `json:"form,omitempty"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
	Description string `json:"description,omitempty"`
}

// KeyArgument is a legal argument with its supporting basis and the response
// the other side is expected to raise.
type KeyArgument struct {
	Argument           string `json:"argument"`
	Support            string `json:"support"`
	AnticipatedCounter string `json:"anticipatedCounter"`
}

// FilingInstructions tells the user where and how to file.
type FilingInstructions struct {
	Where  string `json:"where"`
	How    string `json:"how"`
	Fees   string `json:"fees"`
	Copies string `json:"copies"`
}

// DrafterPayload is the drafter stage output: filing guidance that cites the
// laws the researcher found, the weaknesses the analyst found, and the plan
// the strategist set.
type DrafterPayload struct {
	RequiredDocuments  []RequiredDocument `json:"requiredDocuments"`
	KeyArguments       []KeyArgument      `json:"keyArguments"`
	FilingInstructions FilingInstructions `json:"filingInstructions"`
	Summary            string             `json:"summary"`
}

func (DrafterPayload) StageRole() Role { return RoleDrafter }
