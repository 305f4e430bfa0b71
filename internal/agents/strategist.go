package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// maxNextSteps bounds the immediate next-steps list derived from the full
// action plan.
const maxNextSteps = 5

// Strategist is the third pipeline stage. It turns the research and analysis
// into a primary strategy, an ordered action plan, and a negotiation posture.
type Strategist struct {
	completer inference.Completer
}

func NewStrategist(completer inference.Completer) *Strategist {
	return &Strategist{completer: completer}
}

func (s *Strategist) Role() pipeline.Role { return pipeline.RoleStrategist }

func (s *Strategist) Execute(ctx context.Context, cc pipeline.CaseContext, prior []pipeline.StageResult) (pipeline.StagePayload, error) {
	research, err := findPrior(prior, pipeline.RoleResearcher)
	if err != nil {
		return nil, err
	}
	analysis, err := findPrior(prior, pipeline.RoleAnalyst)
	if err != nil {
		return nil, err
	}

	systemPrompt := fmt.Sprintf(`You are a legal strategist for %s, %s law. Build a practical strategy for a self-represented litigant from the research findings and the case analysis. Be concrete: name venues, forms, deadlines, and realistic costs for this jurisdiction.

Respond with a JSON object of this exact shape:
{
  "primaryStrategy": {"approach": "...", "rationale": "...", "timeline": "...", "estimatedCost": "..."},
  "actionPlan": [{"step": 1, "action": "...", "deadline": "...", "priority": "high|medium|low", "resources": "..."}],
  "negotiationStrategy": {"leveragePoints": ["..."], "settlementTarget": "...", "walkAwayPoint": "..."},
  "summary": "concise strategy summary"
}`, cc.Jurisdiction, cc.CaseType)

	userPrompt := caseContextBlock(cc) +
		priorSection("Research Findings", research) +
		priorSection("Case Analysis", analysis)

	raw, err := s.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var payload pipeline.StrategistPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode strategy output: %w", err)
	}

	if err := requireFields([]requiredField{
		{"primaryStrategy.approach", payload.PrimaryStrategy.Approach},
		{"summary", payload.Summary},
	}); err != nil {
		return nil, err
	}

	// The immediate next steps are always the head of the action plan, not a
	// separate model output.
	n := len(payload.ActionPlan)
	if n > maxNextSteps {
		n = maxNextSteps
	}
	payload.NextSteps = append([]pipeline.ActionStep(nil), payload.ActionPlan[:n]...)

	return payload, nil
}
