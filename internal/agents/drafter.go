package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// Drafter is the fourth pipeline stage. It produces filing guidance grounded
// in everything the three earlier stages found.
type Drafter struct {
	completer inference.Completer
}

func NewDrafter(completer inference.Completer) *Drafter {
	return &Drafter{completer: completer}
}

func (d *Drafter) Role() pipeline.Role { return pipeline.RoleDrafter }

func (d *Drafter) Execute(ctx context.Context, cc pipeline.CaseContext, prior []pipeline.StageResult) (pipeline.StagePayload, error) {
	research, err := findPrior(prior, pipeline.RoleResearcher)
	if err != nil {
		return nil, err
	}
	analysis, err := findPrior(prior, pipeline.RoleAnalyst)
	if err != nil {
		return nil, err
	}
	strategy, err := findPrior(prior, pipeline.RoleStrategist)
	if err != nil {
		return nil, err
	}

	systemPrompt := fmt.Sprintf(`You are a legal document specialist for %s, %s law. List the documents the litigant must prepare, the key arguments to make, and exactly where and how to file. Cite the laws from the research, address the weaknesses from the analysis, and follow the chosen strategy.

Respond with a JSON object of this exact shape:
{
  "requiredDocuments": [{"name": "...", "form": "...", "deadline": "...", "priority": "high|medium|low", "description": "..."}],
  "keyArguments": [{"argument": "...", "support": "...", "anticipatedCounter": "..."}],
  "filingInstructions": {"where": "...", "how": "...", "fees": "...", "copies": "..."},
  "summary": "concise drafting summary"
}`, cc.Jurisdiction, cc.CaseType)

	userPrompt := caseContextBlock(cc) +
		priorSection("Research Findings", research) +
		priorSection("Case Analysis", analysis) +
		priorSection("Strategy", strategy)

	raw, err := d.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var payload pipeline.DrafterPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode drafting output: %w", err)
	}

	if err := requireFields([]requiredField{
		{"summary", payload.Summary},
	}); err != nil {
		return nil, err
	}

	return payload, nil
}
