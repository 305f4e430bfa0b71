package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// Researcher is the first pipeline stage. It surfaces jurisdiction-specific
// statutes, precedents, and the key legal issues of the case.
type Researcher struct {
	completer inference.Completer
}

func NewResearcher(completer inference.Completer) *Researcher {
	return &Researcher{completer: completer}
}

func (r *Researcher) Role() pipeline.Role { return pipeline.RoleResearcher }

func (r *Researcher) Execute(ctx context.Context, cc pipeline.CaseContext, prior []pipeline.StageResult) (pipeline.StagePayload, error) {
	systemPrompt := fmt.Sprintf(`You are a legal research specialist for %s, %s law. Identify the statutes, regulations, and precedents that govern this case. Cite only real, verifiable sources for this jurisdiction.

Respond with a JSON object of this exact shape:
{
  "relevantLaws": [{"name": "...", "sections": ["..."], "application": "how it applies to this case"}],
  "precedents": [{"citation": "...", "court": "...", "outcome": "...", "relevance": "..."}],
  "keyIssues": ["..."],
  "summary": "concise research summary"
}`, cc.Jurisdiction, cc.CaseType)

	raw, err := r.completer.Complete(ctx, systemPrompt, caseContextBlock(cc))
	if err != nil {
		return nil, err
	}

	var payload pipeline.ResearchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode research output: %w", err)
	}

	if err := requireFields([]requiredField{
		{"summary", payload.Summary},
	}); err != nil {
		return nil, err
	}

	return payload, nil
}
