package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// fakeCompleter replays scripted replies and records the prompts it saw.
type fakeCompleter struct {
	replies []string
	err     error

	systemPrompts []string
	userPrompts   []string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	f.systemPrompts = append(f.systemPrompts, systemPrompt)
	f.userPrompts = append(f.userPrompts, userPrompt)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply left")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return json.RawMessage(reply), nil
}

func testCaseContext() pipeline.CaseContext {
	return pipeline.CaseContext{
		CaseID:       "case-1",
		Description:  "Landlord withheld the deposit after move-out",
		CaseType:     "landlord-tenant",
		Jurisdiction: "Ontario",
		Evidence: []pipeline.EvidenceSummary{
			{Name: "lease.pdf", Type: "application/pdf", Description: "Signed lease", Tags: []string{"contract"}, OCRPreview: "This lease is made between"},
		},
		PriorAnalysis: "Deposit likely recoverable.",
	}
}

func priorResult(role pipeline.Role, payload pipeline.StagePayload) pipeline.StageResult {
	return pipeline.StageResult{
		Role:        role,
		Payload:     payload,
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
	}
}

const researchReply = `{
	"relevantLaws": [{"name": "Residential Tenancies Act, 2006", "sections": ["105"], "application": "Deposits may only be applied to the last rent period"}],
	"precedents": [{"citation": "TET-12345", "court": "LTB", "outcome": "Deposit returned", "relevance": "Same fact pattern"}],
	"keyIssues": ["illegal deposit retention"],
	"summary": "The retention likely violates the RTA."
}`

const analystReply = `{
	"meritSignals": {"evidenceQuantity": 18, "evidenceRelevance": 18, "timelineCompleteness": 13, "internalConsistency": 12, "precedentAlignment": 16, "remedyStrength": 9, "penalty": -2},
	"successProbability": "high",
	"confidence": "high",
	"strengths": [{"factor": "signed lease", "impact": "high"}],
	"weaknesses": [],
	"evidenceGaps": ["move-out inspection photos"],
	"riskFactors": [],
	"keyIssues": ["deposit retention"],
	"summary": "Strong documentary case."
}`

const strategistReply = `{
	"primaryStrategy": {"approach": "LTB application", "rationale": "Cheap and fast", "timeline": "2-4 months", "estimatedCost": "$53 filing fee"},
	"actionPlan": [
		{"step": 1, "action": "File T1 application", "deadline": "1 week", "priority": "high"},
		{"step": 2, "action": "Gather receipts", "deadline": "1 week", "priority": "high"},
		{"step": 3, "action": "Serve the landlord", "deadline": "2 weeks", "priority": "high"},
		{"step": 4, "action": "Prepare hearing binder", "deadline": "1 month", "priority": "medium"},
		{"step": 5, "action": "Attend case management", "deadline": "as scheduled", "priority": "medium"},
		{"step": 6, "action": "Attend hearing", "deadline": "as scheduled", "priority": "high"},
		{"step": 7, "action": "Enforce the order", "deadline": "after decision", "priority": "low"}
	],
	"negotiationStrategy": {"leveragePoints": ["clear statutory breach"], "settlementTarget": "full deposit plus interest", "walkAwayPoint": "full deposit"},
	"summary": "File at the LTB while offering to settle."
}`

const drafterReply = `{
	"requiredDocuments": [{"name": "T1 Application", "form": "T1", "deadline": "1 week", "priority": "high"}],
	"keyArguments": [{"argument": "Deposit retention breaches s.105", "support": "Lease and payment records", "anticipatedCounter": "Alleged damage to unit"}],
	"filingInstructions": {"where": "Landlord and Tenant Board", "how": "Tribunals Ontario portal", "fees": "$53", "copies": "One for the landlord"},
	"summary": "File the T1 with the lease attached."
}`

func completedPriors(t *testing.T, upTo pipeline.Role) []pipeline.StageResult {
	t.Helper()
	ctx := context.Background()
	cc := testCaseContext()

	var priors []pipeline.StageResult
	stages := []struct {
		role  pipeline.Role
		reply string
		make  func(c *fakeCompleter) pipeline.Executor
	}{
		{pipeline.RoleResearcher, researchReply, func(c *fakeCompleter) pipeline.Executor { return NewResearcher(c) }},
		{pipeline.RoleAnalyst, analystReply, func(c *fakeCompleter) pipeline.Executor { return NewAnalyst(c) }},
		{pipeline.RoleStrategist, strategistReply, func(c *fakeCompleter) pipeline.Executor { return NewStrategist(c) }},
	}
	for _, stage := range stages {
		exec := stage.make(&fakeCompleter{replies: []string{stage.reply}})
		payload, err := exec.Execute(ctx, cc, priors)
		require.NoError(t, err)
		priors = append(priors, priorResult(stage.role, payload))
		if stage.role == upTo {
			break
		}
	}
	return priors
}

func TestNewExecutors_MatchStageOrder(t *testing.T) {
	execs := NewExecutors(&fakeCompleter{})
	require.Len(t, execs, len(pipeline.StageOrder))
	for i, exec := range execs {
		assert.Equal(t, pipeline.StageOrder[i], exec.Role())
	}
}

func TestResearcher_Execute(t *testing.T) {
	t.Run("decodes structured payload", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{researchReply}}
		payload, err := NewResearcher(completer).Execute(context.Background(), testCaseContext(), nil)
		require.NoError(t, err)

		research, ok := payload.(pipeline.ResearchPayload)
		require.True(t, ok)
		assert.Equal(t, pipeline.RoleResearcher, research.StageRole())
		require.Len(t, research.RelevantLaws, 1)
		assert.Equal(t, "Residential Tenancies Act, 2006", research.RelevantLaws[0].Name)
	})

	t.Run("prompt carries case context and evidence", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{researchReply}}
		_, err := NewResearcher(completer).Execute(context.Background(), testCaseContext(), nil)
		require.NoError(t, err)

		require.Len(t, completer.systemPrompts, 1)
		assert.Contains(t, completer.systemPrompts[0], "Ontario")
		assert.Contains(t, completer.systemPrompts[0], "landlord-tenant")
		assert.Contains(t, completer.userPrompts[0], "Landlord withheld the deposit")
		assert.Contains(t, completer.userPrompts[0], "lease.pdf")
		assert.Contains(t, completer.userPrompts[0], "This lease is made between")
		assert.Contains(t, completer.userPrompts[0], "Deposit likely recoverable.")
	})

	t.Run("missing summary fails the stage", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{`{"relevantLaws": [], "summary": ""}`}}
		_, err := NewResearcher(completer).Execute(context.Background(), testCaseContext(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "summary")
	})

	t.Run("completer error propagates", func(t *testing.T) {
		boom := errors.New("gateway down")
		completer := &fakeCompleter{err: boom}
		_, err := NewResearcher(completer).Execute(context.Background(), testCaseContext(), nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestAnalyst_Execute(t *testing.T) {
	priors := completedPriors(t, pipeline.RoleResearcher)

	t.Run("computes breakdown from extracted signals", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{analystReply}}
		payload, err := NewAnalyst(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		analysis, ok := payload.(pipeline.AnalystPayload)
		require.True(t, ok)
		assert.Equal(t, 84.0, analysis.Breakdown.MeritScore)
		assert.Equal(t, 18.0, analysis.Breakdown.EvidenceQuantity)
		assert.Equal(t, -2.0, analysis.Breakdown.Penalty)
		assert.Equal(t, "high", analysis.ConfidenceLevel())
	})

	t.Run("prompt includes research findings", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{analystReply}}
		_, err := NewAnalyst(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		assert.Contains(t, completer.userPrompts[0], "Research Findings")
		assert.Contains(t, completer.userPrompts[0], "Residential Tenancies Act")
	})

	t.Run("absent merit signal fails the stage", func(t *testing.T) {
		reply := `{
			"meritSignals": {"evidenceQuantity": 18, "evidenceRelevance": 18, "timelineCompleteness": 13, "internalConsistency": 12, "precedentAlignment": 16, "remedyStrength": 9},
			"successProbability": "high",
			"confidence": "high",
			"summary": "ok"
		}`
		completer := &fakeCompleter{replies: []string{reply}}
		_, err := NewAnalyst(completer).Execute(context.Background(), testCaseContext(), priors)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "meritSignals.penalty")
	})

	t.Run("zero signal is accepted", func(t *testing.T) {
		reply := `{
			"meritSignals": {"evidenceQuantity": 0, "evidenceRelevance": 0, "timelineCompleteness": 0, "internalConsistency": 0, "precedentAlignment": 0, "remedyStrength": 0, "penalty": 0},
			"successProbability": "low",
			"confidence": "low",
			"summary": "nothing to go on"
		}`
		completer := &fakeCompleter{replies: []string{reply}}
		payload, err := NewAnalyst(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		analysis := payload.(pipeline.AnalystPayload)
		assert.Equal(t, 0.0, analysis.Breakdown.MeritScore)
	})

	t.Run("missing prior research fails", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{analystReply}}
		_, err := NewAnalyst(completer).Execute(context.Background(), testCaseContext(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "researcher")
	})
}

func TestStrategist_Execute(t *testing.T) {
	priors := completedPriors(t, pipeline.RoleAnalyst)

	t.Run("derives next steps from the action plan head", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{strategistReply}}
		payload, err := NewStrategist(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		strategy, ok := payload.(pipeline.StrategistPayload)
		require.True(t, ok)
		require.Len(t, strategy.ActionPlan, 7)
		require.Len(t, strategy.NextSteps, maxNextSteps)
		assert.Equal(t, strategy.ActionPlan[:maxNextSteps], strategy.NextSteps)
	})

	t.Run("prompt includes research and analysis", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{strategistReply}}
		_, err := NewStrategist(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		assert.Contains(t, completer.userPrompts[0], "Research Findings")
		assert.Contains(t, completer.userPrompts[0], "Case Analysis")
	})

	t.Run("missing approach fails the stage", func(t *testing.T) {
		reply := `{"primaryStrategy": {"approach": ""}, "actionPlan": [], "summary": "ok"}`
		completer := &fakeCompleter{replies: []string{reply}}
		_, err := NewStrategist(completer).Execute(context.Background(), testCaseContext(), priors)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primaryStrategy.approach")
	})
}

func TestDrafter_Execute(t *testing.T) {
	priors := completedPriors(t, pipeline.RoleStrategist)

	t.Run("decodes filing guidance", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{drafterReply}}
		payload, err := NewDrafter(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		drafting, ok := payload.(pipeline.DrafterPayload)
		require.True(t, ok)
		assert.Equal(t, "Landlord and Tenant Board", drafting.FilingInstructions.Where)
		require.Len(t, drafting.RequiredDocuments, 1)
	})

	t.Run("prompt includes all three prior stages", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{drafterReply}}
		_, err := NewDrafter(completer).Execute(context.Background(), testCaseContext(), priors)
		require.NoError(t, err)

		assert.Contains(t, completer.userPrompts[0], "Research Findings")
		assert.Contains(t, completer.userPrompts[0], "Case Analysis")
		assert.Contains(t, completer.userPrompts[0], "Strategy")
	})

	t.Run("missing summary fails the stage", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{`{"requiredDocuments": []}`}}
		_, err := NewDrafter(completer).Execute(context.Background(), testCaseContext(), priors)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "summary")
	})
}
