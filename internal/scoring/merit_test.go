package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMeritScore_CapsEachComponent(t *testing.T) {
	b := ComputeMeritScore(Signals{
		EvidenceQuantity:     50,
		EvidenceRelevance:    50,
		TimelineCompleteness: 50,
		InternalConsistency:  50,
		PrecedentAlignment:   50,
		RemedyStrength:       50,
		Penalty:              0,
	})

	assert.Equal(t, CapEvidenceQuantity, b.EvidenceQuantity)
	assert.Equal(t, CapEvidenceRelevance, b.EvidenceRelevance)
	assert.Equal(t, CapTimelineCompleteness, b.TimelineCompleteness)
	assert.Equal(t, CapInternalConsistency, b.InternalConsistency)
	assert.Equal(t, CapPrecedentAlignment, b.PrecedentAlignment)
	assert.Equal(t, CapRemedyStrength, b.RemedyStrength)
	assert.Equal(t, 100.0, b.MeritScore)
}

func TestComputeMeritScore_NegativePositiveSignalsFloorAtZero(t *testing.T) {
	b := ComputeMeritScore(Signals{
		EvidenceQuantity:  -10,
		EvidenceRelevance: -1,
	})

	assert.Equal(t, 0.0, b.EvidenceQuantity)
	assert.Equal(t, 0.0, b.EvidenceRelevance)
	assert.Equal(t, 0.0, b.MeritScore)
}

func TestComputeMeritScore_PenaltyNeverPositive(t *testing.T) {
	b := ComputeMeritScore(Signals{
		EvidenceQuantity: 20,
		Penalty:          15,
	})

	assert.Equal(t, 0.0, b.Penalty)
	assert.Equal(t, 20.0, b.MeritScore)
}

func TestComputeMeritScore_PenaltyFloor(t *testing.T) {
	b := ComputeMeritScore(Signals{Penalty: -500})

	assert.Equal(t, PenaltyFloor, b.Penalty)
	assert.Equal(t, 0.0, b.MeritScore, "score is clamped at zero, never negative")
}

func TestComputeMeritScore_ScoreReDerivableFromBreakdown(t *testing.T) {
	cases := []Signals{
		{18, 18, 13, 12, 16, 9, -2},
		{15, 14, 10, 10, 12, 6, -3},
		{0, 0, 0, 0, 0, 0, -50},
		{20, 20, 15, 15, 20, 10, 0},
		{3.5, 7.25, 1, 14.9, 0, 2, -0.5},
	}
	for _, s := range cases {
		b := ComputeMeritScore(s)
		assert.Equal(t, clamp(b.Sum(), 0, 100), b.MeritScore)
		assert.GreaterOrEqual(t, b.MeritScore, 0.0)
		assert.LessOrEqual(t, b.MeritScore, 100.0)
	}
}

func TestComputeMeritScore_MonotoneInEvidenceSignals(t *testing.T) {
	base := Signals{10, 10, 10, 10, 10, 5, -5}

	prev := ComputeMeritScore(base).MeritScore
	for q := base.EvidenceQuantity; q <= 30; q++ {
		s := base
		s.EvidenceQuantity = q
		score := ComputeMeritScore(s).MeritScore
		assert.GreaterOrEqual(t, score, prev, "raising evidenceQuantity to %.0f must not lower the score", q)
		prev = score
	}

	prev = ComputeMeritScore(base).MeritScore
	for r := base.EvidenceRelevance; r <= 30; r++ {
		s := base
		s.EvidenceRelevance = r
		score := ComputeMeritScore(s).MeritScore
		assert.GreaterOrEqual(t, score, prev, "raising evidenceRelevance to %.0f must not lower the score", r)
		prev = score
	}
}

func TestComputeMeritScore_Deterministic(t *testing.T) {
	s := Signals{12, 17, 9, 11, 14, 7, -4}

	first := ComputeMeritScore(s)
	second := ComputeMeritScore(s)

	assert.Equal(t, first, second)
}

func TestComputeMeritScore_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		signals   Signals
		wantScore float64
		wantBand  string
	}{
		{
			name:      "strong_housing_case",
			signals:   Signals{18, 16, 12, 13, 17, 8, 0},
			wantScore: 84,
			wantBand:  BandStrong,
		},
		{
			name:      "missed_filing_deadline_drops_to_viable",
			signals:   Signals{18, 16, 12, 13, 17, 8, -20},
			wantScore: 64,
			wantBand:  BandViable,
		},
		{
			name:      "all_signals_zero",
			signals:   Signals{},
			wantScore: 0,
			wantBand:  BandNeedsWork,
		},
		{
			name:      "no_evidence_heavy_penalty_floors_at_zero",
			signals:   Signals{0, 0, 0, 0, 0, 0, -50},
			wantScore: 0,
			wantBand:  BandNeedsWork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeMeritScore(tt.signals)
			assert.Equal(t, tt.wantScore, b.MeritScore)
			assert.Equal(t, tt.wantBand, Band(b.MeritScore))
		})
	}
}

func TestBand_Thresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, BandStrong},
		{70, BandStrong},
		{69.9, BandViable},
		{40, BandViable},
		{39.9, BandNeedsWork},
		{0, BandNeedsWork},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Band(tt.score), "score %.1f", tt.score)
	}
}
