// Package scoring computes the deterministic 0-100 merit score and its
// auditable per-factor breakdown from the qualitative signals the analyst
// stage extracts. Everything here is a pure function: identical signals
// always produce an identical breakdown.
package scoring

// Caps for the six positive sub-scores. Each signal is clamped into
// [0, cap] before summing, so no single factor can dominate the score.
const (
	CapEvidenceQuantity     = 20.0
	CapEvidenceRelevance    = 20.0
	CapTimelineCompleteness = 15.0
	CapInternalConsistency  = 15.0
	CapPrecedentAlignment   = 20.0
	CapRemedyStrength       = 10.0
)

// PenaltyFloor bounds the combined penalty. Multiple penalty causes
// (missed deadline, wrong venue, limitation-period risk) combine
// additively, with this floor.
const PenaltyFloor = -100.0

// Presentation band thresholds over the clamped merit score.
const (
	StrongThreshold = 70.0
	ViableThreshold = 40.0
)

// Band labels derived from the merit score.
const (
	BandStrong    = "strong"
	BandViable    = "viable"
	BandNeedsWork = "needs work"
)

// Signals are the raw qualitative inputs to the merit score, before caps
// are applied. A signal that cannot be computed is scored 0, never omitted,
// so the sum stays reproducible.
type Signals struct {
	EvidenceQuantity     float64 `json:"evidenceQuantity"`
	EvidenceRelevance    float64 `json:"evidenceRelevance"`
	TimelineCompleteness float64 `json:"timelineCompleteness"`
	InternalConsistency  float64 `json:"internalConsistency"`
	PrecedentAlignment   float64 `json:"precedentAlignment"`
	RemedyStrength       float64 `json:"remedyStrength"`
	Penalty              float64 `json:"penalty"`
}

// MeritBreakdown retains the capped sub-scores and penalty alongside the
// clamped total, so the score is always re-derivable:
// MeritScore == clamp(sum of the seven components, 0, 100).
type MeritBreakdown struct {
	EvidenceQuantity     float64 `json:"evidenceQuantity"`
	EvidenceRelevance    float64 `json:"evidenceRelevance"`
	TimelineCompleteness float64 `json:"timelineCompleteness"`
	InternalConsistency  float64 `json:"internalConsistency"`
	PrecedentAlignment   float64 `json:"precedentAlignment"`
	RemedyStrength       float64 `json:"remedyStrength"`
	Penalty              float64 `json:"penalty"`
	MeritScore           float64 `json:"meritScore"`
}

// Sum returns the unclamped total of all seven components.
func (b MeritBreakdown) Sum() float64 {
	return b.EvidenceQuantity +
		b.EvidenceRelevance +
		b.TimelineCompleteness +
		b.InternalConsistency +
		b.PrecedentAlignment +
		b.RemedyStrength +
		b.Penalty
}

// ComputeMeritScore caps each positive signal, bounds the penalty to
// [PenaltyFloor, 0], and clamps the total into [0, 100].
func ComputeMeritScore(s Signals) MeritBreakdown {
	b := MeritBreakdown{
		EvidenceQuantity:     clamp(s.EvidenceQuantity, 0, CapEvidenceQuantity),
		EvidenceRelevance:    clamp(s.EvidenceRelevance, 0, CapEvidenceRelevance),
		TimelineCompleteness: clamp(s.TimelineCompleteness, 0, CapTimelineCompleteness),
		InternalConsistency:  clamp(s.InternalConsistency, 0, CapInternalConsistency),
		PrecedentAlignment:   clamp(s.PrecedentAlignment, 0, CapPrecedentAlignment),
		RemedyStrength:       clamp(s.RemedyStrength, 0, CapRemedyStrength),
		Penalty:              clamp(s.Penalty, PenaltyFloor, 0),
	}
	b.MeritScore = clamp(b.Sum(), 0, 100)
	return b
}

// Band maps a merit score onto its presentation band.
func Band(score float64) string {
	switch {
	case score >= StrongThreshold:
		return BandStrong
	case score >= ViableThreshold:
		return BandViable
	default:
		return BandNeedsWork
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
