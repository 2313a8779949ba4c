package dashboardservice

import (
	"math"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

// ScoringEngine converts raw per-member counters into normalized, weighted
// composite scores. It is a pure function of its inputs: identical counters
// and weights always yield bit-identical records.
type ScoringEngine struct {
	weights dashboardtypes.EngagementWeights
}

// NewScoringEngine builds an engine with the given weight blend. Weights are
// renormalized once here; passing already-normalized weights is a no-op.
func NewScoringEngine(weights dashboardtypes.EngagementWeights) *ScoringEngine {
	normalized, _ := weights.Normalize()
	return &ScoringEngine{weights: normalized}
}

// Weights returns the normalized blend the engine scores with.
func (e *ScoringEngine) Weights() dashboardtypes.EngagementWeights {
	return e.weights
}

// Score computes one ScoreRecord per scorable member and the count of members
// skipped for unknown tenure. Sub-scores are max-normalized to [0,100]; a
// zero column maximum scores the whole column 0 rather than dividing by zero.
// A lone member holding every maximum scores a composite of 100; that is an
// intentional artifact of max-normalization.
func (e *ScoringEngine) Score(members []dashboardtypes.MemberCounters) ([]dashboardtypes.ScoreRecord, int) {
	valid := make([]dashboardtypes.MemberCounters, 0, len(members))
	skipped := 0
	for _, m := range members {
		if m.JoinedAt == nil {
			skipped++
			continue
		}
		valid = append(valid, m)
	}
	if len(valid) == 0 {
		return []dashboardtypes.ScoreRecord{}, skipped
	}

	var maxTenure, maxMessages, maxVoice int64
	for _, m := range valid {
		if m.TenureDays > maxTenure {
			maxTenure = m.TenureDays
		}
		if m.MessageCount > maxMessages {
			maxMessages = m.MessageCount
		}
		if m.VoiceSeconds > maxVoice {
			maxVoice = m.VoiceSeconds
		}
	}

	records := make([]dashboardtypes.ScoreRecord, 0, len(valid))
	for _, m := range valid {
		tenure := subScore(m.TenureDays, maxTenure)
		message := subScore(m.MessageCount, maxMessages)
		voice := subScore(m.VoiceSeconds, maxVoice)
		composite := round2(tenure*e.weights.Tenure + message*e.weights.Message + voice*e.weights.Voice)
		records = append(records, dashboardtypes.ScoreRecord{
			MemberID:       m.MemberID,
			TenureScore:    tenure,
			MessageScore:   message,
			VoiceScore:     voice,
			CompositeScore: composite,
		})
	}
	return records, skipped
}

// subScore max-normalizes a raw counter to [0,100]. A zero maximum is
// substituted with 1 so the whole column scores 0.
func subScore(value, max int64) float64 {
	if max == 0 {
		max = 1
	}
	return round2(float64(value) / float64(max) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
