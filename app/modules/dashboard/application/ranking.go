package dashboardservice

import (
	"sort"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

// RankScores sorts records by composite score descending and assigns dense
// 1-based ranks. The sort is stable: ties keep their input order. When topN
// is positive the sorted sequence is truncated before ranks are assigned, so
// ranks always run 1..K with no gaps.
func RankScores(records []dashboardtypes.ScoreRecord, topN int) []dashboardtypes.RankedEntry {
	sorted := make([]dashboardtypes.ScoreRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompositeScore > sorted[j].CompositeScore
	})

	if topN > 0 && len(sorted) > topN {
		sorted = sorted[:topN]
	}

	entries := make([]dashboardtypes.RankedEntry, len(sorted))
	for i, record := range sorted {
		entries[i] = dashboardtypes.RankedEntry{Rank: i + 1, ScoreRecord: record}
	}
	return entries
}

// FindRank returns the rank of memberID within entries, or RankNotFound when
// the member was skipped by scoring or truncated out of the board.
func FindRank(memberID dashboardtypes.MemberID, entries []dashboardtypes.RankedEntry) int {
	for _, entry := range entries {
		if entry.MemberID == memberID {
			return entry.Rank
		}
	}
	return dashboardtypes.RankNotFound
}

// Summarize computes count plus avg/min/max per score column. Empty input
// yields an all-zero summary rather than an error.
func Summarize(records []dashboardtypes.ScoreRecord) dashboardtypes.ScoreStatistics {
	stats := dashboardtypes.ScoreStatistics{Count: len(records)}
	if len(records) == 0 {
		return stats
	}

	composite := newSummary()
	tenure := newSummary()
	message := newSummary()
	voice := newSummary()
	for _, r := range records {
		composite.add(r.CompositeScore)
		tenure.add(r.TenureScore)
		message.add(r.MessageScore)
		voice.add(r.VoiceScore)
	}
	n := float64(len(records))
	stats.Composite = composite.finish(n)
	stats.Tenure = tenure.finish(n)
	stats.Message = message.finish(n)
	stats.Voice = voice.finish(n)
	return stats
}

type runningSummary struct {
	sum, min, max float64
	seen          bool
}

func newSummary() *runningSummary {
	return &runningSummary{}
}

func (s *runningSummary) add(v float64) {
	s.sum += v
	if !s.seen || v < s.min {
		s.min = v
	}
	if !s.seen || v > s.max {
		s.max = v
	}
	s.seen = true
}

func (s *runningSummary) finish(n float64) dashboardtypes.MetricSummary {
	return dashboardtypes.MetricSummary{
		Avg: round2(s.sum / n),
		Min: s.min,
		Max: s.max,
	}
}
