package dashboardservice

import (
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

// DayKeyFormat is the bucket key layout used by the daily history map.
const DayKeyFormat = "2006-01-02"

// trendDeadZone is the percent band treated as flat, so small samples don't
// flap between up and down.
const trendDeadZone = 5.0

// CalculateTrends compares adjacent windows of the day-bucketed history:
// today vs yesterday, the last 7 days vs the prior 7, and the last 30 days vs
// the prior 30. Missing buckets count as 0.
func CalculateTrends(history map[string]int64, today time.Time) (day, week, month dashboardtypes.TrendWindow) {
	day = trendWindow("day", sumRange(history, today, 1), sumRange(history, today.AddDate(0, 0, -1), 1))
	week = trendWindow("week", sumRange(history, today, 7), sumRange(history, today.AddDate(0, 0, -7), 7))
	month = trendWindow("month", sumRange(history, today, 30), sumRange(history, today.AddDate(0, 0, -30), 30))
	return day, week, month
}

// sumRange sums the `days` buckets ending at `end` (inclusive).
func sumRange(history map[string]int64, end time.Time, days int) int64 {
	var total int64
	for i := 0; i < days; i++ {
		total += history[end.AddDate(0, 0, -i).Format(DayKeyFormat)]
	}
	return total
}

// trendWindow computes the delta between a window and its prior window.
// When prior is 0 no percentage is inferred: the delta stays 0 and the
// direction alone says whether anything happened.
func trendWindow(label string, current, prior int64) dashboardtypes.TrendWindow {
	w := dashboardtypes.TrendWindow{
		Label:      label,
		CurrentSum: current,
		PriorSum:   prior,
	}

	if prior == 0 {
		w.PercentDelta = 0
		if current > 0 {
			w.Direction = dashboardtypes.TrendUp
		} else {
			w.Direction = dashboardtypes.TrendFlat
		}
		return w
	}

	w.PercentDelta = round2(float64(current-prior) / float64(prior) * 100)
	switch {
	case w.PercentDelta > trendDeadZone:
		w.Direction = dashboardtypes.TrendUp
	case w.PercentDelta < -trendDeadZone:
		w.Direction = dashboardtypes.TrendDown
	default:
		w.Direction = dashboardtypes.TrendFlat
	}
	return w
}
