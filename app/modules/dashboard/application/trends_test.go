package dashboardservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

func day(value string) time.Time {
	t, err := time.Parse(DayKeyFormat, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDayOverDayTrend(t *testing.T) {
	history := map[string]int64{
		"2023-10-01": 10,
		"2023-10-02": 20,
		"2023-10-03": 5,
	}

	dayTrend, _, _ := CalculateTrends(history, day("2023-10-03"))

	assert.Equal(t, int64(5), dayTrend.CurrentSum)
	assert.Equal(t, int64(20), dayTrend.PriorSum)
	assert.Equal(t, -75.0, dayTrend.PercentDelta)
	assert.Equal(t, dashboardtypes.TrendDown, dayTrend.Direction)
}

func TestZeroPriorWithActivityIsUpWithoutPercent(t *testing.T) {
	// Growth from nothing: no percentage is inferred, but the direction
	// still says "up".
	history := map[string]int64{
		"2023-10-03": 5,
	}

	_, weekTrend, _ := CalculateTrends(history, day("2023-10-03"))

	assert.Equal(t, int64(5), weekTrend.CurrentSum)
	assert.Equal(t, int64(0), weekTrend.PriorSum)
	assert.Equal(t, 0.0, weekTrend.PercentDelta)
	assert.Equal(t, dashboardtypes.TrendUp, weekTrend.Direction)
}

func TestZeroPriorZeroCurrentIsFlat(t *testing.T) {
	dayTrend, weekTrend, monthTrend := CalculateTrends(map[string]int64{}, day("2023-10-03"))

	for _, w := range []dashboardtypes.TrendWindow{dayTrend, weekTrend, monthTrend} {
		assert.Equal(t, 0.0, w.PercentDelta)
		assert.Equal(t, dashboardtypes.TrendFlat, w.Direction)
	}
}

func TestDeadZoneIsFlat(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		prior   int64
		want    dashboardtypes.TrendDirection
	}{
		{name: "small rise stays flat", current: 103, prior: 100, want: dashboardtypes.TrendFlat},
		{name: "small dip stays flat", current: 97, prior: 100, want: dashboardtypes.TrendFlat},
		{name: "exactly +5 stays flat", current: 105, prior: 100, want: dashboardtypes.TrendFlat},
		{name: "just past +5 is up", current: 106, prior: 100, want: dashboardtypes.TrendUp},
		{name: "just past -5 is down", current: 94, prior: 100, want: dashboardtypes.TrendDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := trendWindow("test", tt.current, tt.prior)
			assert.Equal(t, tt.want, w.Direction)
		})
	}
}

func TestWeeklyWindowSums(t *testing.T) {
	history := map[string]int64{}
	// Current week: 7 days ending 2023-10-14, 2 events each.
	for i := 0; i < 7; i++ {
		history[day("2023-10-14").AddDate(0, 0, -i).Format(DayKeyFormat)] = 2
	}
	// Prior week: 1 event each.
	for i := 7; i < 14; i++ {
		history[day("2023-10-14").AddDate(0, 0, -i).Format(DayKeyFormat)] = 1
	}

	_, weekTrend, _ := CalculateTrends(history, day("2023-10-14"))

	assert.Equal(t, int64(14), weekTrend.CurrentSum)
	assert.Equal(t, int64(7), weekTrend.PriorSum)
	assert.Equal(t, 100.0, weekTrend.PercentDelta)
	assert.Equal(t, dashboardtypes.TrendUp, weekTrend.Direction)
}

func TestMissingBucketsCountAsZero(t *testing.T) {
	// Sparse history: only two days present in a 30-day window.
	history := map[string]int64{
		"2023-10-01": 3,
		"2023-10-10": 4,
	}

	_, _, monthTrend := CalculateTrends(history, day("2023-10-15"))

	assert.Equal(t, int64(7), monthTrend.CurrentSum)
	assert.Equal(t, int64(0), monthTrend.PriorSum)
}

func TestDirectionSymbols(t *testing.T) {
	assert.Equal(t, "📈", dashboardtypes.TrendUp.Symbol())
	assert.Equal(t, "📉", dashboardtypes.TrendDown.Symbol())
	assert.Equal(t, "➖", dashboardtypes.TrendFlat.Symbol())
}
