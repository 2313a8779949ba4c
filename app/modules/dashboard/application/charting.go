package dashboardservice

import (
	"bytes"
	"context"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette holds the colors used by the dashboard chart.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	Text       drawing.Color
}

// DefaultPalette is the stock dark theme.
var DefaultPalette = ChartPalette{
	Background: drawing.ColorFromHex("1e2124"),
	Bar:        drawing.ColorFromHex("43b581"),
	Text:       drawing.ColorFromHex("e8e8e8"),
}

// ChartRenderer renders snapshots into PNG bar charts of composite scores.
type ChartRenderer struct {
	palette ChartPalette
}

// NewChartRenderer creates a renderer with the given palette.
func NewChartRenderer(palette ChartPalette) *ChartRenderer {
	return &ChartRenderer{palette: palette}
}

// Render produces a PNG engagement chart for the snapshot's board. An empty
// board renders a "no data" placeholder instead of failing.
func (r *ChartRenderer) Render(_ context.Context, snapshot *dashboardtypes.Snapshot) ([]byte, error) {
	if len(snapshot.Board) == 0 {
		return r.renderNoDataPlaceholder()
	}

	bars := make([]chart.Value, 0, len(snapshot.Board))
	for _, entry := range snapshot.Board {
		bars = append(bars, chart.Value{
			Label: string(entry.MemberID),
			Value: entry.CompositeScore,
			Style: chart.Style{
				FillColor:   r.palette.Bar,
				StrokeColor: r.palette.Bar,
			},
		})
	}

	graph := chart.BarChart{
		Title:    "Engagement scores",
		Width:    800,
		Height:   400,
		BarWidth: 40,
		Background: chart.Style{
			FillColor: r.palette.Background,
		},
		Canvas: chart.Style{
			FillColor: r.palette.Background,
		},
		TitleStyle: chart.Style{
			FontColor: r.palette.Text,
		},
		XAxis: chart.Style{
			FontColor: r.palette.Text,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{
				FontColor: r.palette.Text,
			},
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (r *ChartRenderer) renderNoDataPlaceholder() ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No scorable members yet"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: r.palette.Background,
		},
		Canvas: chart.Style{
			FillColor: r.palette.Background,
		},
		Elements: []chart.Renderable{
			func(renderer chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				renderer.SetFontColor(r.palette.Text)
				renderer.SetFontSize(12.0)
				tb := renderer.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				renderer.Text(msg, x, y)
			},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
