package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"propguard/internal/store/sweeplog"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorSuccess       = "#34d399"
	colorFailure       = "#f87171"
	colorSkipped       = "#fbbf24"
	colorBreach        = "#a78bfa"
	colorLatency       = "#22d3ee"

	chartWidthPx  = 1280
	chartHeightPx = 420
)

// RenderSweepHistory writes a self-contained HTML page charting recent
// sweep outcomes: a stacked per-sweep outcome bar plus a latency line.
// Records are expected newest-first; the chart flips them to read
// left-to-right in time.
func RenderSweepHistory(w io.Writer, records []sweeplog.Record) error {
	page := components.NewPage()
	page.PageTitle = "Sweep History"

	ordered := make([]sweeplog.Record, len(records))
	for i, rec := range records {
		ordered[len(records)-1-i] = rec
	}

	xAxis := make([]string, len(ordered))
	success := make([]opts.BarData, len(ordered))
	failure := make([]opts.BarData, len(ordered))
	skipped := make([]opts.BarData, len(ordered))
	breach := make([]opts.BarData, len(ordered))
	latency := make([]opts.LineData, len(ordered))
	for i, rec := range ordered {
		xAxis[i] = time.Unix(rec.StartedAt, 0).UTC().Format("01-02 15:04:05")
		success[i] = opts.BarData{Value: rec.SuccessCount, ItemStyle: &opts.ItemStyle{Color: colorSuccess}}
		failure[i] = opts.BarData{Value: rec.FailureCount, ItemStyle: &opts.ItemStyle{Color: colorFailure}}
		skipped[i] = opts.BarData{Value: rec.SkippedCount, ItemStyle: &opts.ItemStyle{Color: colorSkipped}}
		breach[i] = opts.BarData{Value: rec.BreachCount, ItemStyle: &opts.ItemStyle{Color: colorBreach}}
		latency[i] = opts.LineData{Value: rec.AvgLatencyMs}
	}

	page.AddCharts(buildOutcomeChart(xAxis, success, failure, skipped, breach), buildLatencyChart(xAxis, latency))
	return page.Render(w)
}

func buildOutcomeChart(xAxis []string, success, failure, skipped, breach []opts.BarData) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Sweep outcomes", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	bar.SetXAxis(xAxis)
	bar.AddSeries("Success", success, charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))
	bar.AddSeries("Failure", failure, charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))
	bar.AddSeries("Skipped", skipped, charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))
	bar.AddSeries("Breach", breach, charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))
	return bar
}

func buildLatencyChart(xAxis []string, latency []opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Avg evaluation latency (ms)", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("avg_latency_ms", latency, charts.WithLineStyleOpts(opts.LineStyle{Color: colorLatency, Width: 2}))
	return line
}
