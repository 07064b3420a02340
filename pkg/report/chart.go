package report

import (
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// ChartOptions controls the daily revenue chart
type ChartOptions struct {
	Width  int
	Height int
	Title  string
}

// DefaultChartOptions returns the default chart size and title
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Width:  1000,
		Height: 400,
		Title:  "Daily Revenue",
	}
}

const chartMargin = 60.0

var (
	chartBackground = color.White
	chartAxis       = color.NRGBA{R: 90, G: 90, B: 90, A: 255}
	chartGrid       = color.NRGBA{R: 225, G: 225, B: 225, A: 255}
	chartLine       = color.NRGBA{R: 31, G: 119, B: 180, A: 255}
)

// RenderChart draws the daily revenue series as a line chart and encodes it as PNG.
// Days are spaced evenly in series order.
func RenderChart(w io.Writer, series []models.DayRevenue, opts ChartOptions) error {
	width, height := float64(opts.Width), float64(opts.Height)
	dc := gg.NewContext(opts.Width, opts.Height)

	dc.SetColor(chartBackground)
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	left, right := chartMargin, width-chartMargin/2
	top, bottom := chartMargin/2, height-chartMargin

	maxRevenue := 0.0
	for _, d := range series {
		maxRevenue = math.Max(maxRevenue, d.Revenue)
	}
	if maxRevenue <= 0 {
		maxRevenue = 1
	}

	// Horizontal grid with value labels
	const gridLines = 4
	dc.SetLineWidth(1)
	for i := 0; i <= gridLines; i++ {
		y := bottom - (bottom-top)*float64(i)/gridLines
		dc.SetColor(chartGrid)
		dc.DrawLine(left, y, right, y)
		dc.Stroke()
		dc.SetColor(chartAxis)
		dc.DrawStringAnchored(formatAmount(maxRevenue*float64(i)/gridLines), left-6, y, 1, 0.5)
	}

	dc.SetColor(chartAxis)
	dc.DrawLine(left, top, left, bottom)
	dc.DrawLine(left, bottom, right, bottom)
	dc.Stroke()

	x := func(i int) float64 {
		if len(series) <= 1 {
			return (left + right) / 2
		}
		return left + (right-left)*float64(i)/float64(len(series)-1)
	}
	y := func(v float64) float64 {
		return bottom - (bottom-top)*v/maxRevenue
	}

	dc.SetColor(chartLine)
	dc.SetLineWidth(2)
	for i, d := range series {
		if i == 0 {
			dc.MoveTo(x(i), y(d.Revenue))
			continue
		}
		dc.LineTo(x(i), y(d.Revenue))
	}
	dc.Stroke()
	if len(series) == 1 {
		dc.DrawCircle(x(0), y(series[0].Revenue), 3)
		dc.Fill()
	}

	dc.SetColor(chartAxis)
	if len(series) > 0 {
		dc.DrawStringAnchored(series[0].Date, x(0), bottom+14, 0, 0.5)
		if len(series) > 1 {
			last := len(series) - 1
			dc.DrawStringAnchored(series[last].Date, x(last), bottom+14, 1, 0.5)
		}
	}
	dc.DrawStringAnchored(opts.Title, width/2, top/2, 0.5, 0.5)
	dc.DrawStringAnchored("Date", (left+right)/2, height-14, 0.5, 0.5)
	dc.DrawStringAnchored("Revenue (USD)", 8, top/2, 0, 0.5)

	return dc.EncodePNG(w)
}
