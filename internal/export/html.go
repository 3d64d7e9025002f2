package export

import (
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tgforge/internal/models"
	"tgforge/pkg/utils"
)

// TotalSeries names the aggregated series added to volume charts.
const TotalSeries = "Total"

// VolumeTables picks the volume tables out of a result, in order.
func VolumeTables(tables []models.Table) []models.Table {
	var out []models.Table

	for _, t := range tables {
		if strings.HasSuffix(t.Name, " Volume") && len(t.Columns) > 1 {
			out = append(out, t)
		}
	}

	return out
}

// Series is one line of a volume chart.
type Series struct {
	Name   string
	Values []int
}

// ChartData turns a volume table into x labels and one series per source.
// Series names are cleaned for use as identifiers; withTotal appends the sum
// of every source.
func ChartData(t models.Table, withTotal bool) ([]string, []Series) {
	labels := make([]string, 0, t.Len())
	series := make([]Series, len(t.Columns)-1)

	for i, c := range t.Columns[1:] {
		series[i] = Series{Name: utils.CleanColumnName(c), Values: make([]int, 0, t.Len())}
	}

	total := Series{Name: TotalSeries, Values: make([]int, 0, t.Len())}

	for _, row := range t.Rows {
		labels = append(labels, models.FormatCell(row[0]))
		sum := 0

		for i := range series {
			n := 0
			if i+1 < len(row) {
				n, _ = row[i+1].(int)
			}

			series[i].Values = append(series[i].Values, n)
			sum += n
		}

		total.Values = append(total.Values, sum)
	}

	if withTotal && len(series) > 1 {
		series = append(series, total)
	}

	return labels, series
}

// WriteCharts renders every volume table as a line chart on one HTML page.
func WriteCharts(w io.Writer, title string, tables []models.Table, withTotal bool) error {
	page := components.NewPage()
	page.PageTitle = title

	for _, t := range VolumeTables(tables) {
		labels, series := ChartData(t, withTotal)

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
			charts.WithTitleOpts(opts.Title{Title: t.Name, Left: "center"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "8%"}),
			charts.WithXAxisOpts(opts.XAxis{Name: t.Columns[0]}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		)
		line.SetXAxis(labels)

		for _, s := range series {
			data := make([]opts.LineData, len(s.Values))
			for i, v := range s.Values {
				data[i] = opts.LineData{Value: v}
			}

			line.AddSeries(s.Name, data)
		}

		page.AddCharts(line)
	}

	return page.Render(w)
}
