package preview

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultAssetsHost serves the echarts JavaScript for rendered pages.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// WriteHTML renders series as an interactive line chart page.
func WriteHTML(w io.Writer, o Options, series ...Series) error {
	if err := validate(series); err != nil {
		return err
	}
	o = o.withDefaults()

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "600px", AssetsHost: DefaultAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: o.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: o.YLabel, NameLocation: "middle", NameGap: 40}),
	)

	for _, s := range series {
		step := stride(len(s.Time))
		data := make([]opts.LineData, 0, len(s.Time)/step+1)
		for j := 0; j < len(s.Time); j += step {
			data = append(data, opts.LineData{Value: []interface{}{s.Time[j], s.Value[j]}})
		}
		line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line.Render(w)
}
