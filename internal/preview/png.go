package preview

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default PNG size.
const (
	PNGWidth  = 14 * vg.Inch
	PNGHeight = 6 * vg.Inch
)

func buildPlot(o Options, series []Series) (*plot.Plot, error) {
	if err := validate(series); err != nil {
		return nil, err
	}
	o = o.withDefaults()

	p := plot.New()
	p.Title.Text = o.Title
	if o.Subtitle != "" {
		p.Title.Text += "\n" + o.Subtitle
	}
	p.X.Label.Text = o.XLabel
	p.Y.Label.Text = o.YLabel
	p.Add(plotter.NewGrid())

	colors := palette(len(series))
	for i, s := range series {
		step := stride(len(s.Time))
		pts := make(plotter.XYs, 0, len(s.Time)/step+1)
		for j := 0; j < len(s.Time); j += step {
			pts = append(pts, plotter.XY{X: s.Time[j], Y: s.Value[j]})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG draws series and writes a PNG to w.
func WritePNG(w io.Writer, o Options, series ...Series) error {
	p, err := buildPlot(o, series)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PNGWidth, PNGHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG draws series into the file at path. The format follows the
// extension (png, svg, pdf and so on).
func SavePNG(path string, o Options, series ...Series) error {
	p, err := buildPlot(o, series)
	if err != nil {
		return err
	}
	return p.Save(PNGWidth, PNGHeight, path)
}

// palette spreads n colours around the hue circle.
func palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		out[i] = hsv(float64(i)/float64(max(n, 1)), 0.75, 0.85)
	}
	return out
}

func hsv(h, s, v float64) color.Color {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
