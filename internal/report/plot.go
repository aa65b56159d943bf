package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/leapstack-labs/parishpanel/internal/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	pointColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	lineColor  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// PredictionPlot writes a predicted-versus-actual scatter with the identity
// line to path. The image format follows the file extension.
func PredictionPlot(path, title string, preds []model.Prediction) error {
	if len(preds) == 0 {
		return errors.New("no predictions to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Actual home value"
	p.Y.Label.Text = "Predicted home value"

	points := make(plotter.XYs, len(preds))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, pr := range preds {
		points[i].X = pr.Actual
		points[i].Y = pr.Predicted
		lo = math.Min(lo, math.Min(pr.Actual, pr.Predicted))
		hi = math.Max(hi, math.Max(pr.Actual, pr.Predicted))
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return fmt.Errorf("failed to create scatter: %w", err)
	}
	scatter.GlyphStyle.Color = pointColor
	scatter.GlyphStyle.Radius = vg.Points(3)

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.Color = lineColor
	identity.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(plotter.NewGrid(), scatter, identity)
	p.Legend.Add("samples", scatter)
	p.Legend.Add("perfect prediction", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(1, math.Abs(hi)*0.05)
	}
	p.X.Min, p.X.Max = lo-pad, hi+pad
	p.Y.Min, p.Y.Max = lo-pad, hi+pad

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// ImportancePlot writes a bar chart of the top feature importances.
func ImportancePlot(path, title string, imp []model.Importance, top int) error {
	if len(imp) == 0 {
		return errors.New("no feature importance to plot")
	}
	if top > 0 && top < len(imp) {
		imp = imp[:top]
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Share of split gain"

	values := make(plotter.Values, len(imp))
	labels := make([]string, len(imp))
	for i, fi := range imp {
		values[i] = fi.Score
		labels[i] = fi.Feature
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.Color = pointColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0

	width := vg.Length(math.Max(6, float64(len(imp))*0.6)) * vg.Inch
	if err := p.Save(width, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// LossPlot writes the per-epoch training loss curve.
func LossPlot(path, title string, history []float64) error {
	if len(history) == 0 {
		return errors.New("no training history to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Training MSE (standardized)"

	points := make(plotter.XYs, len(history))
	for i, v := range history {
		points[i].X = float64(i + 1)
		points[i].Y = v
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("failed to create line: %w", err)
	}
	line.Color = pointColor
	line.Width = vg.Points(1.5)

	p.Add(plotter.NewGrid(), line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
