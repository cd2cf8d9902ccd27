package report

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNothingToPlot means no metric had at least two samples.
var ErrNothingToPlot = errors.New("no metric history to plot")

// PlotMetrics draws the history of every metric in unit against the step
// number and saves the chart to path. The image format follows the
// extension (png, svg, pdf, ...).
func (r *Recorder) PlotMetrics(path, unit string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s run %s", r.runType, r.runID.String()[:8])
	p.X.Label.Text = "step"
	p.Y.Label.Text = unit

	drawn := 0
	for _, m := range r.Metrics() {
		if m.Unit != unit || len(m.History) < 2 {
			continue
		}

		pts := make(plotter.XYs, len(m.History))
		for i, point := range m.History {
			pts[i].X = float64(point.Step)
			pts[i].Y = point.Value
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to plot %s: %w", m.Name, err)
		}
		line.Color = plotutil.Color(drawn)
		line.Dashes = plotutil.Dashes(drawn)
		p.Add(line)
		p.Legend.Add(m.Name, line)
		drawn++
	}

	if drawn == 0 {
		return ErrNothingToPlot
	}

	p.Add(plotter.NewGrid())
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
