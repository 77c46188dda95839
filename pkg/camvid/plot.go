// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package camvid

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotClassFrequencies saves a bar plot of the class frequencies (see ClassCounts.Frequencies), each bar
// painted with the class color. The format is taken from the extension of path (e.g. ".png", ".svg").
func PlotClassFrequencies(counts *ClassCounts, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("CamVid class frequencies (%d images)", counts.NumImages)
	p.X.Label.Text = "Class"
	p.Y.Label.Text = "Frequency"

	barWidth := vg.Points(24)
	freqs := counts.Frequencies()
	for c, freq := range freqs {
		// One bar chart per class, so each gets its own color. The other classes are left empty.
		values := make(plotter.Values, NumClasses)
		values[c] = freq
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return errors.Wrapf(err, "creating bar for class %s", Class(c))
		}
		bars.Color = Class(c).Color()
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX(ClassNames()...)

	if err := p.Save(12*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving class frequencies plot to %q", path)
	}
	return nil
}
