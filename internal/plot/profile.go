// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package plot renders cuts through an image and its background model as line plots.
package plot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Image data with its background and noise maps, all of the same size
type Profile struct {
	Title      string
	Width      int
	Height     int
	Image      []float64
	Background []float64
	RMS        []float64 // optional
	Mask       []bool    // optional, true=skip pixel
}

// Direction of a cut through the image
type Axis int

const (
	AxisRow    Axis = iota // cut along a row, varying x
	AxisColumn             // cut along a column, varying y
)

func (a Axis) String() string {
	if a == AxisColumn {
		return "column"
	}
	return "row"
}

var (
	imageColor      = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	backgroundColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	rmsColor        = color.RGBA{R: 30, G: 60, B: 200, A: 255}
)

type series struct {
	label string
	pts   plotter.XYs
	color color.Color
	dash  bool
}

// Collects the unmasked finite values along a cut. Offset is the row for AxisRow and the column for AxisColumn
func (p *Profile) points(values []float64, axis Axis, offset int, scale float64) plotter.XYs {
	n, stride, start := p.Width, 1, offset*p.Width
	if axis == AxisColumn {
		n, stride, start = p.Height, p.Width, offset
	}
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		idx := start + i*stride
		if p.Mask != nil && p.Mask[idx] {
			continue
		}
		v := values[idx]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: v * scale})
	}
	return pts
}

// Adds the background plus or minus the given multiple of the noise
func (p *Profile) bandPoints(axis Axis, offset int, sigmas float64) plotter.XYs {
	band := make([]float64, len(p.Background))
	for i, b := range p.Background {
		band[i] = b + sigmas*p.RMS[i]
	}
	return p.points(band, axis, offset, 1)
}

// Saves a line plot of the image, background and noise band along the given cut.
// The format follows the file suffix, e.g. .png or .svg
func (p *Profile) Save(fileName string, axis Axis, offset int) error {
	limit := p.Height
	if axis == AxisColumn {
		limit = p.Width
	}
	if offset < 0 || offset >= limit {
		return fmt.Errorf("%v %d outside %dx%d image", axis, offset, p.Width, p.Height)
	}
	if len(p.Image) != p.Width*p.Height || len(p.Background) != len(p.Image) {
		return fmt.Errorf("profile data does not match %dx%d image", p.Width, p.Height)
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s %v %d", p.Title, axis, offset)
	pl.X.Label.Text = "Pixel"
	pl.Y.Label.Text = "Value"

	lines := []series{
		{"image", p.points(p.Image, axis, offset, 1), imageColor, false},
		{"background", p.points(p.Background, axis, offset, 1), backgroundColor, false},
	}
	if len(p.RMS) == len(p.Image) {
		lines = append(lines,
			series{"background+3 rms", p.bandPoints(axis, offset, 3), rmsColor, true},
			series{"background-3 rms", p.bandPoints(axis, offset, -3), rmsColor, true},
		)
	}

	for _, s := range lines {
		if len(s.pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return err
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		if s.dash {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		pl.Add(line)
		pl.Legend.Add(s.label, line)
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	if err := pl.Save(10*vg.Inch, 4*vg.Inch, fileName); err != nil {
		return fmt.Errorf("save %v profile: %w", axis, err)
	}
	return nil
}
