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

// Package spline upsamples coarse grids to full resolution with tensor product
// cubic spline interpolation.
package spline

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/mlnoga/skymesh/internal/masked"
)

// Interpolates exactly through every grid sample with cubic polynomial pieces along
// each axis (not-a-knot end conditions, as with an unsmoothed bicubic B-spline).
// Axes with fewer than four samples use the highest degree their samples support.
type Bicubic struct{}

// Fits a surface through the cell centers of g, placed at integer positions
// 0...n-1 along each axis, and evaluates it on height x width points evenly
// spaced from -0.5 to n-0.5. Points outside the sample range take the value
// at the nearest boundary sample position.
func (Bicubic) Resize(g *masked.Grid, height, width int) (*masked.Grid, error) {
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("cannot resize empty %dx%d grid", g.Width, g.Height)
	}
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	xs, ys := Arange(g.Width), Arange(g.Height)
	xx := Clamp(Linspace(-0.5, float64(g.Width)-0.5, width), 0, float64(g.Width-1))
	yy := Clamp(Linspace(-0.5, float64(g.Height)-0.5, height), 0, float64(g.Height-1))

	// interpolate along each grid row first
	rows := make([]float64, g.Height*width)
	for r := 0; r < g.Height; r++ {
		p, err := Fit(xs, g.Data[r*g.Width:(r+1)*g.Width])
		if err != nil {
			return nil, fmt.Errorf("row %d: %s", r, err.Error())
		}
		for j, x := range xx {
			rows[r*width+j] = p.Predict(x)
		}
	}

	// then along each output column
	res := masked.NewGrid(width, height)
	column := make([]float64, g.Height)
	for j := 0; j < width; j++ {
		for r := range column {
			column[r] = rows[r*width+j]
		}
		p, err := Fit(ys, column)
		if err != nil {
			return nil, fmt.Errorf("column %d: %s", j, err.Error())
		}
		for i, y := range yy {
			res.Data[i*width+j] = p.Predict(y)
		}
	}
	return res, nil
}

// Fits an interpolating predictor of degree min(3, len(xs)-1) through the given samples.
// The xs must be strictly increasing
func Fit(xs, ys []float64) (interp.Predictor, error) {
	switch len(xs) {
	case 0:
		return nil, fmt.Errorf("no samples to fit")
	case 1:
		return interp.Constant(ys[0]), nil
	case 2:
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return nil, err
		}
		return &pl, nil
	case 3:
		return newQuadratic(xs, ys), nil
	default:
		var nak interp.NotAKnotCubic
		if err := nak.Fit(xs, ys); err != nil {
			return nil, err
		}
		return &nak, nil
	}
}

// The parabola through three points, in Lagrange form
type quadratic struct {
	xs [3]float64
	ws [3]float64 // ys divided by the Lagrange denominators
}

func newQuadratic(xs, ys []float64) *quadratic {
	q := &quadratic{}
	copy(q.xs[:], xs)
	for i := 0; i < 3; i++ {
		denom := 1.0
		for j := 0; j < 3; j++ {
			if j != i {
				denom *= xs[i] - xs[j]
			}
		}
		q.ws[i] = ys[i] / denom
	}
	return q
}

func (q *quadratic) Predict(x float64) float64 {
	return q.ws[0]*(x-q.xs[1])*(x-q.xs[2]) +
		q.ws[1]*(x-q.xs[0])*(x-q.xs[2]) +
		q.ws[2]*(x-q.xs[0])*(x-q.xs[1])
}

// Returns 0, 1, ..., n-1
func Arange(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = float64(i)
	}
	return res
}

// Returns n evenly spaced values from start to stop inclusive. For n==1, returns start only
func Linspace(start, stop float64, n int) []float64 {
	res := make([]float64, n)
	if n == 1 {
		res[0] = start
	} else if n > 1 {
		floats.Span(res, start, stop)
	}
	return res
}

// Clamps all values to [lo, hi] in place, and returns the slice
func Clamp(vs []float64, lo, hi float64) []float64 {
	for i, v := range vs {
		if v < lo {
			vs[i] = lo
		} else if v > hi {
			vs[i] = hi
		}
	}
	return vs
}
