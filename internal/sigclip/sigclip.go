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

// Package sigclip implements iterative sigma clipping around the median.
package sigclip

import (
	"math"

	"github.com/mlnoga/skymesh/internal/masked"
)

// An iterative sigma clipper. Each iteration computes the median and the
// population standard deviation of the unmasked values, and masks every value
// deviating from the median by strictly more than Sigma standard deviations.
type Clipper struct {
	Sigma    float64 // clipping threshold in standard deviations
	MaxIters int     // maximum number of iterations, 0=iterate until no more values are clipped
}

// Creates a new sigma clipper with given threshold and iteration limit (0=unbounded)
func NewClipper(sigma float64, maxIters int) *Clipper {
	return &Clipper{Sigma: sigma, MaxIters: maxIters}
}

// Returns a new mask for the given values, which extends the given mask with
// non-finite values and statistical outliers. Does not modify its arguments.
func (c *Clipper) Clip(values []float64, mask []bool) []bool {
	out, _ := c.ClipTrace(values, mask, nil)
	return out
}

// Like Clip, but also appends the number of masked values after each iteration
// to the given trace, and returns it. The counts are non-decreasing.
func (c *Clipper) ClipTrace(values []float64, mask []bool, trace []int) (out []bool, counts []int) {
	out = make([]bool, len(values))
	numMasked := 0
	for i, v := range values {
		if (mask != nil && mask[i]) || math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = true
			numMasked++
		}
	}
	counts = trace

	buffer := make([]float64, 0, len(values)-numMasked)
	for iter := 0; c.MaxIters <= 0 || iter < c.MaxIters; iter++ {
		var s masked.Summary
		s, buffer = masked.Summarize(values, out, buffer)
		if s.N == 0 {
			break
		}

		bound := c.Sigma * s.StdDev
		rejected := 0
		for i, v := range values {
			if out[i] {
				continue
			}
			if math.Abs(v-s.Median) > bound {
				out[i] = true
				rejected++
			}
		}
		numMasked += rejected
		counts = append(counts, numMasked)

		// once converged, further iterations cannot change the mask
		if rejected == 0 {
			break
		}
	}
	return out, counts
}
