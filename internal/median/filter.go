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

// Package median provides sliding window median filters over 2D grids.
package median

import (
	"math"

	"github.com/mlnoga/skymesh/internal/masked"
	"github.com/mlnoga/skymesh/internal/qsort"
)

// Reduces the values in a filter window to a single value.
// The window may be reordered in place
type Reducer func(window []float64) float64

// Applies the reducer over a sliding window of fh rows and fw columns to src,
// a 2D array with given width, and stores the results in dst.
// Window cells outside the array read as NaN. The window for a pixel (y,x) covers
// rows y-fh/2 ... y-fh/2+fh-1, and likewise for columns.
func GenericFilter(dst, src []float64, width int, fh, fw int, reduce Reducer) {
	height := len(src) / width
	window := make([]float64, 0, fh*fw)
	nan := math.NaN()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			window = window[:0]
			for wy := y - fh/2; wy < y-fh/2+fh; wy++ {
				for wx := x - fw/2; wx < x-fw/2+fw; wx++ {
					if wy >= 0 && wy < height && wx >= 0 && wx < width {
						window = append(window, src[wy*width+wx])
					} else {
						window = append(window, nan)
					}
				}
			}
			dst[y*width+x] = reduce(window)
		}
	}
}

// Calculates the median of the finite values in the window, or NaN if there are none.
// Reorders the window in place
func NaNMedian(window []float64) float64 {
	n := 0
	for _, v := range window {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			window[n] = v
			n++
		}
	}
	return MedianFloat64(window[:n])
}

// Calculates the median of a float64 slice
// Modifies the elements in place
// Array must not contain IEEE NaN
func MedianFloat64(a []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	if len(a) == 9 {
		return MedianFloat64Slice9(a)
	}
	return qsort.QSelectMedianFloat64(a)
}

// A median filter over mesh grids which ignores NaNs and cells outside the grid
type Filter struct{}

// Returns a new grid with the NaN-ignoring median filter of size fh x fw applied to g.
// The mask of g is not used and not copied; masked cells are expected to carry NaN.
func (Filter) Filter(g *masked.Grid, fh, fw int) *masked.Grid {
	res := masked.NewGrid(g.Width, g.Height)
	GenericFilter(res.Data, g.Data, g.Width, fh, fw, NaNMedian)
	return res
}
