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

package masked

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/skymesh/internal/qsort"
)

// Summary statistics over the unmasked values of a set
type Summary struct {
	N      int     // number of unmasked values
	Mean   float64 // NaN if N==0
	Median float64 // NaN if N==0
	StdDev float64 // population standard deviation (ddof=0), NaN if N==0
}

// Gathers the unmasked values into buffer, which is grown if necessary, and returns it.
// A nil mask selects all values
func Gather(values []float64, mask []bool, buffer []float64) []float64 {
	buffer = buffer[:0]
	for i, v := range values {
		if mask != nil && mask[i] {
			continue
		}
		buffer = append(buffer, v)
	}
	return buffer
}

// Returns the number of unmasked values
func Count(values []float64, mask []bool) int {
	if mask == nil {
		return len(values)
	}
	n := 0
	for _, m := range mask[:len(values)] {
		if !m {
			n++
		}
	}
	return n
}

// Mean of the unmasked values, or NaN if there are none
func Mean(values []float64, mask []bool) float64 {
	buf := Gather(values, mask, nil)
	if len(buf) == 0 {
		return math.NaN()
	}
	return stat.Mean(buf, nil)
}

// Median of the unmasked values, or NaN if there are none. Does not change values
func Median(values []float64, mask []bool) float64 {
	buf := Gather(values, mask, nil)
	if len(buf) == 0 {
		return math.NaN()
	}
	return qsort.QSelectMedianFloat64(buf)
}

// Population variance of the unmasked values, or NaN if there are none
func Var(values []float64, mask []bool) float64 {
	buf := Gather(values, mask, nil)
	if len(buf) == 0 {
		return math.NaN()
	}
	return stat.PopVariance(buf, nil)
}

// Population standard deviation of the unmasked values, or NaN if there are none
func Std(values []float64, mask []bool) float64 {
	return math.Sqrt(Var(values, mask))
}

// Calculates mean, median and standard deviation of the unmasked values in one pass
// over a gathered copy. Uses provided buffer as scratchpad, returns it for reuse
func Summarize(values []float64, mask []bool, buffer []float64) (s Summary, buf []float64) {
	buf = Gather(values, mask, buffer)
	s.N = len(buf)
	if s.N == 0 {
		nan := math.NaN()
		s.Mean, s.Median, s.StdDev = nan, nan, nan
		return s, buf
	}
	s.Mean = stat.Mean(buf, nil)
	s.StdDev = math.Sqrt(stat.PopVariance(buf, nil))
	s.Median = qsort.QSelectMedianFloat64(buf) // reorders buf, so comes last
	return s, buf
}

// Minimum and maximum of the unmasked finite values. Returns NaNs if there are none
func MinMax(values []float64, mask []bool) (min, max float64) {
	buf := Gather(values, mask, nil)
	finite := buf[:0]
	for _, v := range buf {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(finite), floats.Max(finite)
}
