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

package background

import (
	"fmt"
	"math"

	"github.com/mlnoga/skymesh/internal/masked"
)

// Enumerated type for per-tile background estimators
type Method int

const (
	MethodSExtractor   Method = iota // 2.5*median - 1.5*mean for nearly symmetric tiles, else median
	MethodMean                       // mean of unclipped pixels
	MethodMedian                     // median of unclipped pixels
	MethodModeEstimate               // 3*median - 2*mean, Pearson's mode estimate
)

var methodNames = map[Method]string{
	MethodSExtractor:   "sextractor",
	MethodMean:         "mean",
	MethodMedian:       "median",
	MethodModeEstimate: "mode_estimate",
}

// Maximum |mean-median|/std for which the SExtractor estimator uses the mode
// approximation instead of the median
const sextractorSkewLimit = 0.3

// Parses a method name. The empty string selects the default, sextractor
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodSExtractor, nil
	}
	for m, name := range methodNames {
		if s == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: method \"%s\" is not defined", ErrInvalidConfiguration, s)
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Reduces the statistics of one tile to a background value. NaN for empty tiles
func (m Method) Estimate(s masked.Summary) float64 {
	switch m {
	case MethodMean:
		return s.Mean
	case MethodMedian:
		return s.Median
	case MethodModeEstimate:
		return 3*s.Median - 2*s.Mean
	case MethodSExtractor:
		// zero spread means mean==median, where the median is exact
		if s.StdDev > 0 && math.Abs(s.Mean-s.Median)/s.StdDev < sextractorSkewLimit {
			return 2.5*s.Median - 1.5*s.Mean
		}
		return s.Median
	default:
		return math.NaN()
	}
}
