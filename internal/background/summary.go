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
	"math"

	"github.com/montanaflynn/stats"

	"github.com/mlnoga/skymesh/internal/masked"
)

// Median of the finite values of g which are not under the given mask.
// Returns ErrNoData if there are none
func maskedMedian(g *masked.Grid, mask []bool) (float64, error) {
	data := make(stats.Float64Data, 0, len(g.Data))
	for i, v := range g.Data {
		if (mask != nil && mask[i]) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data = append(data, v)
	}
	if len(data) == 0 {
		return math.NaN(), ErrNoData
	}
	return stats.Median(data)
}
