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

	"github.com/mlnoga/skymesh/internal/masked"
	"github.com/mlnoga/skymesh/internal/median"
)

// Calculates mean, median and standard deviation of the unmasked pixels of every tile
func summarizeTiles(t *TileGrid, maxThreads int) []masked.Summary {
	res := make([]masked.Summary, t.NumTiles())
	forEachTileRow(t.Rows, maxThreads, func(row int) {
		buffer := make([]float64, 0, t.TileSize()) // reuse for all tiles in the row
		for col := 0; col < t.Cols; col++ {
			tile := row*t.Cols + col
			values, mask := t.Tile(tile)
			res[tile], buffer = masked.Summarize(values, mask, buffer)
		}
	})
	return res
}

// Builds a mesh grid by applying f to the statistics of each tile
func meshFromSummaries(rows, cols int, sums []masked.Summary, f func(s masked.Summary) float64) *masked.Grid {
	g := masked.NewGrid(cols, rows)
	for i, s := range sums {
		g.Data[i] = f(s)
	}
	return g
}

// Background mesh with the given estimator. Fully masked tiles are NaN
func backgroundMesh(rows, cols int, sums []masked.Summary, m Method) *masked.Grid {
	return meshFromSummaries(rows, cols, sums, m.Estimate)
}

// RMS mesh, the population standard deviation of each tile. Fully masked tiles are NaN
func rmsMesh(rows, cols int, sums []masked.Summary) *masked.Grid {
	return meshFromSummaries(rows, cols, sums, func(s masked.Summary) float64 { return s.StdDev })
}

// Replaces NaN cells of the mesh with the median of their valid 8-neighbors, in place.
// Cells with the most valid neighbors are filled first, down to cells with a single one,
// repeating each stage until nothing changes. Returns the number of cells filled
func fillNaNCells(g *masked.Grid) (filled int) {
	for neighbors := 8; neighbors >= 1; neighbors-- {
		for {
			changed := interpolateNaNCells(g, neighbors)
			filled += changed
			if changed == 0 {
				break
			}
		}
	}
	return filled
}

var neighborOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Single pass over the grid, replacing NaN cells with at least the given number of
// valid neighbors by the median of those neighbors
func interpolateNaNCells(g *masked.Grid, neighbors int) (numChanges int) {
	temp := make([]float64, 0, 8)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if !math.IsNaN(g.At(y, x)) {
				continue
			}
			temp = temp[:0]
			for _, off := range neighborOffsets {
				y2, x2 := y+off[0], x+off[1]
				if y2 >= 0 && y2 < g.Height && x2 >= 0 && x2 < g.Width {
					if p := g.At(y2, x2); !math.IsNaN(p) {
						temp = append(temp, p)
					}
				}
			}
			if len(temp) >= neighbors {
				g.Set(y, x, median.MedianFloat64(temp))
				numChanges++
			}
		}
	}
	return numChanges
}
