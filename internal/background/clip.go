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

// Runs f for every tile row, with at most maxThreads rows in flight
func forEachTileRow(rows, maxThreads int, f func(row int)) {
	limiter := make(chan bool, maxThreads)
	for r := 0; r < rows; r++ {
		limiter <- true
		go func(r int) {
			defer func() { <-limiter }()
			f(r)
		}(r)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
}

// Sigma clips every tile independently. Returns a new tile grid sharing the values
// of the input, with a new mask including the outliers. Tiles are processed
// concurrently, so the clipper must be safe for concurrent use if maxThreads>1
func clipTiles(t *TileGrid, c Clipper, maxThreads int) *TileGrid {
	res := &TileGrid{
		Rows:   t.Rows,
		Cols:   t.Cols,
		Box:    t.Box,
		Values: t.Values,
		Mask:   make([]bool, len(t.Mask)),
	}
	n := t.TileSize()
	forEachTileRow(t.Rows, maxThreads, func(row int) {
		for col := 0; col < t.Cols; col++ {
			tile := row*t.Cols + col
			values, mask := t.Tile(tile)
			copy(res.Mask[tile*n:(tile+1)*n], c.Clip(values, mask))
		}
	})
	return res
}
