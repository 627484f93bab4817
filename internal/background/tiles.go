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

// Padded image data rearranged into tiles. The pixels of each tile are stored
// contiguously, tile after tile in row-major tile order.
type TileGrid struct {
	Rows   int       // number of tile rows
	Cols   int       // number of tile columns
	Box    Shape     // tile size
	Values []float64 // Rows*Cols*Box.H*Box.W values
	Mask   []bool    // same layout as Values
}

// Rearranges padded data into tiles of the given box size. Image dimensions must be
// multiples of the box size
func NewTileGrid(p *Padded, box Shape) *TileGrid {
	t := &TileGrid{
		Rows:   p.Height / box.H,
		Cols:   p.Width / box.W,
		Box:    box,
		Values: make([]float64, len(p.Data)),
		Mask:   make([]bool, len(p.Data)),
	}
	for r := 0; r < p.Height; r++ {
		for c := 0; c < p.Width; c++ {
			tile, offset := t.TileIndex(r, c)
			i := tile*t.TileSize() + offset
			t.Values[i] = p.Data[r*p.Width+c]
			t.Mask[i] = p.Mask[r*p.Width+c]
		}
	}
	return t
}

// Number of pixels per tile
func (t *TileGrid) TileSize() int { return t.Box.H * t.Box.W }

// Number of tiles
func (t *TileGrid) NumTiles() int { return t.Rows * t.Cols }

// Maps a padded image pixel to its flat tile index and the offset inside the tile
func (t *TileGrid) TileIndex(row, col int) (tile, offset int) {
	tile = (row/t.Box.H)*t.Cols + col/t.Box.W
	offset = (row%t.Box.H)*t.Box.W + col%t.Box.W
	return tile, offset
}

// Maps a flat tile index and the offset inside the tile back to the padded image pixel.
// Inverse of TileIndex
func (t *TileGrid) PixelIndex(tile, offset int) (row, col int) {
	row = (tile/t.Cols)*t.Box.H + offset/t.Box.W
	col = (tile%t.Cols)*t.Box.W + offset%t.Box.W
	return row, col
}

// Returns the values and mask of the given tile. The slices alias the grid
func (t *TileGrid) Tile(tile int) (values []float64, mask []bool) {
	n := t.TileSize()
	return t.Values[tile*n : (tile+1)*n], t.Mask[tile*n : (tile+1)*n]
}
