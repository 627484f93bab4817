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

import "math"

// An image and mask, padded at the bottom and right to a multiple of the box size
type Padded struct {
	Data       []float64 // padded image data, NaN in the padding
	Mask       []bool    // padded mask, always true in the padding
	Width      int       // padded width
	Height     int       // padded height
	OrigWidth  int       // original width
	OrigHeight int       // original height
	Applied    bool      // true if padding was added
}

// Pads image data of given width and height with NaN rows at the bottom and NaN
// columns at the right, so that both dimensions are integer multiples of the box.
// The mask, if any, is padded with false and combined with the NaN positions of
// the padded image. Without padding, the mask is the given one or all false.
// The inputs are copied, never modified.
func Pad(data []float64, mask []bool, width, height int, box Shape) *Padded {
	yExtra, xExtra := height%box.H, width%box.W
	p := &Padded{OrigWidth: width, OrigHeight: height}

	if yExtra == 0 && xExtra == 0 {
		p.Width, p.Height = width, height
		p.Data = append([]float64(nil), data...)
		p.Mask = make([]bool, len(data))
		if mask != nil {
			copy(p.Mask, mask)
		}
		return p
	}

	yPad, xPad := 0, 0
	if yExtra > 0 {
		yPad = box.H - yExtra
	}
	if xExtra > 0 {
		xPad = box.W - xExtra
	}
	p.Width, p.Height, p.Applied = width+xPad, height+yPad, true
	p.Data = make([]float64, p.Width*p.Height)
	p.Mask = make([]bool, p.Width*p.Height)

	nan := math.NaN()
	for y := 0; y < p.Height; y++ {
		row := p.Data[y*p.Width : (y+1)*p.Width]
		if y < height {
			copy(row, data[y*width:(y+1)*width])
			for x := width; x < p.Width; x++ {
				row[x] = nan
			}
		} else {
			for x := range row {
				row[x] = nan
			}
		}
	}
	for i, v := range p.Data {
		p.Mask[i] = math.IsNaN(v)
	}
	if mask != nil {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if mask[y*width+x] {
					p.Mask[y*p.Width+x] = true
				}
			}
		}
	}
	return p
}
