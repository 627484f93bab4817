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

// Expands a mesh to a full resolution map of the original image size. NaN cells are
// filled from their neighbors first. If no cell is usable, the map is all NaN.
// Pixels under the user mask are set to zero, and the map carries the user mask.
func expandMesh(mesh *masked.Grid, p *Padded, userMask []bool, ip Interpolator) (*masked.Grid, error) {
	filled := mesh.Clone()
	filled.Mask = nil
	fillNaNCells(filled)

	var full *masked.Grid
	if filled.NumFinite() == 0 {
		full = masked.NewGrid(p.Width, p.Height)
		nan := math.NaN()
		for i := range full.Data {
			full.Data[i] = nan
		}
	} else {
		var err error
		full, err = ip.Resize(filled, p.Height, p.Width)
		if err != nil {
			return nil, fmt.Errorf("resizing %dx%d mesh to %dx%d: %w", filled.Width, filled.Height, p.Width, p.Height, err)
		}
		if full.Width != p.Width || full.Height != p.Height {
			return nil, fmt.Errorf("interpolator returned %dx%d, want %dx%d", full.Width, full.Height, p.Width, p.Height)
		}
	}

	if p.Applied {
		full = full.Crop(p.OrigWidth, p.OrigHeight)
	}
	full.Mask = nil
	if userMask != nil {
		full.Mask = append([]bool(nil), userMask...)
		for i, m := range userMask {
			if m {
				full.Data[i] = 0
			}
		}
	}
	return full, nil
}
