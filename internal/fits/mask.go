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

package fits

import (
	"fmt"
	"io"
)

// Loads a mask from an image file of the given size. Non-zero and NaN pixels are masked
func ReadMaskFile(fileName string, width, height int, logWriter io.Writer) ([]bool, error) {
	m, err := NewImageFromFile(fileName, -1, logWriter)
	if err != nil {
		return nil, err
	}
	if err := m.ToMono(); err != nil {
		return nil, err
	}
	if m.Width() != width || m.Height() != height {
		return nil, fmt.Errorf("mask %s is %s pixels, image is %dx%d", fileName, m.DimensionsToString(), width, height)
	}
	mask := m.ToMask()
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	fmt.Fprintf(logWriter, "Loaded mask with %d of %d pixels set from %s\n", n, len(mask), fileName)
	return mask, nil
}
