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
	"github.com/disintegration/imaging"
)

// Reads a PNG or JPEG image into a single-channel FITS image. Color images
// are converted to grayscale
func (f *Image) ReadImage(fileName string) error {
	img, err := imaging.Open(fileName)
	if err != nil {
		return err
	}
	f.FileName = fileName
	f.fromGoImage(imaging.Grayscale(img), 8)
	return nil
}
