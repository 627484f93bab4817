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
	"bufio"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"
)

// Write a grayscale FITS image to JPG, using the given min, max and gamma.
func (f *Image) WriteMonoJPGToFile(fileName string, min, max, gamma float32, quality int) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := f.WriteMonoJPG(writer, min, max, gamma, quality); err != nil {
		return err
	}
	return writer.Flush()
}

// Write a grayscale FITS image to JPG, using the given min, max and gamma.
func (f *Image) WriteMonoJPG(writer io.Writer, min, max, gamma float32, quality int) error {
	img := f.toGray(min, max, gamma)
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}

// Converts the image to 8-bit grayscale, mapping [min,max] to [0,1] before gamma
func (f *Image) toGray(min, max, gamma float32) *image.Gray {
	width, height := f.Width(), f.Height()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		yoffset := y * width
		for x := 0; x < width; x++ {
			gray := normalizePixel(f.Data[yoffset+x], min, max, gamma)
			img.SetGray(x, y, color.Gray{uint8(gray * 255)})
		}
	}
	return img
}

// Maps a pixel value from [min,max] to [0,1] and applies gamma. NaNs map to zero
func normalizePixel(v, min, max, gamma float32) float32 {
	scale := float32(1)
	if max > min {
		scale = 1 / (max - min)
	}
	v = (v - min) * scale
	// replace NaNs with zeros for export, else JPG output breaks
	if math.IsNaN(float64(v)) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if gamma != 1 {
		v = float32(math.Pow(float64(v), float64(1/gamma)))
	}
	return v
}
