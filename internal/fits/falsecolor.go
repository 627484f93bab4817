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
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color stops of a perceptually ordered dark-to-bright palette
var falseColorStops = []colorful.Color{
	colorful.LinearRgb(0.000, 0.000, 0.010),
	colorful.LinearRgb(0.040, 0.010, 0.160),
	colorful.LinearRgb(0.260, 0.020, 0.230),
	colorful.LinearRgb(0.730, 0.070, 0.140),
	colorful.LinearRgb(0.990, 0.350, 0.150),
	colorful.LinearRgb(0.970, 0.970, 0.520),
}

// Maps a value in [0,1] onto the false color palette, blending neighboring stops in HCL space
func falseColor(v float32) colorful.Color {
	if v <= 0 {
		return falseColorStops[0]
	}
	scaled := float64(v) * float64(len(falseColorStops)-1)
	i := int(scaled)
	if i >= len(falseColorStops)-1 {
		return falseColorStops[len(falseColorStops)-1]
	}
	return falseColorStops[i].BlendHcl(falseColorStops[i+1], scaled-float64(i)).Clamped()
}

// Renders a grayscale image in false colors, mapping [min,max] to the palette
func (f *Image) ToFalseColor(min, max, gamma float32) *image.RGBA {
	width, height := f.Width(), f.Height()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := normalizePixel(f.Data[y*width+x], min, max, gamma)
			img.Set(x, y, falseColor(v))
		}
	}
	return img
}

// Writes a false color preview of a grayscale image to JPEG, or PNG if the file name ends in .png
func (f *Image) WriteFalseColorToFile(fileName string, min, max, gamma float32, quality int) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if strings.HasSuffix(strings.ToLower(fileName), ".png") {
		err = png.Encode(writer, f.ToFalseColor(min, max, gamma))
	} else {
		err = f.WriteFalseColorJPG(writer, min, max, gamma, quality)
	}
	if err != nil {
		return err
	}
	return writer.Flush()
}

// Writes a false color preview of a grayscale image to JPEG
func (f *Image) WriteFalseColorJPG(writer io.Writer, min, max, gamma float32, quality int) error {
	return jpeg.Encode(writer, f.ToFalseColor(min, max, gamma), &jpeg.Options{Quality: quality})
}
