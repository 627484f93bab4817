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
	"io"
	"os"

	"golang.org/x/image/tiff"
)

// Write a grayscale FITS image to 16-bit TIFF, using the given min, max and gamma.
func (f *Image) WriteMonoTIFF16ToFile(fileName string, min, max, gamma float32) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := f.WriteMonoTIFF16(writer, min, max, gamma); err != nil {
		return err
	}
	return writer.Flush()
}

// Write a grayscale FITS image to 16-bit TIFF, using the given min, max and gamma.
func (f *Image) WriteMonoTIFF16(writer io.Writer, min, max, gamma float32) error {
	width, height := f.Width(), f.Height()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		yoffset := y * width
		for x := 0; x < width; x++ {
			gray := normalizePixel(f.Data[yoffset+x], min, max, gamma)
			img.SetGray16(x, y, color.Gray16{uint16(gray * 65535)})
		}
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Read a TIFF image into a single-channel FITS image. Color images are
// converted to luminance
func (f *Image) ReadTIFF(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	t, err := tiff.Decode(bufio.NewReader(file))
	if err != nil {
		return err
	}
	f.FileName = fileName
	f.fromGoImage(t, colorModelToBitpix(t.ColorModel()))
	return nil
}

// Copies a golang image into the FITS image as 16-bit luminance values
// (or 8-bit, for 8-bit sources), keeping the header
func (f *Image) fromGoImage(img image.Image, bitpix int32) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	f.Bitpix = bitpix
	f.Naxisn = []int32{int32(width), int32(height)}
	f.Pixels = int32(width * height)
	f.Bzero, f.Bscale = 0, 1
	f.Data = make([]float32, f.Pixels)

	shift := uint(0)
	if bitpix == 8 {
		shift = 8
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			f.Data[y*width+x] = float32(c.Y >> shift)
		}
	}
}

func colorModelToBitpix(m color.Model) int32 {
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.AlphaModel, color.GrayModel:
		return 8
	default:
		return 16
	}
}
