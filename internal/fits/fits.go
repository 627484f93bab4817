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

// Package fits reads and writes monochrome astronomical images as FITS, and
// converts them from and to TIFF, PNG and JPEG.
package fits

import (
	"fmt"
	"math"
	"strings"
)

// A FITS image.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0 for input files, negative for masks
	FileName string // Original file name, if any, for log output.

	Header Header  // The header with all keys, values, comments, history entries etc.
	Bitpix int32   // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float32 // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float32 // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int32 // Axis dimensions. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32   // Number of pixels in the image. Product of Naxisn[]

	Data []float32 // The image data

	Exposure float32 // Image exposure in seconds
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header: NewHeader(),
		Bscale: 1,
	}
}

// Creates a FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float32) *Image {
	numPixels := int32(1)
	for _, naxis := range naxisn {
		numPixels *= naxis
	}
	if data == nil {
		data = make([]float32, numPixels)
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: -32,
		Bscale: 1,
		Naxisn: append([]int32(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
	}
}

// Creates a FITS image with the metadata of the given image. New data array will be allocated
func NewImageFromImage(img *Image) *Image {
	return &Image{
		ID:       img.ID,
		FileName: img.FileName,
		Header:   img.Header.Clone(),
		Bitpix:   -32,
		Bscale:   1,
		Naxisn:   append([]int32(nil), img.Naxisn...), // clone slice
		Pixels:   img.Pixels,
		Data:     make([]float32, img.Pixels),
		Exposure: img.Exposure,
	}
}

// Creates a 2D FITS image of the given size from float64 data in row-major order
func NewImageFromFloat64(id int, data []float64, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return nil, fmt.Errorf("%d: cannot create %dx%d image from %d values", id, width, height, len(data))
	}
	f := NewImageFromNaxisn([]int32{int32(width), int32(height)}, nil)
	f.ID = id
	for i, v := range data {
		f.Data[i] = float32(v)
	}
	return f, nil
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float32
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:    make(map[string]bool),
		Ints:     make(map[string]int32),
		Floats:   make(map[string]float32),
		Strings:  make(map[string]string),
		Dates:    make(map[string]string),
		Comments: make([]string, 0),
		History:  make([]string, 0),
		End:      false,
	}
}

// Returns a deep copy of the header
func (h Header) Clone() Header {
	c := NewHeader()
	for k, v := range h.Bools {
		c.Bools[k] = v
	}
	for k, v := range h.Ints {
		c.Ints[k] = v
	}
	for k, v := range h.Floats {
		c.Floats[k] = v
	}
	for k, v := range h.Strings {
		c.Strings[k] = v
	}
	for k, v := range h.Dates {
		c.Dates[k] = v
	}
	c.Comments = append(c.Comments, h.Comments...)
	c.History = append(c.History, h.History...)
	return c
}

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80  // Line size of a FITS header

func (f *Image) DimensionsToString() string {
	b := strings.Builder{}
	for i, naxis := range f.Naxisn {
		if i > 0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Width of the image in pixels
func (f *Image) Width() int { return int(f.Naxisn[0]) }

// Height of the image in pixels, 1 for one-dimensional images
func (f *Image) Height() int {
	if len(f.Naxisn) < 2 {
		return 1
	}
	return int(f.Naxisn[1])
}

// Returns true for single-channel images
func (f *Image) IsMono() bool {
	return len(f.Naxisn) == 2 || (len(f.Naxisn) == 3 && f.Naxisn[2] == 1)
}

// Converts a three-channel image into a single luminance channel with Rec.709 weights.
// Single-channel images are left unchanged
func (f *Image) ToMono() error {
	if f.IsMono() {
		if len(f.Naxisn) == 3 {
			f.Naxisn = f.Naxisn[:2]
		}
		return nil
	}
	if len(f.Naxisn) != 3 || f.Naxisn[2] != 3 {
		return fmt.Errorf("%d: cannot convert %s pixel image to mono", f.ID, f.DimensionsToString())
	}
	l := len(f.Data) / 3
	mono := make([]float32, l)
	for i := range mono {
		mono[i] = 0.2126*f.Data[i] + 0.7152*f.Data[i+l] + 0.0722*f.Data[i+2*l]
	}
	f.Data, f.Naxisn, f.Pixels = mono, f.Naxisn[:2], int32(l)
	return nil
}

// Returns the image data as float64 values
func (f *Image) Float64Data() []float64 {
	res := make([]float64, len(f.Data))
	for i, v := range f.Data {
		res[i] = float64(v)
	}
	return res
}

// Interprets the image as a mask. Non-zero and NaN pixels are masked
func (f *Image) ToMask() []bool {
	res := make([]bool, len(f.Data))
	for i, v := range f.Data {
		res[i] = v != 0 || math.IsNaN(float64(v))
	}
	return res
}

// Returns the minimum and maximum finite pixel values, or 0,0 if there are none
func (f *Image) MinMax() (min, max float32) {
	min, max = float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, v := range f.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min > max {
		return 0, 0
	}
	return min, max
}
