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
	"bytes"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T) *Image {
	data := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	f, err := NewImageFromFloat64(3, data, 4, 3)
	require.NoError(t, err)
	return f
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := testImage(t)
	f.Exposure = 120
	f.Header.Strings["BKGMETH"] = "sextractor"
	f.Header.Floats["BKGMED"] = 1234.5
	f.Header.Floats["BKGBIG"] = 1e9
	f.Header.Ints["BKGBOXH"] = 64
	f.Header.History = append(f.Header.History, "background subtracted")

	buf := bytes.Buffer{}
	require.NoError(t, f.Write(&buf))
	assert.Equal(t, 0, buf.Len()%fitsBlockSize)

	g := NewImage()
	require.NoError(t, g.Read(&buf, true, io.Discard))
	assert.Equal(t, []int32{4, 3}, g.Naxisn)
	assert.Equal(t, f.Data, g.Data)
	assert.Equal(t, float32(120), g.Exposure)
	assert.Equal(t, "sextractor", g.Header.Strings["BKGMETH"])
	assert.Equal(t, float32(1234.5), g.Header.Floats["BKGMED"])
	assert.Equal(t, float32(1e9), g.Header.Floats["BKGBIG"])
	assert.Equal(t, int32(64), g.Header.Ints["BKGBOXH"])
	assert.Equal(t, []string{"background subtracted"}, g.Header.History)
}

func TestWriteReplacesNaN(t *testing.T) {
	f := testImage(t)
	f.Data[5] = float32(math.NaN())
	buf := bytes.Buffer{}
	require.NoError(t, f.Write(&buf))
	g := NewImage()
	require.NoError(t, g.Read(&buf, true, io.Discard))
	assert.Equal(t, float32(0), g.Data[5])
}

func TestGzipFileRoundTrip(t *testing.T) {
	f := testImage(t)
	fileName := filepath.Join(t.TempDir(), "test.fits.gz")
	require.NoError(t, f.WriteFile(fileName))
	g, err := NewImageFromFile(fileName, 7, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 7, g.ID)
	assert.Equal(t, f.Data, g.Data)
}

func TestTIFFRoundTrip(t *testing.T) {
	f := testImage(t)
	fileName := filepath.Join(t.TempDir(), "test.tif")
	require.NoError(t, f.WriteMonoTIFF16ToFile(fileName, 0, 11, 1))
	g, err := NewImageFromFile(fileName, 0, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 3}, g.Naxisn)
	assert.Equal(t, float32(0), g.Data[0])
	assert.InDelta(t, 65535, g.Data[11], 1)
	for i := 1; i < len(g.Data); i++ {
		assert.Greater(t, g.Data[i], g.Data[i-1])
	}
}

func TestPNGMask(t *testing.T) {
	f := testImage(t)
	for i := range f.Data {
		f.Data[i] = float32(i % 2)
	}
	fileName := filepath.Join(t.TempDir(), "mask.png")
	file, err := os.Create(fileName)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, f.toGray(0, 1, 1)))
	require.NoError(t, file.Close())

	mask, err := ReadMaskFile(fileName, 4, 3, io.Discard)
	require.NoError(t, err)
	for i, m := range mask {
		assert.Equal(t, i%2 == 1, m, "pixel %d", i)
	}

	_, err = ReadMaskFile(fileName, 3, 4, io.Discard)
	assert.Error(t, err)
}

func TestToMask(t *testing.T) {
	f := NewImageFromNaxisn([]int32{4, 1}, []float32{0, 1, -2, float32(math.NaN())})
	assert.Equal(t, []bool{false, true, true, true}, f.ToMask())
}

func TestToMono(t *testing.T) {
	f := NewImageFromNaxisn([]int32{2, 1, 3}, []float32{1, 0, 1, 0, 1, 0})
	require.NoError(t, f.ToMono())
	assert.Equal(t, []int32{2, 1}, f.Naxisn)
	assert.InDelta(t, 0.2126+0.7152+0.0722, f.Data[0], 1e-6)
	assert.InDelta(t, 0, f.Data[1], 1e-6)

	f = NewImageFromNaxisn([]int32{2, 1, 2}, nil)
	assert.Error(t, f.ToMono())
}

func TestSubtract(t *testing.T) {
	f := testImage(t)
	values := make([]float64, 12)
	for i := range values {
		values[i] = float64(i) - 1
	}
	mask := make([]bool, 12)
	mask[4] = true
	require.NoError(t, f.Subtract(values, mask, 100))
	for i, v := range f.Data {
		if i == 4 {
			assert.True(t, math.IsNaN(float64(v)))
		} else {
			assert.Equal(t, float32(101), v)
		}
	}
	assert.Error(t, f.Subtract(values[:3], nil, 0))
}

func TestFalseColorEndpoints(t *testing.T) {
	lo, hi := falseColor(0), falseColor(1)
	assert.Equal(t, falseColorStops[0], lo)
	assert.Equal(t, falseColorStops[len(falseColorStops)-1], hi)
	_, _, l0 := lo.Hcl()
	_, _, l1 := hi.Hcl()
	assert.Less(t, l0, l1)
}

func TestFalseColorPreviewFile(t *testing.T) {
	f := testImage(t)
	for _, name := range []string{"preview.jpg", "preview.png"} {
		fileName := filepath.Join(t.TempDir(), name)
		require.NoError(t, f.WriteFalseColorToFile(fileName, 0, 11, 1, 90))
		g, err := NewImageFromFile(fileName, 0, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, []int32{4, 3}, g.Naxisn)
	}
}
