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

package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *Profile {
	w, h := 6, 4
	p := &Profile{Title: "test", Width: w, Height: h,
		Image: make([]float64, w*h), Background: make([]float64, w*h), RMS: make([]float64, w*h), Mask: make([]bool, w*h)}
	for i := range p.Image {
		p.Image[i] = float64(i % 5)
		p.Background[i] = 2
		p.RMS[i] = 0.5
	}
	p.Mask[7] = true
	return p
}

func TestPointsSkipMasked(t *testing.T) {
	p := testProfile()
	row := p.points(p.Image, AxisRow, 1, 1)
	assert.Len(t, row, 5)
	assert.Equal(t, 0.0, row[0].X)
	assert.Equal(t, 2.0, row[1].X)

	col := p.points(p.Image, AxisColumn, 1, 1)
	assert.Len(t, col, 3)
	assert.Equal(t, 2.0, col[1].X)

	band := p.bandPoints(AxisRow, 0, 3)
	assert.Equal(t, 3.5, band[0].Y)
}

func TestSaveProfiles(t *testing.T) {
	p := testProfile()
	dir := t.TempDir()
	for _, axis := range []Axis{AxisRow, AxisColumn} {
		fileName := filepath.Join(dir, axis.String()+".png")
		require.NoError(t, p.Save(fileName, axis, 2))
		st, err := os.Stat(fileName)
		require.NoError(t, err)
		assert.Greater(t, st.Size(), int64(0))
	}
	assert.Error(t, p.Save(filepath.Join(dir, "bad.png"), AxisRow, 4))
}
