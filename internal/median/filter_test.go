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

package median

import (
	"math"
	"testing"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/skymesh/internal/masked"
)

func TestMedianFloat64Slice9(t *testing.T) {
	rng := fastrand.RNG{}
	for i := 0; i < 1000; i++ {
		arr := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
		for j := range arr {
			k := rng.Uint32n(uint32(len(arr)))
			arr[j], arr[k] = arr[k], arr[j]
		}
		if m := MedianFloat64Slice9(arr); m != 5 {
			t.Errorf("median9 of permutation=%f; want 5", m)
		}
	}
}

func TestNaNMedian(t *testing.T) {
	nan := math.NaN()
	tcs := []struct {
		In   []float64
		Want float64
	}{
		{[]float64{3, nan, 1, nan, 2}, 2},
		{[]float64{nan, 4, 8, nan}, 6},
		{[]float64{1, 2, 3, 4, 5, 6, 7, 8, 100}, 5},
	}
	for _, tc := range tcs {
		w := append([]float64(nil), tc.In...)
		if got := NaNMedian(w); got != tc.Want {
			t.Errorf("nanmedian(%v)=%f; want %f", tc.In, got, tc.Want)
		}
	}
	if got := NaNMedian([]float64{nan, nan}); !math.IsNaN(got) {
		t.Errorf("nanmedian(all NaN)=%f; want NaN", got)
	}
}

func TestFilterIgnoresOutOfBounds(t *testing.T) {
	// 3x3 grid, corner windows only see 4 cells
	g := &masked.Grid{Width: 3, Height: 3, Data: []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}}
	res := Filter{}.Filter(g, 3, 3)
	want := []float64{
		3, 3.5, 4,
		4.5, 5, 5.5,
		6, 6.5, 7,
	}
	for i, w := range want {
		if res.Data[i] != w {
			t.Errorf("filtered[%d]=%f; want %f", i, res.Data[i], w)
		}
	}
}

func TestFilterIdentity(t *testing.T) {
	g := &masked.Grid{Width: 2, Height: 2, Data: []float64{1, math.NaN(), 3, 4}}
	res := Filter{}.Filter(g, 1, 1)
	if res.Data[0] != 1 || !math.IsNaN(res.Data[1]) || res.Data[2] != 3 || res.Data[3] != 4 {
		t.Errorf("1x1 filter=%v; want unchanged input", res.Data)
	}
}

func TestFilterEvenWindowOffsets(t *testing.T) {
	// a 1x2 window covers the cell itself and its left neighbour
	g := &masked.Grid{Width: 3, Height: 1, Data: []float64{2, 4, 10}}
	res := Filter{}.Filter(g, 1, 2)
	want := []float64{2, 3, 7}
	for i, w := range want {
		if res.Data[i] != w {
			t.Errorf("filtered[%d]=%f; want %f", i, res.Data[i], w)
		}
	}
}

func TestFilterFillsNaNHoles(t *testing.T) {
	nan := math.NaN()
	g := &masked.Grid{Width: 3, Height: 3, Data: []float64{
		1, 1, 1,
		1, nan, 1,
		1, 1, 1,
	}}
	res := Filter{}.Filter(g, 3, 3)
	if res.Data[4] != 1 {
		t.Errorf("filtered center=%f; want 1", res.Data[4])
	}
	if !math.IsNaN(g.Data[4]) {
		t.Errorf("input modified")
	}
}
