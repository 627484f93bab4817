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

package qsort

import (
	"testing"

	"github.com/valyala/fastrand"
)

func TestMedian(t *testing.T) {
	rng := fastrand.RNG{}
	for i := 1; i < 1000; i++ {
		// prepare array of given length with a random permutation of 1..n
		arr := make([]float64, i)
		for j := 0; j < len(arr); j++ {
			arr[j] = float64(j + 1)
		}
		for j := 0; j < len(arr); j++ {
			k := rng.Uint32n(uint32(len(arr)))
			arr[j], arr[k] = arr[k], arr[j]
		}

		// calculate expected result
		var expect float64
		if (i & 1) != 0 {
			expect = float64((i + 1) / 2)
		} else {
			expect = 0.5 * (float64(i/2) + float64(i/2+1))
		}

		// calculate actual result and compare
		res := QSelectMedianFloat64(arr)
		if res != expect {
			t.Errorf("median(1..%d)=%f; want %f", i, res, expect)
		}
	}
}

func TestMedianWithDuplicates(t *testing.T) {
	tcs := []struct {
		In   []float64
		Want float64
	}{
		{[]float64{5}, 5},
		{[]float64{2, 2}, 2},
		{[]float64{1, 3, 3, 1}, 2},
		{[]float64{7, 7, 7, 1, 9}, 7},
		{[]float64{-1, 4, 4, 4, 10, -3}, 4},
	}
	for _, tc := range tcs {
		in := append([]float64(nil), tc.In...)
		if got := QSelectMedianFloat64(in); got != tc.Want {
			t.Errorf("median(%v)=%f; want %f", tc.In, got, tc.Want)
		}
	}
}

func TestSelectKth(t *testing.T) {
	arr := []float64{9, 1, 8, 2, 7, 3, 6, 4, 5}
	for k := 1; k <= len(arr); k++ {
		tmp := append([]float64(nil), arr...)
		if got := QSelectFloat64(tmp, k); got != float64(k) {
			t.Errorf("select(%d)=%f; want %d", k, got, k)
		}
	}
}
