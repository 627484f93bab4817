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

package masked

import (
	"math"
	"testing"
)

func TestReductionsIgnoreMasked(t *testing.T) {
	values := []float64{1, 2, 3, 4, 1000}
	mask := []bool{false, false, false, false, true}

	if n := Count(values, mask); n != 4 {
		t.Errorf("count=%d; want 4", n)
	}
	if m := Mean(values, mask); m != 2.5 {
		t.Errorf("mean=%f; want 2.5", m)
	}
	if m := Median(values, mask); m != 2.5 {
		t.Errorf("median=%f; want 2.5", m)
	}
	if v := Var(values, mask); math.Abs(v-1.25) > 1e-12 {
		t.Errorf("var=%f; want 1.25", v)
	}
	if s := Std(values, mask); math.Abs(s-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("std=%f; want %f", s, math.Sqrt(1.25))
	}
	if values[4] != 1000 || values[0] != 1 {
		t.Errorf("input modified: %v", values)
	}
}

func TestReductionsEmpty(t *testing.T) {
	values := []float64{1, 2}
	mask := []bool{true, true}
	if !math.IsNaN(Mean(values, mask)) || !math.IsNaN(Median(values, mask)) || !math.IsNaN(Std(values, mask)) {
		t.Errorf("reductions over fully masked input should be NaN")
	}
	s, _ := Summarize(values, mask, nil)
	if s.N != 0 || !math.IsNaN(s.Mean) || !math.IsNaN(s.Median) || !math.IsNaN(s.StdDev) {
		t.Errorf("summary=%+v; want N=0 and NaNs", s)
	}
}

func TestSummarizeMatchesSingleReductions(t *testing.T) {
	values := []float64{4, -2, 7, 7, 0.5, 3, 11, -6}
	mask := []bool{false, true, false, false, false, false, true, false}
	s, buf := Summarize(values, mask, make([]float64, 0, 3))
	if s.N != 6 {
		t.Errorf("n=%d; want 6", s.N)
	}
	if s.Mean != Mean(values, mask) {
		t.Errorf("mean=%f; want %f", s.Mean, Mean(values, mask))
	}
	if s.Median != Median(values, mask) {
		t.Errorf("median=%f; want %f", s.Median, Median(values, mask))
	}
	if math.Abs(s.StdDev-Std(values, mask)) > 1e-12 {
		t.Errorf("std=%f; want %f", s.StdDev, Std(values, mask))
	}
	if len(buf) != 6 {
		t.Errorf("len(buf)=%d; want 6", len(buf))
	}
}

func TestGridCrop(t *testing.T) {
	g := NewGrid(3, 3)
	g.Mask = make([]bool, 9)
	for i := range g.Data {
		g.Data[i] = float64(i)
	}
	g.Mask[4] = true
	c := g.Crop(2, 2)
	want := []float64{0, 1, 3, 4}
	for i, w := range want {
		if c.Data[i] != w {
			t.Errorf("crop[%d]=%f; want %f", i, c.Data[i], w)
		}
	}
	if !c.Mask[3] || c.NumMasked() != 1 {
		t.Errorf("crop mask=%v; want only [3] set", c.Mask)
	}
}

func TestMinMaxSkipsNaN(t *testing.T) {
	min, max := MinMax([]float64{math.NaN(), 3, -1, math.Inf(1)}, nil)
	if min != -1 || max != 3 {
		t.Errorf("min,max=%f,%f; want -1,3", min, max)
	}
}
