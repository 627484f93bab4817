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

package main

import (
	"testing"

	"github.com/mlnoga/skymesh/internal/background"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		in   string
		want background.Shape
		err  bool
	}{
		{"64", background.Shape{H: 64, W: 64}, false},
		{"32x48", background.Shape{H: 32, W: 48}, false},
		{"16X8", background.Shape{H: 16, W: 8}, false},
		{" 3 x 3 ", background.Shape{H: 3, W: 3}, false},
		{"x3", background.Shape{}, true},
		{"abc", background.Shape{}, true},
	}
	for _, tc := range tests {
		got, err := parseShape(tc.in)
		if (err != nil) != tc.err {
			t.Errorf("parseShape(%q) error %v; want error %v", tc.in, err, tc.err)
			continue
		}
		if !tc.err && got != tc.want {
			t.Errorf("parseShape(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestShapeFlagDefaultsParse(t *testing.T) {
	// the default flag values are rendered with Shape.String
	s, err := settingsFromFlags()
	if err != nil {
		t.Fatalf("settingsFromFlags() error %v; want nil", err)
	}
	if s.Box != defaults.Box || s.Filter != defaults.Filter {
		t.Errorf("got box %v filter %v; want %v and %v", s.Box, s.Filter, defaults.Box, defaults.Filter)
	}
}
