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

// Package masked holds 2D float grids with a parallel exclusion mask,
// and reductions which ignore masked entries.
package masked

import (
	"fmt"
	"math"
)

// A row-major 2D grid of values with an optional mask. Mask[i]==true excludes
// Data[i] from all statistics. A nil mask excludes nothing.
type Grid struct {
	Width  int
	Height int
	Data   []float64
	Mask   []bool
}

// Creates a new zero-initialized grid without mask
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Data: make([]float64, width*height)}
}

// Wraps existing data and mask in a grid. Does not copy
func NewGridFromData(data []float64, mask []bool, width int) (*Grid, error) {
	if width <= 0 || len(data)%width != 0 {
		return nil, fmt.Errorf("data length %d not divisible by width %d", len(data), width)
	}
	if mask != nil && len(mask) != len(data) {
		return nil, fmt.Errorf("mask length %d does not match data length %d", len(mask), len(data))
	}
	return &Grid{Width: width, Height: len(data) / width, Data: data, Mask: mask}, nil
}

func (g *Grid) String() string {
	return fmt.Sprintf("%dx%d grid, %d masked", g.Width, g.Height, g.NumMasked())
}

// Returns the value at the given position
func (g *Grid) At(row, col int) float64 { return g.Data[row*g.Width+col] }

// Sets the value at the given position
func (g *Grid) Set(row, col int, v float64) { g.Data[row*g.Width+col] = v }

// Returns the number of masked entries
func (g *Grid) NumMasked() int {
	n := 0
	for _, m := range g.Mask {
		if m {
			n++
		}
	}
	return n
}

// Returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	c := &Grid{Width: g.Width, Height: g.Height, Data: append([]float64(nil), g.Data...)}
	if g.Mask != nil {
		c.Mask = append([]bool(nil), g.Mask...)
	}
	return c
}

// Returns a copy of the top left height x width corner of the grid
func (g *Grid) Crop(width, height int) *Grid {
	c := &Grid{Width: width, Height: height, Data: make([]float64, width*height)}
	if g.Mask != nil {
		c.Mask = make([]bool, width*height)
	}
	for y := 0; y < height; y++ {
		copy(c.Data[y*width:(y+1)*width], g.Data[y*g.Width:y*g.Width+width])
		if g.Mask != nil {
			copy(c.Mask[y*width:(y+1)*width], g.Mask[y*g.Width:y*g.Width+width])
		}
	}
	return c
}

// Returns the number of finite values
func (g *Grid) NumFinite() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
