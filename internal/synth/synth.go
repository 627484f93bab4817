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

// Package synth generates synthetic sky frames with a known background,
// for testing and benchmarking background estimation.
package synth

import (
	"fmt"
	"math"

	"github.com/valyala/fastrand"
)

// Parameters of a synthetic frame: a planar sky gradient, Gaussian noise and
// Gaussian point sources at random positions
type Params struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Level     float64 `json:"level"`     // sky level at the image center
	GradientX float64 `json:"gradientX"` // sky change per pixel to the right
	GradientY float64 `json:"gradientY"` // sky change per pixel downwards
	Noise     float64 `json:"noise"`     // standard deviation of the noise
	Stars     int     `json:"stars"`     // number of point sources
	StarFlux  float64 `json:"starFlux"`  // peak value of the brightest star
	StarSigma float64 `json:"starSigma"` // width of the point spread function in pixels
	Seed      uint32  `json:"seed"`      // random seed, 0 for the generator default
}

// Returns parameters for a moderately crowded 512x512 frame
func DefaultParams() Params {
	return Params{
		Width:     512,
		Height:    512,
		Level:     1000,
		GradientX: 0.5,
		GradientY: -0.25,
		Noise:     10,
		Stars:     200,
		StarFlux:  5000,
		StarSigma: 1.5,
		Seed:      1,
	}
}

// A synthetic frame and the background it was generated from
type Frame struct {
	Width      int
	Height     int
	Image      []float64
	Background []float64
}

// Generates a frame from the given parameters
func Generate(p Params) (*Frame, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", p.Width, p.Height)
	}
	if p.Noise < 0 || p.Stars < 0 || p.StarSigma < 0 {
		return nil, fmt.Errorf("noise, stars and star sigma must not be negative")
	}
	rng := fastrand.RNG{}
	if p.Seed != 0 {
		rng.Seed(p.Seed)
	}

	f := &Frame{
		Width:      p.Width,
		Height:     p.Height,
		Image:      make([]float64, p.Width*p.Height),
		Background: make([]float64, p.Width*p.Height),
	}
	cx, cy := float64(p.Width-1)/2, float64(p.Height-1)/2
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			i := y*p.Width + x
			b := p.Level + p.GradientX*(float64(x)-cx) + p.GradientY*(float64(y)-cy)
			f.Background[i] = b
			f.Image[i] = b + p.Noise*gaussian(&rng)
		}
	}

	if p.StarSigma > 0 {
		for s := 0; s < p.Stars; s++ {
			sx := uniform(&rng) * float64(p.Width)
			sy := uniform(&rng) * float64(p.Height)
			flux := p.StarFlux * math.Pow(uniform(&rng), 2) // many faint, few bright
			f.addStar(sx, sy, flux, p.StarSigma)
		}
	}
	return f, nil
}

// Adds a Gaussian point source, evaluated within three sigma of its center
func (f *Frame) addStar(sx, sy, flux, sigma float64) {
	r := int(math.Ceil(3 * sigma))
	x0, x1 := max(int(sx)-r, 0), min(int(sx)+r, f.Width-1)
	y0, y1 := max(int(sy)-r, 0), min(int(sy)+r, f.Height-1)
	inv := 1 / (2 * sigma * sigma)
	for y := y0; y <= y1; y++ {
		dy := float64(y) - sy
		for x := x0; x <= x1; x++ {
			dx := float64(x) - sx
			f.Image[y*f.Width+x] += flux * math.Exp(-(dx*dx+dy*dy)*inv)
		}
	}
}

// Returns a uniform random number in [0,1)
func uniform(rng *fastrand.RNG) float64 {
	return float64(rng.Uint32n(1<<24)) / (1 << 24)
}

// Returns a standard normal random number, Box-Muller transform
func gaussian(rng *fastrand.RNG) float64 {
	u1 := uniform(rng)
	for u1 == 0 {
		u1 = uniform(rng)
	}
	u2 := uniform(rng)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
