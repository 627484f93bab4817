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

package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackgroundIsPlanar(t *testing.T) {
	p := Params{Width: 11, Height: 7, Level: 100, GradientX: 2, GradientY: -1}
	f, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.Background[3*11+5])
	assert.Equal(t, 100.0+2*5-1*(-3), f.Background[0*11+10])
	assert.Equal(t, f.Background, f.Image) // no noise, no stars
}

func TestGenerateNoise(t *testing.T) {
	p := Params{Width: 200, Height: 200, Level: 50, Noise: 3, Seed: 42}
	f, err := Generate(p)
	require.NoError(t, err)

	sum, sumSq := 0.0, 0.0
	for i, v := range f.Image {
		d := v - f.Background[i]
		sum += d
		sumSq += d * d
	}
	n := float64(len(f.Image))
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)
	assert.InDelta(t, 0, mean, 0.1)
	assert.InDelta(t, 3, std, 0.1)
}

func TestGenerateStarsOnlyAddFlux(t *testing.T) {
	p := Params{Width: 64, Height: 48, Level: 10, Stars: 20, StarFlux: 100, StarSigma: 1.2, Seed: 7}
	f, err := Generate(p)
	require.NoError(t, err)
	brighter := 0
	for i, v := range f.Image {
		require.GreaterOrEqual(t, v, f.Background[i])
		if v > f.Background[i] {
			brighter++
		}
	}
	assert.Greater(t, brighter, 0)
}

func TestGenerateIsDeterministic(t *testing.T) {
	p := DefaultParams()
	p.Width, p.Height = 32, 32
	a, err := Generate(p)
	require.NoError(t, err)
	b, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, a.Image, b.Image)
}

func TestGenerateInvalid(t *testing.T) {
	_, err := Generate(Params{Width: 0, Height: 5})
	assert.Error(t, err)
	_, err = Generate(Params{Width: 5, Height: 5, Noise: -1})
	assert.Error(t, err)
}
