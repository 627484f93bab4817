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

package background

import (
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/skymesh/internal/masked"
	"github.com/mlnoga/skymesh/internal/median"
	"github.com/mlnoga/skymesh/internal/sigclip"
	"github.com/mlnoga/skymesh/internal/spline"
)

// A 2D extent in rows and columns
type Shape struct {
	H int `json:"h"`
	W int `json:"w"`
}

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.H, s.W) }

// Masks outliers in the values of one tile. Returns a new mask which
// includes the given one. Must not modify its arguments
type Clipper interface {
	Clip(values []float64, mask []bool) []bool
}

// Smoothes a mesh grid with a window of fh rows and fw columns, ignoring NaN cells
// and cells outside the grid. Returns a new grid
type MeshFilter interface {
	Filter(g *masked.Grid, fh, fw int) *masked.Grid
}

// Upsamples a mesh grid to the given size with a smooth interpolating surface
type Interpolator interface {
	Resize(g *masked.Grid, height, width int) (*masked.Grid, error)
}

// Options for background estimation
type Options struct {
	Mask         []bool  `json:"-"`            // optional, true=exclude pixel. Same size as the image
	Box          Shape   `json:"box"`          // tile size
	Filter       Shape   `json:"filter"`       // median filter size over the tile grid, 1x1=no filtering
	Method       string  `json:"method"`       // sextractor (default), mean, median or mode_estimate
	SigClipSigma float64 `json:"sigClipSigma"` // sigma clipping threshold in standard deviations
	SigClipIters int     `json:"sigClipIters"` // maximum sigma clipping iterations, 0=until converged
	MaxThreads   int     `json:"maxThreads"`   // concurrency for per-tile work, 0=one

	Clipper      Clipper      `json:"-"` // defaults to sigclip with the above settings
	MeshFilter   MeshFilter   `json:"-"` // defaults to a NaN-ignoring median filter
	Interpolator Interpolator `json:"-"` // defaults to bicubic spline interpolation
	Log          io.Writer    `json:"-"` // progress output, may be nil
}

// Returns options with the default estimator settings
func DefaultOptions() *Options {
	return &Options{
		Box:          Shape{64, 64},
		Filter:       Shape{3, 3},
		Method:       MethodSExtractor.String(),
		SigClipSigma: 3,
		SigClipIters: 0,
		MaxThreads:   1,
	}
}

// Checks the options for consistency, and returns the parsed estimation method
func (o *Options) Validate() (m Method, err error) {
	if o.Box.H < 1 || o.Box.W < 1 {
		return 0, fmt.Errorf("%w: box shape %v must be positive", ErrInvalidConfiguration, o.Box)
	}
	if o.Filter.H < 1 || o.Filter.W < 1 {
		return 0, fmt.Errorf("%w: filter shape %v must be positive", ErrInvalidConfiguration, o.Filter)
	}
	if !(o.SigClipSigma > 0) || math.IsInf(o.SigClipSigma, 0) {
		return 0, fmt.Errorf("%w: sigma clipping threshold %g must be positive", ErrInvalidConfiguration, o.SigClipSigma)
	}
	if o.SigClipIters < 0 {
		return 0, fmt.Errorf("%w: sigma clipping iterations %d must not be negative", ErrInvalidConfiguration, o.SigClipIters)
	}
	return ParseMethod(o.Method)
}

// Fills in default strategies for any not given
func (o *Options) withDefaults() *Options {
	res := *o
	if res.Clipper == nil {
		res.Clipper = sigclip.NewClipper(res.SigClipSigma, res.SigClipIters)
	}
	if res.MeshFilter == nil {
		res.MeshFilter = median.Filter{}
	}
	if res.Interpolator == nil {
		res.Interpolator = spline.Bicubic{}
	}
	if res.Log == nil {
		res.Log = io.Discard
	}
	if res.MaxThreads < 1 {
		res.MaxThreads = 1
	}
	return &res
}

// True if the filter shape requests smoothing of the mesh
func (o *Options) filtering() bool {
	return o.Filter.H != 1 || o.Filter.W != 1
}
