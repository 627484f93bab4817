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

// Package background estimates the smooth sky background of an astronomical
// image and its noise level, on a coarse mesh of tiles and at full resolution.
package background

import (
	"fmt"
	"sync"

	"github.com/mlnoga/skymesh/internal/masked"
)

// A value computed at most once, on first use. Errors are remembered as well
type lazy[T any] struct {
	once     sync.Once
	val      T
	err      error
	computed int
}

func (l *lazy[T]) get(f func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.val, l.err = f()
		l.computed++
	})
	return l.val, l.err
}

// Number of times each derived quantity has been computed
type Counters struct {
	Summaries  int
	Mesh       int
	RMSMesh    int
	Background int
	RMS        int
	Median     int
	RMSMedian  int
}

// Background estimator for a single image. Padding, tiling and sigma clipping
// happen on construction. Meshes, maps and summaries are computed on first
// access and memoized. Returned grids are shared and must not be modified
type Estimator struct {
	opts    *Options
	method  Method
	padded  *Padded
	tiles   *TileGrid
	clipped *TileGrid

	summaries lazy[[]masked.Summary]
	mesh      lazy[*masked.Grid]
	rmsMesh   lazy[*masked.Grid]
	bkg       lazy[*masked.Grid]
	rms       lazy[*masked.Grid]
	median    lazy[float64]
	rmsMedian lazy[float64]
}

// Creates a background estimator for the given image data in row-major order.
// The image data and mask are copied. Options may be nil for the defaults
func New(image []float64, width, height int, opts *Options) (*Estimator, error) {
	if width <= 0 || height <= 0 || len(image) != width*height {
		return nil, fmt.Errorf("%w: image of %d pixels is not %dx%d", ErrShapeMismatch, len(image), width, height)
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Mask != nil && len(opts.Mask) != len(image) {
		return nil, fmt.Errorf("%w: mask of %d pixels for image of %d pixels", ErrShapeMismatch, len(opts.Mask), len(image))
	}
	method, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	o := opts.withDefaults()
	if o.Mask != nil {
		o.Mask = append([]bool(nil), o.Mask...)
	}

	e := &Estimator{opts: o, method: method}
	e.padded = Pad(image, o.Mask, width, height, o.Box)
	if e.padded.Applied {
		fmt.Fprintf(o.Log, "Padded %dx%d image to %dx%d for %v boxes\n", width, height, e.padded.Width, e.padded.Height, o.Box)
	}
	e.tiles = NewTileGrid(e.padded, o.Box)
	e.clipped = clipTiles(e.tiles, o.Clipper, o.MaxThreads)
	fmt.Fprintf(o.Log, "Sigma clipped %dx%d tiles, %d of %d pixels masked\n",
		e.tiles.Rows, e.tiles.Cols, countTrue(e.clipped.Mask), len(e.clipped.Mask))
	return e, nil
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// Returns the estimation method in use
func (e *Estimator) Method() Method { return e.method }

// Returns the effective options, with defaults filled in
func (e *Estimator) Options() *Options { return e.opts }

// Returns the padded image and mask
func (e *Estimator) Padded() *Padded { return e.padded }

// Returns the tiled image before sigma clipping
func (e *Estimator) Tiles() *TileGrid { return e.tiles }

// Returns the tiled image with sigma clipped outliers added to the mask
func (e *Estimator) Clipped() *TileGrid { return e.clipped }

// Returns how often each derived quantity was computed
func (e *Estimator) Counters() Counters {
	return Counters{
		Summaries:  e.summaries.computed,
		Mesh:       e.mesh.computed,
		RMSMesh:    e.rmsMesh.computed,
		Background: e.bkg.computed,
		RMS:        e.rms.computed,
		Median:     e.median.computed,
		RMSMedian:  e.rmsMedian.computed,
	}
}

func (e *Estimator) tileSummaries() []masked.Summary {
	sums, _ := e.summaries.get(func() ([]masked.Summary, error) {
		return summarizeTiles(e.clipped, e.opts.MaxThreads), nil
	})
	return sums
}

// Smooths a mesh with the configured filter, unless it is 1x1
func (e *Estimator) filterMesh(g *masked.Grid) *masked.Grid {
	if !e.opts.filtering() {
		return g
	}
	return e.opts.MeshFilter.Filter(g, e.opts.Filter.H, e.opts.Filter.W)
}

// Returns the background level of each tile, one cell per box, after mesh filtering.
// Cells for fully masked tiles are NaN
func (e *Estimator) BackgroundMesh() (*masked.Grid, error) {
	return e.mesh.get(func() (*masked.Grid, error) {
		g := backgroundMesh(e.tiles.Rows, e.tiles.Cols, e.tileSummaries(), e.method)
		g = e.filterMesh(g)
		fmt.Fprintf(e.opts.Log, "Background mesh %dx%d with method %v\n", g.Height, g.Width, e.method)
		return g, nil
	})
}

// Returns the background noise of each tile as standard deviation, one cell per box,
// after mesh filtering. Cells for fully masked tiles are NaN
func (e *Estimator) BackgroundRMSMesh() (*masked.Grid, error) {
	return e.rmsMesh.get(func() (*masked.Grid, error) {
		g := rmsMesh(e.tiles.Rows, e.tiles.Cols, e.tileSummaries())
		g = e.filterMesh(g)
		fmt.Fprintf(e.opts.Log, "Background RMS mesh %dx%d\n", g.Height, g.Width)
		return g, nil
	})
}

// Returns the full resolution background map, with the size of the original image.
// Masked pixels are zero
func (e *Estimator) Background() (*masked.Grid, error) {
	return e.bkg.get(func() (*masked.Grid, error) {
		mesh, err := e.BackgroundMesh()
		if err != nil {
			return nil, err
		}
		return expandMesh(mesh, e.padded, e.opts.Mask, e.opts.Interpolator)
	})
}

// Returns the full resolution background noise map, with the size of the original image.
// Masked pixels are zero
func (e *Estimator) BackgroundRMS() (*masked.Grid, error) {
	return e.rms.get(func() (*masked.Grid, error) {
		mesh, err := e.BackgroundRMSMesh()
		if err != nil {
			return nil, err
		}
		return expandMesh(mesh, e.padded, e.opts.Mask, e.opts.Interpolator)
	})
}

// Returns the median of the background map over unmasked pixels
func (e *Estimator) BackgroundMedian() (float64, error) {
	return e.median.get(func() (float64, error) {
		g, err := e.Background()
		if err != nil {
			return 0, err
		}
		return maskedMedian(g, e.opts.Mask)
	})
}

// Returns the median of the background noise map over unmasked pixels
func (e *Estimator) BackgroundRMSMedian() (float64, error) {
	return e.rmsMedian.get(func() (float64, error) {
		g, err := e.BackgroundRMS()
		if err != nil {
			return 0, err
		}
		return maskedMedian(g, e.opts.Mask)
	})
}
