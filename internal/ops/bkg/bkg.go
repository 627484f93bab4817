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

// Package bkg provides pipeline operators which estimate the sky background
// of images, save background and noise maps, and subtract the background.
package bkg

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/mlnoga/skymesh/internal/background"
	"github.com/mlnoga/skymesh/internal/fits"
	"github.com/mlnoga/skymesh/internal/masked"
	"github.com/mlnoga/skymesh/internal/ops"
	"github.com/mlnoga/skymesh/internal/plot"
)

// Estimator settings shared by the background operators
type Settings struct {
	Box          background.Shape `json:"box"`
	Filter       background.Shape `json:"filter"`
	Method       string           `json:"method"`
	SigClipSigma float64          `json:"sigClipSigma"`
	SigClipIters int              `json:"sigClipIters"`
	MaskPattern  string           `json:"maskPattern"` // optional mask file, %d expands to the image ID
}

// Returns settings with the default estimator options
func DefaultSettings() Settings {
	o := background.DefaultOptions()
	return Settings{
		Box:          o.Box,
		Filter:       o.Filter,
		Method:       o.Method,
		SigClipSigma: o.SigClipSigma,
		SigClipIters: o.SigClipIters,
	}
}

// Builds the mask for the given image: the mask file if any, plus all non-finite pixels
func (s *Settings) mask(f *fits.Image, c *ops.Context) ([]bool, error) {
	var mask []bool
	if s.MaskPattern != "" {
		fileName := ops.ExpandPattern(s.MaskPattern, f.ID)
		if c.Sandboxed && !ops.IsPathAllowed(fileName) {
			return nil, fmt.Errorf("%d: mask file %s outside current directory tree, aborting", f.ID, fileName)
		}
		var err error
		if mask, err = fits.ReadMaskFile(fileName, f.Width(), f.Height(), c.Log); err != nil {
			return nil, fmt.Errorf("%d: %w", f.ID, err)
		}
	}
	for i, d := range f.Data {
		v := float64(d)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if mask == nil {
				mask = make([]bool, len(f.Data))
			}
			mask[i] = true
		}
	}
	return mask, nil
}

// Creates a background estimator for the given image
func (s *Settings) Estimate(f *fits.Image, c *ops.Context) (*background.Estimator, error) {
	if !f.IsMono() {
		return nil, fmt.Errorf("%d: background estimation needs a mono image, got %s", f.ID, f.DimensionsToString())
	}
	if !c.FitsInMemory(len(f.Data)) {
		return nil, fmt.Errorf("%d: %s pixel image exceeds memory budget of %d MB", f.ID, f.DimensionsToString(), c.MemoryMB)
	}
	mask, err := s.mask(f, c)
	if err != nil {
		return nil, err
	}
	opts := &background.Options{
		Mask:         mask,
		Box:          s.Box,
		Filter:       s.Filter,
		Method:       s.Method,
		SigClipSigma: s.SigClipSigma,
		SigClipIters: s.SigClipIters,
		MaxThreads:   c.MaxThreads,
		Log:          &idWriter{id: f.ID, w: c.Log},
	}
	e, err := background.New(f.Float64Data(), f.Width(), f.Height(), opts)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	return e, nil
}

// Summary of the background of one image. Medians are zero if NoData is set
type Summary struct {
	ID        int              `json:"id"`
	FileName  string           `json:"fileName"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Method    string           `json:"method"`
	Box       background.Shape `json:"box"`
	Filter    background.Shape `json:"filter"`
	MeshRows  int              `json:"meshRows"`
	MeshCols  int              `json:"meshCols"`
	Masked    int              `json:"masked"`
	Median    float64          `json:"median"`
	RMSMedian float64          `json:"rmsMedian"`
	NoData    bool             `json:"noData"`
}

func (s Summary) String() string {
	if s.NoData {
		return fmt.Sprintf("%d: %s background: no unmasked data", s.ID, s.Method)
	}
	return fmt.Sprintf("%d: %s background median %.6g rms median %.6g over %dx%d mesh",
		s.ID, s.Method, s.Median, s.RMSMedian, s.MeshRows, s.MeshCols)
}

// Summarizes an estimator. A fully masked image is reported with NoData
func summarize(f *fits.Image, e *background.Estimator) (Summary, error) {
	o := e.Options()
	s := Summary{
		ID:       f.ID,
		FileName: f.FileName,
		Width:    f.Width(),
		Height:   f.Height(),
		Method:   e.Method().String(),
		Box:      o.Box,
		Filter:   o.Filter,
		MeshRows: e.Tiles().Rows,
		MeshCols: e.Tiles().Cols,
	}
	for _, m := range o.Mask {
		if m {
			s.Masked++
		}
	}
	var err error
	if s.Median, err = e.BackgroundMedian(); err != nil {
		if errors.Is(err, background.ErrNoData) {
			s.Median, s.NoData = 0, true
			return s, nil
		}
		return s, err
	}
	if s.RMSMedian, err = e.BackgroundRMSMedian(); err != nil {
		return s, err
	}
	return s, nil
}

// Collects summaries from concurrently processed images
type recorder struct {
	mu      sync.Mutex
	results []Summary
}

func (r *recorder) record(s Summary) {
	r.mu.Lock()
	r.results = append(r.results, s)
	r.mu.Unlock()
}

// Returns the summaries recorded so far, in order of completion
func (r *recorder) Results() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Summary(nil), r.results...)
}

// Prefixes each write with the image ID
type idWriter struct {
	id int
	w  io.Writer
}

func (w *idWriter) Write(p []byte) (int, error) {
	if _, err := fmt.Fprintf(w.w, "%d: %s", w.id, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Adds estimator settings and results to the header of an image
func annotate(h *fits.Header, s Summary) {
	h.Strings["BKGMETH"] = s.Method
	h.Ints["BKGBOXH"] = int32(s.Box.H)
	h.Ints["BKGBOXW"] = int32(s.Box.W)
	h.Ints["BKGFILTH"] = int32(s.Filter.H)
	h.Ints["BKGFILTW"] = int32(s.Filter.W)
	if !s.NoData {
		h.Floats["BKGMED"] = float32(s.Median)
		h.Floats["BKGRMS"] = float32(s.RMSMedian)
	}
}

// Logs percentiles of the finite unmasked values of a map
func logPercentiles(c *ops.Context, id int, name string, data []float64, mask []bool) {
	values := make(stats.Float64Data, 0, len(data))
	for i, v := range data {
		if (mask == nil || !mask[i]) && !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return
	}
	p5, _ := stats.Percentile(values, 5)
	p50, _ := stats.Percentile(values, 50)
	p95, _ := stats.Percentile(values, 95)
	fmt.Fprintf(c.Log, "%d: %s percentiles 5%% %.6g 50%% %.6g 95%% %.6g\n", id, name, p5, p50, p95)
}

// Estimates the background of each input image, and replaces the image with
// the background or noise map. Optionally saves the meshes and a profile plot
type OpBackground struct {
	ops.OpUnaryBase
	Settings
	Output         string  `json:"output"`         // "background" or "rms"
	MeshPattern    string  `json:"meshPattern"`    // optional file for the background mesh
	RMSMeshPattern string  `json:"rmsMeshPattern"` // optional file for the noise mesh
	RMSPattern     string  `json:"rmsPattern"`     // optional file for the full resolution noise map
	PlotPattern    string  `json:"plotPattern"`    // optional file for a profile through the middle row
	SubPattern     string  `json:"subPattern"`     // optional file for the background subtracted image
	Pedestal       float32 `json:"pedestal"`       // added to the background subtracted image
	recorder       `json:"-"`
}

const (
	OutputBackground = "background"
	OutputRMS        = "rms"
)

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpBackgroundDefault() }) } // register the operator for JSON decoding

func NewOpBackgroundDefault() *OpBackground { return NewOpBackground(DefaultSettings(), OutputBackground) }

func NewOpBackground(s Settings, output string) *OpBackground {
	op := OpBackground{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "background", Active: true}},
		Settings:    s,
		Output:      output,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpBackground) Apply(f *fits.Image, c *ops.Context) (fOut *fits.Image, err error) {
	if op.Output != OutputBackground && op.Output != OutputRMS {
		return nil, fmt.Errorf("%d: unknown background output '%s'", f.ID, op.Output)
	}
	e, err := op.Estimate(f, c)
	if err != nil {
		return nil, err
	}
	s, err := summarize(f, e)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	fmt.Fprintln(c.Log, s.String())
	op.record(s)

	if err = op.saveMeshes(f, e, c); err != nil {
		return nil, err
	}

	bkg, err := e.Background()
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	rms, err := e.BackgroundRMS()
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	logPercentiles(c, f.ID, "Background", bkg.Data, bkg.Mask)
	logPercentiles(c, f.ID, "Background RMS", rms.Data, rms.Mask)

	if op.RMSPattern != "" {
		if err = op.saveGrid(f, rms, op.RMSPattern, c); err != nil {
			return nil, err
		}
	}

	if op.SubPattern != "" && !s.NoData {
		subtracted, err := subtract(f, bkg, s, op.Pedestal, c)
		if err != nil {
			return nil, err
		}
		fileName := ops.ExpandPattern(op.SubPattern, f.ID)
		if c.Sandboxed && !ops.IsPathAllowed(fileName) {
			return nil, fmt.Errorf("%d: filename %s outside current directory tree, aborting", f.ID, fileName)
		}
		if err = ops.SaveImage(subtracted, fileName, c); err != nil {
			return nil, fmt.Errorf("%d: Error writing to file %s: %w", f.ID, fileName, err)
		}
	}

	if op.PlotPattern != "" {
		fileName := ops.ExpandPattern(op.PlotPattern, f.ID)
		p := &plot.Profile{
			Title:      fmt.Sprintf("%d: %s", f.ID, f.FileName),
			Width:      f.Width(),
			Height:     f.Height(),
			Image:      f.Float64Data(),
			Background: bkg.Data,
			RMS:        rms.Data,
			Mask:       bkg.Mask,
		}
		fmt.Fprintf(c.Log, "%d: Writing background profile to %s\n", f.ID, fileName)
		if err = p.Save(fileName, plot.AxisRow, f.Height()/2); err != nil {
			return nil, fmt.Errorf("%d: %w", f.ID, err)
		}
	}

	m := bkg
	if op.Output == OutputRMS {
		m = rms
	}
	fOut, err = fits.NewImageFromFloat64(f.ID, m.Data, m.Width, m.Height)
	if err != nil {
		return nil, err
	}
	fOut.FileName = f.FileName
	fOut.Exposure = f.Exposure
	fOut.Header = f.Header.Clone()
	annotate(&fOut.Header, s)
	return fOut, nil
}

// Writes the background and noise meshes, if requested
func (op *OpBackground) saveMeshes(f *fits.Image, e *background.Estimator, c *ops.Context) error {
	type dump struct {
		pattern string
		mesh    func() (*masked.Grid, error)
	}
	dumps := []dump{
		{op.MeshPattern, e.BackgroundMesh},
		{op.RMSMeshPattern, e.BackgroundRMSMesh},
	}
	for _, d := range dumps {
		if d.pattern == "" {
			continue
		}
		g, err := d.mesh()
		if err != nil {
			return fmt.Errorf("%d: %w", f.ID, err)
		}
		if err = op.saveGrid(f, g, d.pattern, c); err != nil {
			return err
		}
	}
	return nil
}

// Saves a grid as an image file named after the pattern and the ID of the given image
func (op *OpBackground) saveGrid(f *fits.Image, g *masked.Grid, pattern string, c *ops.Context) error {
	img, err := fits.NewImageFromFloat64(f.ID, g.Data, g.Width, g.Height)
	if err != nil {
		return err
	}
	fileName := ops.ExpandPattern(pattern, f.ID)
	if c.Sandboxed && !ops.IsPathAllowed(fileName) {
		return fmt.Errorf("%d: filename %s outside current directory tree, aborting", f.ID, fileName)
	}
	if err = ops.SaveImage(img, fileName, c); err != nil {
		return fmt.Errorf("%d: Error writing to file %s: %w", f.ID, fileName, err)
	}
	return nil
}

// Subtracts the estimated background from each input image, and adds a pedestal.
// Masked pixels become NaN
type OpSubtract struct {
	ops.OpUnaryBase
	Settings
	Pedestal float32 `json:"pedestal"`
	recorder `json:"-"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSubtractDefault() }) } // register the operator for JSON decoding

func NewOpSubtractDefault() *OpSubtract { return NewOpSubtract(DefaultSettings(), 0) }

func NewOpSubtract(s Settings, pedestal float32) *OpSubtract {
	op := OpSubtract{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "subtract", Active: true}},
		Settings:    s,
		Pedestal:    pedestal,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

func (op *OpSubtract) Apply(f *fits.Image, c *ops.Context) (fOut *fits.Image, err error) {
	e, err := op.Estimate(f, c)
	if err != nil {
		return nil, err
	}
	s, err := summarize(f, e)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	op.record(s)
	if s.NoData {
		return nil, fmt.Errorf("%d: %w", f.ID, background.ErrNoData)
	}
	bkg, err := e.Background()
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}

	return subtract(f, bkg, s, op.Pedestal, c)
}

// Returns a copy of the image with the background map subtracted and the pedestal added
func subtract(f *fits.Image, bkg *masked.Grid, s Summary, pedestal float32, c *ops.Context) (*fits.Image, error) {
	fOut := fits.NewImageFromImage(f)
	copy(fOut.Data, f.Data)
	if err := fOut.Subtract(bkg.Data, bkg.Mask, pedestal); err != nil {
		return nil, err
	}
	annotate(&fOut.Header, s)
	fOut.Header.History = append(fOut.Header.History,
		fmt.Sprintf("Subtracted %s background, median %.6g, pedestal %g", s.Method, s.Median, pedestal))
	fmt.Fprintf(c.Log, "%d: Subtracted background with median %.6g and added pedestal %g\n", f.ID, s.Median, pedestal)
	return fOut, nil
}

// Returns the summaries recorded by all background and subtraction operators
// within a pipeline, descending into sequences and loops
func CollectResults(op ops.Operator) []Summary {
	switch o := op.(type) {
	case *OpBackground:
		return o.Results()
	case *OpSubtract:
		return o.Results()
	case *ops.OpSequence:
		var res []Summary
		for _, step := range o.Steps {
			res = append(res, CollectResults(step)...)
		}
		return res
	case *ops.OpForEach:
		if o.Operation != nil {
			return CollectResults(o.Operation)
		}
	}
	return nil
}
