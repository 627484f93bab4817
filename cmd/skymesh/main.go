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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid"

	nl "github.com/mlnoga/skymesh/internal"
	"github.com/mlnoga/skymesh/internal/background"
	"github.com/mlnoga/skymesh/internal/fits"
	"github.com/mlnoga/skymesh/internal/ops"
	"github.com/mlnoga/skymesh/internal/ops/bkg"
	"github.com/mlnoga/skymesh/internal/rest"
	"github.com/mlnoga/skymesh/internal/synth"
)

const version = "0.1.0"

var defaults = background.DefaultOptions()

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")
var log = flag.String("log", "", "save log output to `file`")
var threads = flag.Int("threads", 0, "number of worker threads, 0=number of logical cores")
var jsonFile = flag.String("json", "", "read operator pipeline for the run command from `file`")

var out = flag.String("out", "%auto", "save output with given filename pattern, e.g. `bkg%04d.fits`. `%auto` picks a name per command")
var jpg = flag.String("jpg", "", "save 8bit preview of output as JPEG with given filename pattern, e.g. `bkg%04d.jpg`")
var rms = flag.String("rms", "", "save background noise map with given filename pattern, e.g. `rms%04d.fits`")
var mesh = flag.String("mesh", "", "save background mesh with given filename pattern, e.g. `mesh%04d.fits`")
var rmsMesh = flag.String("rmsMesh", "", "save background noise mesh with given filename pattern")
var sub = flag.String("sub", "", "with bkg, also save background subtracted frames with given filename pattern")
var plotPattern = flag.String("plot", "", "save profile plot through the middle row with given filename pattern, e.g. `prof%04d.png`")

var box = flag.String("box", defaults.Box.String(), "background box size in pixels, `HxW` or a single number for square boxes")
var filter = flag.String("filter", defaults.Filter.String(), "median filter over the background mesh in boxes, `HxW`, 1x1=off")
var method = flag.String("method", defaults.Method, "background estimator, one of sextractor, mean, median, mode_estimate")
var sigma = flag.Float64("sigma", defaults.SigClipSigma, "sigma clipping threshold in standard deviations")
var iters = flag.Int("iters", defaults.SigClipIters, "maximum sigma clipping iterations, 0=until converged")
var mask = flag.String("mask", "", "exclude non-zero pixels of mask image with given filename pattern from estimation")
var pedestal = flag.Float64("pedestal", 0, "add pedestal after background subtraction")

var width = flag.Int("width", 1024, "synth: image width in pixels")
var height = flag.Int("height", 1024, "synth: image height in pixels")
var level = flag.Float64("level", 1000, "synth: sky level at image center")
var gradX = flag.Float64("gradX", 0.5, "synth: sky gradient per pixel to the right")
var gradY = flag.Float64("gradY", -0.25, "synth: sky gradient per pixel downwards")
var noise = flag.Float64("noise", 10, "synth: standard deviation of the noise")
var stars = flag.Int("stars", 500, "synth: number of stars")
var seed = flag.Uint("seed", 1, "synth: random seed")
var truth = flag.String("truth", "", "synth: save true background to `file`")

var addr = flag.String("addr", ":8080", "serve: listen on given address")
var chroot = flag.String("chroot", "", "serve: chroot to given directory before serving (requires root)")
var setuid = flag.Int("setuid", -1, "serve: change to given user id before serving, -1=keep")

func main() {
	logWriter := nl.LogWriter()
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `Skymesh Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (bkg|sub|synth|run|serve|legal|version|help) (img0.fits ... imgn.fits)

Commands:
  bkg     Estimate the background of input images, save background and noise maps
  sub     Subtract the estimated background from input images
  synth   Generate a synthetic sky frame with known background
  run     Run an operator pipeline read from the -json file
  serve   Serve the HTTP API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	c := ops.NewContext(logWriter)
	if *threads > 0 {
		c.MaxThreads = *threads
	}

	var err error
	switch args[0] {
	case "bkg", "sub", "synth", "run", "serve":
		fmt.Fprintf(logWriter, "Running on %s with %d logical cores, AVX2 %v, %d MiB memory, %d threads\n",
			cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2(), c.MemoryMB, c.MaxThreads)
	}

	switch args[0] {
	case "bkg":
		err = cmdBkg(args[1:], c)

	case "sub":
		err = cmdSub(args[1:], c)

	case "synth":
		err = cmdSynth(c)

	case "run":
		err = cmdRun(c)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			c.Sandboxed = true
			err = rest.NewServer(c).Run(*addr)
		}

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	now := time.Now()
	elapsed := now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		nl.LogClose()
		os.Exit(-1)
	}
	nl.LogClose()
}

// Parses a shape given as HxW, or as a single number for a square
func parseShape(s string) (background.Shape, error) {
	hs, ws, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		ws = hs
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil {
		return background.Shape{}, fmt.Errorf("invalid shape '%s': %w", s, err)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil {
		return background.Shape{}, fmt.Errorf("invalid shape '%s': %w", s, err)
	}
	return background.Shape{H: h, W: w}, nil
}

// Parses the estimator flags into settings
func settingsFromFlags() (s bkg.Settings, err error) {
	s = bkg.DefaultSettings()
	if s.Box, err = parseShape(*box); err != nil {
		return s, err
	}
	if s.Filter, err = parseShape(*filter); err != nil {
		return s, err
	}
	if _, err = background.ParseMethod(*method); err != nil {
		return s, err
	}
	s.Method, s.SigClipSigma, s.SigClipIters, s.MaskPattern = *method, *sigma, *iters, *mask
	return s, nil
}

// Resolves the %auto output pattern to the given default
func outPattern(def string) string {
	if *out == "%auto" {
		return def
	}
	return *out
}

// Runs a pipeline which loads the given files and applies the given steps to each
func runPerFile(files []string, c *ops.Context, steps ...ops.Operator) (ops.Operator, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files given")
	}
	pipeline := ops.NewOpSequence(ops.NewOpLoadMany(files), ops.NewOpForEach(ops.NewOpSequence(steps...)))
	if err := runPipeline(pipeline, c); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// Prints a pipeline, runs it to completion and logs the background summaries
func runPipeline(pipeline ops.Operator, c *ops.Context) error {
	m, err := json.MarshalIndent(pipeline, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "Running pipeline:\n%s\n", string(m))

	promises, err := pipeline.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeAll(promises, imageThreads(c), true)
	logSummaries(c.Log, bkg.CollectResults(pipeline))
	return err
}

// Number of images processed concurrently. Each estimator parallelizes internally as well
func imageThreads(c *ops.Context) int {
	n := c.MaxThreads / 4
	if n < 1 {
		n = 1
	}
	return n
}

func logSummaries(w io.Writer, sums []bkg.Summary) {
	if len(sums) == 0 {
		return
	}
	fmt.Fprintf(w, "\nBackground of %d images:\n", len(sums))
	for _, s := range sums {
		fmt.Fprintln(w, s.String())
	}
}

// Perform background estimation command
func cmdBkg(files []string, c *ops.Context) error {
	s, err := settingsFromFlags()
	if err != nil {
		return err
	}
	opBkg := bkg.NewOpBackground(s, bkg.OutputBackground)
	opBkg.MeshPattern, opBkg.RMSMeshPattern, opBkg.RMSPattern = *mesh, *rmsMesh, *rms
	opBkg.PlotPattern, opBkg.SubPattern, opBkg.Pedestal = *plotPattern, *sub, float32(*pedestal)
	_, err = runPerFile(files, c, opBkg, ops.NewOpSave(outPattern("bkg%04d.fits")), ops.NewOpSave(*jpg))
	return err
}

// Perform background subtraction command
func cmdSub(files []string, c *ops.Context) error {
	s, err := settingsFromFlags()
	if err != nil {
		return err
	}
	_, err = runPerFile(files, c,
		bkg.NewOpSubtract(s, float32(*pedestal)),
		ops.NewOpSave(outPattern("sub%04d.fits")),
		ops.NewOpSave(*jpg),
	)
	return err
}

// Perform synthetic frame generation command
func cmdSynth(c *ops.Context) error {
	p := synth.Params{
		Width: *width, Height: *height,
		Level: *level, GradientX: *gradX, GradientY: *gradY,
		Noise: *noise, Stars: *stars, StarFlux: 500 * *noise, StarSigma: 1.5,
		Seed: uint32(*seed),
	}
	frame, err := synth.Generate(p)
	if err != nil {
		return err
	}
	img, err := fits.NewImageFromFloat64(0, frame.Image, frame.Width, frame.Height)
	if err != nil {
		return err
	}
	img.Header.Strings["CREATOR"] = "skymesh synth"
	if err = ops.SaveImage(img, ops.ExpandPattern(outPattern("synth.fits"), 0), c); err != nil {
		return err
	}
	if *jpg != "" {
		if err = ops.SaveImage(img, ops.ExpandPattern(*jpg, 0), c); err != nil {
			return err
		}
	}
	if *truth != "" {
		t, err := fits.NewImageFromFloat64(0, frame.Background, frame.Width, frame.Height)
		if err != nil {
			return err
		}
		return ops.SaveImage(t, *truth, c)
	}
	return nil
}

// Run an operator pipeline from a JSON file
func cmdRun(c *ops.Context) error {
	if *jsonFile == "" {
		return fmt.Errorf("run needs a pipeline given with -json")
	}
	bs, err := os.ReadFile(*jsonFile)
	if err != nil {
		return err
	}
	pipeline, err := ops.UnmarshalOperator(bs)
	if err != nil {
		return err
	}
	return runPipeline(pipeline, c)
}
