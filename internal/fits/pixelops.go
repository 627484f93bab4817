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

package fits

import (
	"fmt"
	"math"
	"runtime"
)

// A pixel function. Operates in-place on a contiguous range of pixels starting at
// the given offset. For parallelization across CPUs.
type PixelFunction func(data []float32, offset int)

// Apply given pixel function to the image. Uses thread parallelism across all available CPUs. Operates in-place.
func (f *Image) ApplyPixelFunction(pf PixelFunction) {
	data := f.Data

	// split into 8*NumCPU() work packages, limit parallelism to NumCPUS()
	numBatches := 8 * runtime.NumCPU()
	batchSize := (len(data) + numBatches - 1) / numBatches
	if batchSize == 0 {
		return
	}
	sem := make(chan bool, runtime.NumCPU())
	for lower := 0; lower < len(data); lower += batchSize {
		upper := lower + batchSize
		if upper > len(data) {
			upper = len(data)
		}

		sem <- true
		go func(lower, upper int) {
			pf(data[lower:upper], lower)
			<-sem
		}(lower, upper)
	}

	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
}

// Subtracts the given values pixel by pixel, then adds the pedestal. Pixels under
// the mask are set to NaN. Operates in-place.
func (f *Image) Subtract(values []float64, mask []bool, pedestal float32) error {
	if len(values) != len(f.Data) {
		return fmt.Errorf("%d: cannot subtract %d values from %s pixel image", f.ID, len(values), f.DimensionsToString())
	}
	if mask != nil && len(mask) != len(f.Data) {
		return fmt.Errorf("%d: mask of %d pixels for %s pixel image", f.ID, len(mask), f.DimensionsToString())
	}
	nan := float32(math.NaN())
	f.ApplyPixelFunction(func(data []float32, offset int) {
		for i, d := range data {
			if mask != nil && mask[offset+i] {
				data[i] = nan
			} else {
				data[i] = d - float32(values[offset+i]) + pedestal
			}
		}
	})
	return nil
}
