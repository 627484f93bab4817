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

import "errors"

var (
	// The mask does not match the image, or the image does not match its dimensions
	ErrShapeMismatch = errors.New("shape mismatch")

	// An option is out of range, or the estimation method is unknown
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// A summary statistic was requested over zero usable pixels
	ErrNoData = errors.New("no unmasked data")
)
