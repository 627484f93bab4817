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
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// Keys written from the image structure, never copied from the header maps
var reservedKeys = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "NAXIS1": true, "NAXIS2": true, "NAXIS3": true,
	"BZERO": true, "BSCALE": true, "EXTEND": true, "EXPTIME": true, "EXPOSURE": true, "END": true,
}

// Writes an in-memory FITS image to a file with given filename. Compresses
// with gzip if the name ends in .gz or .gzip. Creates/overwrites the file if necessary
func (fits *Image) WriteFile(fileName string) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	lower := strings.ToLower(fileName)
	if strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".gzip") {
		gz := gzip.NewWriter(f)
		if err := fits.Write(gz); err != nil {
			return err
		}
		return gz.Close()
	}

	w := bufio.NewWriter(f)
	if err := fits.Write(w); err != nil {
		return err
	}
	return w.Flush()
}

// Writes an in-memory FITS image to an io.Writer as 32-bit floating point data.
func (fits *Image) Write(f io.Writer) error {
	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	writeInt32(&sb, "BITPIX", -32, "32-bit floating point")
	writeInt32(&sb, "NAXIS", int32(len(fits.Naxisn)), "[1] Number of axis")
	for i := 0; i < len(fits.Naxisn); i++ {
		writeInt32(&sb, fmt.Sprintf("NAXIS%d", i+1), fits.Naxisn[i], "[1] Axis size")
	}
	writeFloat32(&sb, "BZERO", fits.Bzero, "[1] Zero offset")
	writeFloat32(&sb, "BSCALE", fits.Bscale, "[1] Value scale")
	if fits.Exposure != 0 {
		writeFloat32(&sb, "EXPTIME", fits.Exposure, "[s] Exposure time")
	}
	fits.Header.write(&sb)
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	if bytesInHeaderBlock := sb.Len() % fitsBlockSize; bytesInHeaderBlock > 0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-bytesInHeaderBlock))
	}

	// Write header block(s)
	if _, err := io.WriteString(f, sb.String()); err != nil {
		return err
	}

	// Write payload data, replacing NaNs with zeros for compatibility
	if err := writeFloat32Array(f, fits.Data, true); err != nil {
		return err
	}

	// Pad data block with zeros
	if bytesInDataBlock := (len(fits.Data) * 4) % fitsBlockSize; bytesInDataBlock > 0 {
		_, err := f.Write(make([]byte, fitsBlockSize-bytesInDataBlock))
		return err
	}
	return nil
}

// Writes the user keys of the header in sorted order, followed by comments and history
func (h *Header) write(w io.Writer) {
	for _, k := range sortedKeys(h.Bools) {
		writeBool(w, k, h.Bools[k], "")
	}
	for _, k := range sortedKeys(h.Ints) {
		writeInt32(w, k, h.Ints[k], "")
	}
	for _, k := range sortedKeys(h.Floats) {
		writeFloat32(w, k, h.Floats[k], "")
	}
	for _, k := range sortedKeys(h.Strings) {
		writeString(w, k, h.Strings[k], "")
	}
	for _, c := range h.Comments {
		writeCommentary(w, "COMMENT", c)
	}
	for _, c := range h.History {
		writeCommentary(w, "HISTORY", c)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !reservedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header int32 value
func writeInt32(w io.Writer, key string, value int32, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float32 value. Always includes a decimal point or exponent,
// so the value reads back as a float
func writeFloat32(w io.Writer, key string, value float32, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	if len(comment) > 47 {
		comment = comment[0:47]
	}
	s := fmt.Sprintf("%.9G", value)
	if !strings.Contains(s, ".") {
		if i := strings.Index(s, "E"); i >= 0 {
			s = s[:i] + "." + s[i:]
		} else {
			s += "."
		}
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, s, comment)
}

// Writes a FITS header string value of at most 68 characters, with quotes escaped
func writeString(w io.Writer, key, value, comment string) {
	if len(key) > 8 {
		key = key[0:8]
	}
	value = strings.ReplaceAll(value, "'", "''")
	if len(value) > 68 {
		value = value[:68]
	}
	field := fmt.Sprintf("'%-8s'", value)
	rest := 70 - len(field)
	if rest > 3 && comment != "" {
		if len(comment) > rest-3 {
			comment = comment[:rest-3]
		}
		field = fmt.Sprintf("%-20s / %s", field, comment)
	}
	fmt.Fprintf(w, "%-8s= %-70s", key, field)
}

// Writes a COMMENT or HISTORY line, truncated to fit
func writeCommentary(w io.Writer, key, text string) {
	if len(text) > 72 {
		text = text[:72]
	}
	fmt.Fprintf(w, "%-8s%-72s", key, text)
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", HeaderLineSize-3))
}

// Writes FITS binary body data in network byte order.
// Optionally replaces NaNs with zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32, replaceNaNs bool) error {
	buf := make([]byte, bufLen)

	for block := 0; block < len(data); block += (bufLen >> 2) {
		size := len(data) - block
		if size > (bufLen >> 2) {
			size = (bufLen >> 2)
		}

		for offset := 0; offset < size; offset++ {
			d := data[block+offset]
			if replaceNaNs && math.IsNaN(float64(d)) {
				d = 0
			}
			binary.BigEndian.PutUint32(buf[offset<<2:], math.Float32bits(d))
		}
		if _, err := w.Write(buf[:(size << 2)]); err != nil {
			return err
		}
	}
	return nil
}
