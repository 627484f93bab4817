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

package ops

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlnoga/skymesh/internal/fits"
)

func testImage(t *testing.T, id int) *fits.Image {
	t.Helper()
	data := make([]float64, 6*4)
	for i := range data {
		data[i] = float64(i)
	}
	f, err := fits.NewImageFromFloat64(id, data, 6, 4)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestExpandPattern(t *testing.T) {
	tests := []struct {
		pattern string
		id      int
		want    string
	}{
		{"out.fits", 3, "out.fits"},
		{"out%d.fits", 3, "out3.fits"},
		{"out%04d.fits", 12, "out0012.fits"},
	}
	for _, tc := range tests {
		if got := ExpandPattern(tc.pattern, tc.id); got != tc.want {
			t.Errorf("ExpandPattern(%q, %d) = %q; want %q", tc.pattern, tc.id, got, tc.want)
		}
	}
}

func TestIsPathAllowed(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.fits", true},
		{"sub/dir/a.fits", true},
		{"/etc/passwd", false},
		{"../a.fits", false},
		{"sub/../../a.fits", false},
	}
	for _, tc := range tests {
		if got := IsPathAllowed(tc.path); got != tc.want {
			t.Errorf("IsPathAllowed(%q) = %v; want %v", tc.path, got, tc.want)
		}
	}
}

func TestIsFITSFileName(t *testing.T) {
	for name, want := range map[string]bool{
		"a.fits": true, "a.FIT": true, "a.fts.gz": true, "a.fits.gzip": true,
		"a.tif": false, "a.png": false, "fits": false,
	} {
		if got := IsFITSFileName(name); got != want {
			t.Errorf("IsFITSFileName(%q) = %v; want %v", name, got, want)
		}
	}
}

func TestRemoveNils(t *testing.T) {
	a, b := testImage(t, 0), testImage(t, 1)
	got := RemoveNils([]*fits.Image{nil, a, nil, b, nil})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("RemoveNils got %v; want [a b]", got)
	}
}

func TestMaterializeAll(t *testing.T) {
	var ins []Promise
	for i := 0; i < 10; i++ {
		f := testImage(t, i)
		ins = append(ins, func() (*fits.Image, error) { return f, nil })
	}
	outs, err := MaterializeAll(ins, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 10 {
		t.Fatalf("got %d outputs; want 10", len(outs))
	}
	for i, f := range outs {
		if f.ID != i {
			t.Errorf("output %d has ID %d; want %d", i, f.ID, i)
		}
	}

	outs, err = MaterializeAll(ins, 2, true)
	if err != nil || len(outs) != 0 {
		t.Errorf("forgetting got %d outputs and error %v; want 0 and nil", len(outs), err)
	}

	failing := append(ins[:2:2], func() (*fits.Image, error) { return nil, errors.New("boom") })
	outs, err = MaterializeAll(failing, 2, false)
	if err == nil || err.Error() != "boom" {
		t.Errorf("got error %v; want boom", err)
	}
	if len(outs) != 2 {
		t.Errorf("got %d outputs; want 2 successful ones", len(outs))
	}
}

func TestSequenceJSON(t *testing.T) {
	seq := NewOpSequence(NewOpLoadMany([]string{"*.fits"}))
	seq.Append(NewOpForEach(NewOpSave("out%d.fits")))
	bs, err := json.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}

	op, err := UnmarshalOperator(bs)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := op.(*OpSequence)
	if !ok {
		t.Fatalf("got %T; want *OpSequence", op)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("got %d steps; want 2", len(got.Steps))
	}
	if lm, ok := got.Steps[0].(*OpLoadMany); !ok || len(lm.FilePatterns) != 1 || lm.FilePatterns[0] != "*.fits" {
		t.Errorf("step 0 got %#v; want loadMany of *.fits", got.Steps[0])
	}
	fe, ok := got.Steps[1].(*OpForEach)
	if !ok {
		t.Fatalf("step 1 got %T; want *OpForEach", got.Steps[1])
	}
	if save, ok := fe.Operation.(*OpSave); !ok || save.FilePattern != "out%d.fits" || !save.Active {
		t.Errorf("forEach operation got %#v; want active save to out%%d.fits", fe.Operation)
	}
}

func TestUnmarshalUnknownOperator(t *testing.T) {
	if _, err := UnmarshalOperator([]byte(`{"type":"nonsense","active":true}`)); err == nil {
		t.Errorf("got nil error; want error for unknown type")
	}
}

func TestLoadSavePipeline(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		if err := testImage(t, i).WriteFile(filepath.Join(dir, "in"+string(rune('a'+i))+".fits")); err != nil {
			t.Fatal(err)
		}
	}
	c := NewContext(io.Discard)
	pipeline := NewOpSequence(
		NewOpLoadMany([]string{filepath.Join(dir, "in*.fits")}),
		NewOpForEach(NewOpSave(filepath.Join(dir, "out%d.fits"))),
	)
	promises, err := pipeline.MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(promises) != 3 {
		t.Fatalf("got %d promises; want 3", len(promises))
	}
	if _, err = MaterializeAll(promises, 2, true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, ExpandPattern("out%d.fits", i))
		f, err := fits.NewImageFromFile(name, i, io.Discard)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if f.Width() != 6 || f.Height() != 4 || f.Data[7] != 7 {
			t.Errorf("%s got %s with pixel 7 = %g; want 6x4 with 7", name, f.DimensionsToString(), f.Data[7])
		}
	}
}

func TestSandboxedLoad(t *testing.T) {
	c := NewContext(io.Discard)
	c.Sandboxed = true
	if _, err := NewOpLoad(0, "/etc/passwd").MakePromises(nil, c); err == nil {
		t.Errorf("got nil error; want sandbox violation")
	}
}

func TestSaveImageFormats(t *testing.T) {
	dir := t.TempDir()
	c := NewContext(io.Discard)
	f := testImage(t, 0)
	for _, name := range []string{"a.fits", "a.fits.gz", "a.tif", "a.jpg", "a.png"} {
		fileName := filepath.Join(dir, name)
		if err := SaveImage(f, fileName, c); err != nil {
			t.Errorf("SaveImage(%s) error %v; want nil", name, err)
			continue
		}
		if st, err := os.Stat(fileName); err != nil || st.Size() == 0 {
			t.Errorf("SaveImage(%s) wrote nothing", name)
		}
	}
	if err := SaveImage(f, filepath.Join(dir, "a.xyz"), c); err == nil {
		t.Errorf("SaveImage with unknown suffix got nil error; want error")
	}
}

func TestFitsInMemory(t *testing.T) {
	c := &Context{MemoryMB: 100}
	if !c.FitsInMemory(1000 * 1000) {
		t.Errorf("1 megapixel should fit into 100 MB")
	}
	if c.FitsInMemory(100 * 1000 * 1000) {
		t.Errorf("100 megapixels should not fit into 100 MB")
	}
	if !(&Context{}).FitsInMemory(1 << 30) {
		t.Errorf("unknown memory size should not limit")
	}
}
