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

package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLogAlsoToFile(t *testing.T) {
	var console bytes.Buffer
	prev := setLogOutput(&console)
	defer setLogOutput(prev)

	fileName := filepath.Join(t.TempDir(), "test.log")
	if err := LogAlsoToFile(fileName); err != nil {
		t.Fatal(err)
	}
	LogPrintf("%d: %s\n", 3, "hello")
	LogPrintln("world")
	if err := LogClose(); err != nil {
		t.Fatal(err)
	}
	LogPrint("console only")

	want := "3: hello\nworld\n"
	if got := console.String(); got != want+"console only" {
		t.Errorf("console got %q; want %q", got, want+"console only")
	}
	bs, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != want {
		t.Errorf("log file got %q; want %q", string(bs), want)
	}
}

func TestLogAlsoToFileBadPath(t *testing.T) {
	if err := LogAlsoToFile(filepath.Join(t.TempDir(), "missing", "test.log")); err == nil {
		t.Errorf("got nil error; want error for missing directory")
	}
}
