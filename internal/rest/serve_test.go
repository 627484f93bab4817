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

package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/skymesh/internal/fits"
	"github.com/mlnoga/skymesh/internal/ops"
	"github.com/mlnoga/skymesh/internal/synth"
)

func newTestServer(sandboxed bool) *Server {
	gin.SetMode(gin.TestMode)
	c := ops.NewContext(io.Discard)
	c.Sandboxed = sandboxed
	return NewServer(c)
}

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		frame, err := synth.Generate(synth.Params{Width: 32, Height: 32, Level: 200, Noise: 4, Seed: uint32(i + 1)})
		require.NoError(t, err)
		f, err := fits.NewImageFromFloat64(i, frame.Image, frame.Width, frame.Height)
		require.NoError(t, err)
		require.NoError(t, f.WriteFile(filepath.Join(dir, fmt.Sprintf("frame%d.fits", i))))
	}
}

func do(s *Server, method, url, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := do(newTestServer(false), "GET", "/api/v1/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestIndex(t *testing.T) {
	w := do(newTestServer(false), "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/v1/background")
}

func TestPostBackground(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 2)
	s := newTestServer(false)

	body := fmt.Sprintf(`{"filePatterns":[%q],
		"settings":{"box":{"h":8,"w":8},"filter":{"h":3,"w":3},"method":"sextractor","sigClipSigma":3},
		"savePattern":%q}`, filepath.Join(dir, "frame*.fits"), filepath.Join(dir, "bkg%d.fits"))
	w := do(s, "POST", "/api/v1/background", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	_, err := uuid.Parse(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusDone, job.Status)
	assert.Equal(t, 2, job.Files)
	require.Len(t, job.Summaries, 2)
	for _, sum := range job.Summaries {
		assert.InDelta(t, 200, sum.Median, 2)
		assert.Equal(t, 4, sum.MeshRows)
	}
	for i := 0; i < 2; i++ {
		_, err := os.Stat(filepath.Join(dir, fmt.Sprintf("bkg%d.fits", i)))
		assert.NoError(t, err)
	}

	w = do(s, "GET", "/api/v1/background/"+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var again Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, job.ID, again.ID)
	assert.Len(t, again.Summaries, 2)
}

func TestPostBackgroundPipeline(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 1)
	s := newTestServer(false)

	body := fmt.Sprintf(`{"pipeline":{"type":"seq","active":true,"steps":[
		{"type":"load","active":true,"id":7,"fileName":%q},
		{"type":"subtract","active":true,"box":{"h":8,"w":8},"filter":{"h":1,"w":1},"method":"median","sigClipSigma":3,"pedestal":50}]}}`,
		filepath.Join(dir, "frame0.fits"))
	w := do(s, "POST", "/api/v1/background", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.Len(t, job.Summaries, 1)
	assert.Equal(t, 7, job.Summaries[0].ID)
	assert.Equal(t, "median", job.Summaries[0].Method)
}

func TestPostBackgroundErrors(t *testing.T) {
	s := newTestServer(false)
	for _, body := range []string{
		`{not json`,
		`{}`,
		`{"pipeline":{"type":"nonsense"}}`,
		`{"filePatterns":["/nonexistent/*.fits"]}`,
	} {
		w := do(s, "POST", "/api/v1/background", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "error", body)
	}
}

func TestSandboxRejectsAbsolutePaths(t *testing.T) {
	s := newTestServer(true)
	body := `{"pipeline":{"type":"load","active":true,"id":0,"fileName":"/etc/passwd"}}`
	w := do(s, "POST", "/api/v1/background", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "outside current directory tree")
}

func TestUnknownJob(t *testing.T) {
	w := do(newTestServer(false), "GET", "/api/v1/background/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
