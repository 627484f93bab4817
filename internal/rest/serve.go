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

// Package rest serves background estimation over an HTTP JSON API.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mlnoga/skymesh/internal/ops"
	"github.com/mlnoga/skymesh/internal/ops/bkg"
	"github.com/mlnoga/skymesh/web"
)

// Job states
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// A finished background estimation request
type Job struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Created   time.Time     `json:"created"`
	Duration  float64       `json:"durationSeconds"`
	Files     int           `json:"files"`
	Summaries []bkg.Summary `json:"summaries"`
}

// Request to estimate the background of a set of files. Either give file patterns
// and settings, or a complete operator pipeline in JSON
type BackgroundRequest struct {
	FilePatterns []string        `json:"filePatterns"`
	Settings     *bkg.Settings   `json:"settings"`    // optional, defaults if missing
	Output       string          `json:"output"`      // "background" (default) or "rms"
	Subtract     bool            `json:"subtract"`    // subtract the background instead of returning the map
	Pedestal     float32         `json:"pedestal"`    // added after subtraction
	SavePattern  string          `json:"savePattern"` // optional, %d expands to the image ID
	Pipeline     json.RawMessage `json:"pipeline"`    // optional operator, replaces all of the above
}

// Builds the operator pipeline for a request
func (r *BackgroundRequest) pipeline() (ops.Operator, error) {
	if len(r.Pipeline) > 0 && string(r.Pipeline) != "null" {
		return ops.UnmarshalOperator(r.Pipeline)
	}
	if len(r.FilePatterns) == 0 {
		return nil, errors.New("no file patterns given")
	}
	s := bkg.DefaultSettings()
	if r.Settings != nil {
		s = *r.Settings
	}
	var step ops.Operator
	if r.Subtract {
		step = bkg.NewOpSubtract(s, r.Pedestal)
	} else {
		output := r.Output
		if output == "" {
			output = bkg.OutputBackground
		}
		step = bkg.NewOpBackground(s, output)
	}
	return ops.NewOpSequence(
		ops.NewOpLoadMany(r.FilePatterns),
		ops.NewOpForEach(ops.NewOpSequence(step, ops.NewOpSave(r.SavePattern))),
	), nil
}

// HTTP server state
type Server struct {
	ctx    *ops.Context
	mu     sync.Mutex
	jobs   map[string]*Job
	router *gin.Engine
}

// Creates a server executing pipelines in the given context
func NewServer(c *ops.Context) *Server {
	s := &Server{ctx: c, jobs: map[string]*Job{}}
	r := gin.New()
	r.Use(gin.LoggerWithWriter(c.Log), gin.Recovery())
	r.GET("/", s.getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/background", s.postBackground)
			v1.GET("/background/:id", s.getBackground)
		}
	}
	s.router = r
	return s
}

// Returns the HTTP handler of the server
func (s *Server) Handler() http.Handler { return s.router }

// Listens and serves on the given address, e.g. ":8080"
func (s *Server) Run(addr string) error {
	fmt.Fprintf(s.ctx.Log, "Listening on %s\n", addr)
	return s.router.Run(addr)
}

func (s *Server) getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func (s *Server) postBackground(c *gin.Context) {
	var req BackgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := req.pipeline()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &Job{ID: uuid.New().String(), Created: time.Now()}
	fmt.Fprintf(s.ctx.Log, "Job %s: starting\n", job.ID)
	err = s.execute(op, job)
	job.Duration = time.Since(job.Created).Seconds()
	job.Summaries = bkg.CollectResults(op)
	if job.Summaries == nil {
		job.Summaries = []bkg.Summary{}
	}
	if err != nil {
		job.Status, job.Error = StatusFailed, err.Error()
	} else {
		job.Status = StatusDone
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	fmt.Fprintf(s.ctx.Log, "Job %s: %s after %.2fs\n", job.ID, job.Status, job.Duration)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "id": job.ID})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Runs a pipeline to completion, recording the number of files processed
func (s *Server) execute(op ops.Operator, job *Job) error {
	promises, err := op.MakePromises(nil, s.ctx)
	if err != nil {
		return err
	}
	job.Files = len(promises)
	_, err = ops.MaterializeAll(promises, s.ctx.MaxThreads, true)
	return err
}

func (s *Server) getBackground(c *gin.Context) {
	s.mu.Lock()
	job, ok := s.jobs[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, job)
}
