package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/piwi3910/bakery/internal/engine"
	"github.com/piwi3910/bakery/internal/export"
	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/project"
	"github.com/piwi3910/bakery/internal/protocol"
)

var (
	errBadRequest = errors.New("bad request")
	errNoResult   = errors.New("no valid result")
)

// wireJobPrefix opens a job in protocol form.
const wireJobPrefix = "plugininput_begin"

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type timeLimitBody struct {
	Msec *int `json:"msec"`
}

type terminateRequest struct {
	Worker string `json:"worker"`
	Msec   int    `json:"msec"`
}

type rowView struct {
	Worker     string  `json:"worker"`
	Valid      bool    `json:"valid"`
	ExitCode   int     `json:"exit_code"`
	Sheets     int     `json:"sheets"`
	Shapes     int     `json:"shapes"`
	Score      float64 `json:"score"`
	Density    float64 `json:"density"`
	Waste      float64 `json:"waste"`
	DurationMs int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

type runView struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	Done      bool      `json:"done"`
	Shapes    int       `json:"shapes"`
	Running   []string  `json:"running"`
	Workers   []rowView `json:"workers"`
	Best      string    `json:"best,omitempty"`
	BestScore float64   `json:"best_score,omitempty"`
}

func viewRun(r *engine.Run) runView {
	reports := r.Reports()
	byName := make(map[string]engine.WorkerReport, len(reports))
	for _, rep := range reports {
		byName[rep.Worker] = rep
	}

	rows := engine.CompareWorkers(reports)
	views := make([]rowView, 0, len(rows))
	for _, row := range rows {
		rep := byName[row.Worker]
		v := rowView{
			Worker:     row.Worker,
			Valid:      row.Valid,
			ExitCode:   rep.ExitCode,
			Sheets:     row.SheetsUsed,
			Shapes:     row.ShapesPlaced,
			Score:      row.Score,
			Density:    row.Density,
			Waste:      row.WastePercent,
			DurationMs: row.Duration.Milliseconds(),
		}
		if rep.Err != nil {
			v.Error = rep.Err.Error()
		}
		views = append(views, v)
	}

	running := r.Running()
	if running == nil {
		running = []string{}
	}
	view := runView{
		ID:      r.ID(),
		Started: r.Started(),
		Done:    isDone(r),
		Shapes:  len(r.Job().Shapes),
		Running: running,
		Workers: views,
	}
	if name, best, ok := engine.FindBestOutput(r.Outputs()); ok {
		view.Best = name
		view.BestScore = best.Score()
	}
	return view
}

func isDone(r *engine.Run) bool {
	select {
	case <-r.Done():
		return true
	default:
		return false
	}
}

func (s *Server) listWorkers(c *gin.Context) {
	workers := s.o.Workers()
	if workers == nil {
		workers = []engine.WorkerInfo{}
	}
	c.JSON(http.StatusOK, workers)
}

func (s *Server) setWorkerEnabled(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		fail(c, fmt.Errorf("%w: expected {\"enabled\": bool}", errBadRequest))
		return
	}
	name := c.Param("name")
	if err := s.o.SetWorkerEnabled(name, *req.Enabled); err != nil {
		fail(c, err)
		return
	}
	s.persist()
	info, err := s.o.Worker(name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getTimeLimit(c *gin.Context) {
	msec := s.o.TimeLimit()
	c.JSON(http.StatusOK, timeLimitBody{Msec: &msec})
}

func (s *Server) setTimeLimit(c *gin.Context) {
	var req timeLimitBody
	if err := c.ShouldBindJSON(&req); err != nil || req.Msec == nil {
		fail(c, fmt.Errorf("%w: expected {\"msec\": int}", errBadRequest))
		return
	}
	s.o.SetTimeLimit(*req.Msec)
	s.persist()
	s.getTimeLimit(c)
}

func (s *Server) listRuns(c *gin.Context) {
	runs := s.o.Runs()
	views := make([]runView, 0, len(runs))
	for _, r := range runs {
		views = append(views, viewRun(r))
	}
	c.JSON(http.StatusOK, views)
}

// decodeJob accepts a plain-text job file or a protocol job.
func decodeJob(body []byte) (model.PackingJob, error) {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return model.PackingJob{}, fmt.Errorf("%w: empty job", errBadRequest)
	}
	if strings.HasPrefix(text, wireJobPrefix) {
		return protocol.UnmarshalJob(text)
	}
	return project.DecodeJob(strings.NewReader(text))
}

func (s *Server) createRun(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJobBytes))
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	job, err := decodeJob(body)
	if err != nil {
		fail(c, err)
		return
	}

	wait := c.Query("wait") == "true"
	r, err := s.o.ComputeAllOutputs(c.Request.Context(), job, wait)
	if r == nil {
		fail(c, err)
		return
	}
	if err != nil {
		s.log.Error(err, "Run interrupted", "run", r.ID())
	}

	status := http.StatusAccepted
	if wait {
		status = http.StatusOK
	}
	c.Header("Location", "/api/runs/"+r.ID())
	c.JSON(status, viewRun(r))
}

func (s *Server) run(c *gin.Context) (*engine.Run, bool) {
	r, err := s.o.Run(c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return r, true
}

func (s *Server) getRun(c *gin.Context) {
	r, ok := s.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewRun(r))
}

// result picks the output named by the worker query parameter, or the best
// one.
func result(c *gin.Context, r *engine.Run) (string, model.PackingResult, error) {
	outputs := r.Outputs()
	if name := c.Query("worker"); name != "" {
		res, ok := outputs[name]
		if !ok {
			return "", model.PackingResult{}, fmt.Errorf("%w from %q", errNoResult, name)
		}
		return name, res, nil
	}
	name, res, ok := engine.FindBestOutput(outputs)
	if !ok {
		return "", model.PackingResult{}, errNoResult
	}
	return name, res, nil
}

func (s *Server) getResult(c *gin.Context) {
	r, ok := s.run(c)
	if !ok {
		return
	}
	name, res, err := result(c, r)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("X-Bakery-Worker", name)

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, res)
	case "text":
		var buf bytes.Buffer
		if err := project.EncodeResult(&buf, res); err != nil {
			fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	case "wire":
		line, err := protocol.MarshalResult(res)
		if err != nil {
			fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(line))
	default:
		fail(c, fmt.Errorf("%w: unknown format %q", errBadRequest, c.Query("format")))
	}
}

func (s *Server) getSheetPNG(c *gin.Context) {
	r, ok := s.run(c)
	if !ok {
		return
	}
	_, res, err := result(c, r)
	if err != nil {
		fail(c, err)
		return
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 || n > len(res.Sheets) {
		fail(c, fmt.Errorf("%w: sheet %q out of range 1..%d", errBadRequest, c.Param("n"), len(res.Sheets)))
		return
	}
	scale := export.DefaultPixelsPerUnit
	if v := c.Query("scale"); v != "" {
		if scale, err = strconv.ParseFloat(v, 64); err != nil || scale <= 0 {
			fail(c, fmt.Errorf("%w: invalid scale %q", errBadRequest, v))
			return
		}
	}

	var buf bytes.Buffer
	if v := c.Query("fit"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			fail(c, fmt.Errorf("%w: invalid fit %q", errBadRequest, v))
			return
		}
		if err := export.WriteThumbnail(&buf, res.Sheets[n-1], size, size); err != nil {
			fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
		return
	}
	if err := export.WritePNG(&buf, res.Sheets[n-1], scale); err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) terminateRun(c *gin.Context) {
	r, ok := s.run(c)
	if !ok {
		return
	}
	var req terminateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	if req.Msec < 0 {
		fail(c, fmt.Errorf("%w: negative msec", errBadRequest))
		return
	}

	var err error
	if req.Worker != "" {
		err = r.Terminate(req.Worker, req.Msec)
	} else {
		err = r.TerminateAll(req.Msec)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, viewRun(r))
}
