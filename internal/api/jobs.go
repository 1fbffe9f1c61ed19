package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"codeberg.org/velka/musedaq/internal/logger"
	"codeberg.org/velka/musedaq/internal/recorder"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Job statuses, in lifecycle order
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is one asynchronous recording. Path is set on success, Error on
// failure; neither before completion.
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Format    string    `json:"format"`
	Duration  float64   `json:"duration_seconds"`
	Delay     float64   `json:"delay_seconds"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*Job)}
}

func (r *jobRegistry) add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

func (r *jobRegistry) get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}

	return *j, true
}

func (r *jobRegistry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		fn(j)
	}
}

// recordingRequest is the POST /recordings body. Format defaults to json.
type recordingRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
	DelaySeconds    float64 `json:"delay_seconds"`
	Format          string  `json:"format"`
}

// StartRecording accepts a capture request and runs it in the
// background. The response is the pending job; poll GET /recordings/:id
// for the outcome.
func (c *Controller) StartRecording(ctx echo.Context) error {
	var req recordingRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody{
			Error: "invalid request body",
			Code:  string(ErrBadRequest),
		})
	}

	if req.DurationSeconds <= 0 {
		return ctx.JSON(http.StatusBadRequest, errorBody{
			Error: "duration_seconds must be positive",
			Code:  string(ErrBadRequest),
		})
	}
	if req.DelaySeconds < 0 {
		return ctx.JSON(http.StatusBadRequest, errorBody{
			Error: "delay_seconds must not be negative",
			Code:  string(ErrBadRequest),
		})
	}
	switch req.Format {
	case "":
		req.Format = recorder.FormatJSON
	case recorder.FormatJSON, recorder.FormatEDF:
	default:
		return ctx.JSON(http.StatusBadRequest, errorBody{
			Error: "format must be json or edf",
			Code:  string(ErrBadRequest),
		})
	}

	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobPending,
		Format:    req.Format,
		Duration:  req.DurationSeconds,
		Delay:     req.DelaySeconds,
		CreatedAt: time.Now(),
	}
	c.jobs.add(job)

	duration := time.Duration(req.DurationSeconds * float64(time.Second))
	delay := time.Duration(req.DelaySeconds * float64(time.Second))
	go c.runJob(job.ID, duration, delay, req.Format)

	return ctx.JSON(http.StatusAccepted, job)
}

func (c *Controller) runJob(id string, duration, delay time.Duration, format string) {
	c.jobs.update(id, func(j *Job) { j.Status = JobRunning })

	path, err := c.capturer.CaptureToFile(context.Background(), duration, delay, format)
	if err != nil {
		logger.Error().Err(err).Str("job", id).Msg("Recording job failed")
		c.jobs.update(id, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
		})
		return
	}

	logger.Info().Str("job", id).Str("path", path).Msg("Recording job finished")
	c.jobs.update(id, func(j *Job) {
		j.Status = JobDone
		j.Path = path
	})
}

// RecordingStatus returns the job for an id issued by StartRecording
func (c *Controller) RecordingStatus(ctx echo.Context) error {
	job, ok := c.jobs.get(ctx.Param("id"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, errorBody{
			Error: "no such recording job",
			Code:  string(ErrJobNotFound),
		})
	}

	return ctx.JSON(http.StatusOK, job)
}
