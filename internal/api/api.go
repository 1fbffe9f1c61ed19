// Package api exposes the read surface of the acquisition service over
// HTTP: health, live windows, decoded insights, and recording jobs.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/velka/musedaq/internal/errors"
	"codeberg.org/velka/musedaq/internal/insights"
	"codeberg.org/velka/musedaq/internal/logger"
	"codeberg.org/velka/musedaq/internal/stream"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Streamer is the session view the handlers need. *stream.Session
// satisfies it.
type Streamer interface {
	Status() stream.Status
	Window(group string, seconds int) ([][]float64, error)
}

// Capturer runs recording jobs. *recorder.Recorder satisfies it.
type Capturer interface {
	CaptureToFile(ctx context.Context, duration, delay time.Duration, format string) (string, error)
}

// Controller wires the HTTP routes to the acquisition session
type Controller struct {
	Echo *echo.Echo

	session  Streamer
	capturer Capturer
	jobs     *jobRegistry

	windowSeconds int
}

// NewController builds the echo instance and registers every route
func NewController(session Streamer, capturer Capturer, windowSeconds int) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger)

	c := &Controller{
		Echo:          e,
		session:       session,
		capturer:      capturer,
		jobs:          newJobRegistry(),
		windowSeconds: windowSeconds,
	}

	e.GET("/health", c.Health)
	e.GET("/eeg/window", c.EEGWindow)
	e.GET("/student/insights", c.StudentInsights)
	e.POST("/recordings", c.StartRecording)
	e.GET("/recordings/:id", c.RecordingStatus)

	return c
}

// Start serves until the listener fails or Shutdown is called
func (c *Controller) Start(addr string) error {
	if err := c.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return errors.New().Wrap(ErrServerFailed, err)
	}

	return nil
}

// Shutdown drains in-flight requests within the ctx deadline
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		logger.Debug().
			Str("method", ctx.Request().Method).
			Str("path", ctx.Request().URL.Path).
			Int("status", ctx.Response().Status).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")

		return err
	}
}

// errorBody is the uniform error payload
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// codedError maps domain error codes onto HTTP statuses. Unrecognized
// errors are internal.
func codedError(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.HasCode(err, stream.ErrNotStarted):
		status = http.StatusServiceUnavailable
	case errors.HasCode(err, stream.ErrUnknownGroup):
		status = http.StatusNotFound
	}

	return ctx.JSON(status, errorBody{
		Error: err.Error(),
		Code:  string(errors.CodeOf(err)),
	})
}

// healthResponse reports liveness plus the acquisition loop's condition
type healthResponse struct {
	Status              string  `json:"status"`
	StreamingStatus     string  `json:"streaming_status"`
	TimeSinceLastUpdate float64 `json:"time_since_last_update,omitempty"`
	BufferSize          int     `json:"buffer_size"`
}

// Health reports ok whenever the process serves, with the streaming
// condition alongside. A stale or never-started stream is not a process
// failure.
func (c *Controller) Health(ctx echo.Context) error {
	st := c.session.Status()

	streaming := "not_started"
	switch {
	case st.Stale:
		streaming = "stale"
	case st.State == stream.StateStreaming:
		streaming = "active"
	case st.State == stream.StateConnecting:
		streaming = "connecting"
	case st.State == stream.StateStopped:
		streaming = "stopped"
	}

	resp := healthResponse{
		Status:          "ok",
		StreamingStatus: streaming,
		BufferSize:      st.Buffers["eeg"],
	}
	if !st.LastUpdate.IsZero() {
		resp.TimeSinceLastUpdate = st.LastUpdateAge.Seconds()
	}

	return ctx.JSON(http.StatusOK, resp)
}

// windowResponse carries one channel-major EEG window
type windowResponse struct {
	Data          [][]float64 `json:"data"`
	Channels      int         `json:"channels"`
	Samples       int         `json:"samples"`
	WindowSeconds int         `json:"window_seconds"`
}

// EEGWindow returns the most recent seconds of EEG data. The seconds
// query parameter defaults to the configured window and is capped by the
// buffer's own span.
func (c *Controller) EEGWindow(ctx echo.Context) error {
	seconds := c.windowSeconds
	if raw := ctx.QueryParam("seconds"); raw != "" {
		n, err := parsePositiveInt(raw)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, errorBody{
				Error: "seconds must be a positive integer",
				Code:  string(ErrBadRequest),
			})
		}
		seconds = n
	}

	win, err := c.session.Window("eeg", seconds)
	if err != nil {
		return codedError(ctx, err)
	}

	samples := 0
	if len(win) > 0 {
		samples = len(win[0])
	}

	return ctx.JSON(http.StatusOK, windowResponse{
		Data:          win,
		Channels:      len(win),
		Samples:       samples,
		WindowSeconds: seconds,
	})
}

// StudentInsights decodes the live EEG window into cognitive metrics
func (c *Controller) StudentInsights(ctx echo.Context) error {
	win, err := c.session.Window("eeg", c.windowSeconds)
	if err != nil {
		return codedError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, insights.Decode(win))
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New().WithData(ErrBadRequest, raw)
	}

	return n, nil
}
