// Package recorder materializes a timed capture of the live ring buffers
// into a snapshot artifact, without disrupting ongoing acquisition.
//
// A capture is a long-running synchronous operation: readiness wait, then
// the caller's warm-up delay, then the capture duration, then one snapshot
// of every buffer. The snapshot holds whatever each bounded buffer
// contains at that instant, so the result is capped at the buffer window
// regardless of the requested duration.
package recorder

import (
	"context"
	"time"

	"codeberg.org/velka/musedaq/internal/buffer"
	"codeberg.org/velka/musedaq/internal/device"
	"codeberg.org/velka/musedaq/internal/errors"
	"codeberg.org/velka/musedaq/internal/logger"
)

// Source is the read-only view of the acquisition session the recorder
// needs. *stream.Session satisfies it.
type Source interface {
	Running() bool
	Ready() bool
	Groups() []device.Group
	Snapshots() map[string][][]float64
}

// Config bounds the recorder's waits
type Config struct {
	ReadyTimeout time.Duration // bound on the readiness wait
	ReadyPoll    time.Duration // readiness poll interval
	ReadySettle  time.Duration // extra fill time after a readiness wait
	Dir          string        // artifact directory
}

const (
	defaultReadyTimeout = 30 * time.Second
	defaultReadyPoll    = 500 * time.Millisecond
	defaultReadySettle  = 2 * time.Second
)

// GroupRecording is one group's captured matrix plus its metadata
type GroupRecording struct {
	Name     string
	Channels []string
	Rate     int
	// Data is channel-major: Data[ch][i]. Groups with no samples carry
	// zero-length rows, one per channel, never fewer.
	Data [][]float64
}

// Recording is the assembled capture, ready to be written out
type Recording struct {
	Groups    []GroupRecording
	Duration  time.Duration // requested capture duration
	Delay     time.Duration // requested warm-up delay
	Timestamp time.Time     // capture completion, wall clock
}

// Recorder produces Recordings from a live session
type Recorder struct {
	src Source
	cfg Config
}

func New(src Source, cfg Config) *Recorder {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.ReadyPoll <= 0 {
		cfg.ReadyPoll = defaultReadyPoll
	}
	if cfg.ReadySettle <= 0 {
		cfg.ReadySettle = defaultReadySettle
	}

	return &Recorder{src: src, cfg: cfg}
}

// Capture waits out delay, then duration, then snapshots every group.
// It requires the acquisition loop to be running already; there is no
// implicit start. The ctx cancels any of the waits.
func (r *Recorder) Capture(ctx context.Context, duration, delay time.Duration) (*Recording, error) {
	errFactory := errors.New()

	if !r.src.Running() {
		return nil, errFactory.New(ErrNotStreaming)
	}

	if err := r.waitReady(ctx); err != nil {
		return nil, err
	}

	logger.Info().
		Dur("delay", delay).
		Dur("duration", duration).
		Msg("Recording started")

	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	if err := sleepCtx(ctx, duration); err != nil {
		return nil, err
	}

	rec := &Recording{
		Duration:  duration,
		Delay:     delay,
		Timestamp: time.Now(),
	}

	snaps := r.src.Snapshots()
	for _, g := range r.src.Groups() {
		rec.Groups = append(rec.Groups, GroupRecording{
			Name:     g.Name,
			Channels: g.Channels,
			Rate:     g.Rate,
			Data:     buffer.ChannelMajor(snaps[g.Name], len(g.Channels)),
		})
	}

	logger.Info().Time("timestamp", rec.Timestamp).Msg("Recording captured")

	return rec, nil
}

// waitReady polls the session's ready flag at a fixed interval up to the
// configured bound. Timing out is a reported failure with cause, never
// silently substituted with fabricated data.
func (r *Recorder) waitReady(ctx context.Context) error {
	if r.src.Ready() {
		return nil
	}

	logger.Info().Msg("Waiting for headset data stream...")

	deadline := time.Now().Add(r.cfg.ReadyTimeout)
	ticker := time.NewTicker(r.cfg.ReadyPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.New().Wrap(ErrCancelled, ctx.Err())
		case <-ticker.C:
			if r.src.Ready() {
				// Give the buffers a moment to fill
				return sleepCtx(ctx, r.cfg.ReadySettle)
			}
			if time.Now().After(deadline) {
				return errors.New().WithMessage(ErrReadyTimeout,
					"Timeout waiting for headset data stream; check the device connection")
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.New().Wrap(ErrCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
