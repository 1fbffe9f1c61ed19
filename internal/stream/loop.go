package stream

import (
	"context"
	"time"

	"codeberg.org/velka/musedaq/internal/device"
	"codeberg.org/velka/musedaq/internal/errors"
	"codeberg.org/velka/musedaq/internal/logger"
	"codeberg.org/velka/musedaq/internal/telemetry"
)

// run is the acquisition loop. It owns the board for its whole lifetime:
// prepare, configure, stream, poll cycles, and the cleanup sequence that
// runs exactly once per loop instance regardless of the exit cause.
func (s *Session) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	prepared := false
	defer func() {
		s.mu.Lock()
		if prepared {
			s.state = StateStopped
		} else {
			s.state = StateNotStarted
		}
		s.mu.Unlock()

		if prepared {
			if err := s.board.StopStream(); err != nil {
				logger.Warn().Err(err).Msg("Failed to stop device stream")
			}
			if err := s.board.Release(); err != nil {
				logger.Warn().Err(err).Msg("Failed to release device session")
			}
		}
	}()

	logger.Info().Msg("Connecting to headset...")
	if err := s.board.Prepare(); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(device.ErrPrepareFailed, err)).
			Msg("Device prepare failed")
		return
	}
	prepared = true

	// Optional secondary feature; failure degrades but does not abort
	if err := s.board.Configure(s.configCmd); err != nil {
		logger.Warn().Err(err).Msgf("Board config %q failed, continuing without it", s.configCmd)
	} else {
		logger.Debug().Msgf("Board config %q enabled", s.configCmd)
	}

	if err := s.board.StartStream(); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(device.ErrStartFailed, err)).
			Msg("Failed to start device stream")
		return
	}
	logger.Info().Msg("Streaming started, waiting for data...")

	for {
		select {
		case <-stopCh:
			logger.Info().Msg("Stopping acquisition loop")
			return
		default:
		}

		cycleStart := time.Now()
		rows := s.cycle()

		if len(rows) > 0 {
			s.record(cycleStart, time.Since(cycleStart), rows)
		}

		// Adaptive fixed-rate cadence: sleep whatever remains of the
		// target period after this cycle's processing time.
		sleep := s.pollInterval - time.Since(cycleStart)
		if sleep > 0 {
			select {
			case <-stopCh:
				logger.Info().Msg("Stopping acquisition loop")
				return
			case <-time.After(sleep):
			}
		}
	}
}

// cycle polls every group once and appends whatever arrived. Returns the
// per-group sample counts for groups that received data.
func (s *Session) cycle() map[string]int {
	got := make(map[string]int)

	for _, g := range s.groups {
		matrix, err := s.board.Poll(g.MaxPoll, g.Preset)
		if err != nil {
			// A single bad poll must not terminate acquisition
			logger.Warn().Err(err).Msgf("Poll failed for group %s", g.Name)
			continue
		}

		n := appended(matrix, g)
		if n == 0 {
			continue
		}

		ring := s.buffers[g.Name]
		for i := 0; i < n; i++ {
			sample := make([]float64, len(g.Rows))
			for ch, row := range g.Rows {
				sample[ch] = matrix[row][i]
			}
			ring.Append(sample)
		}

		got[g.Name] = n
	}

	if len(got) > 0 {
		s.mu.Lock()
		s.lastUpdate = time.Now()
		if _, ok := got[device.GroupEEG]; ok && !s.ready {
			s.ready = true
			s.state = StateStreaming
			logger.Info().Msg("Receiving data from headset")
		}
		s.mu.Unlock()
	}

	return got
}

// appended returns the usable column count of a polled matrix for the
// group, zero when the matrix is empty or misses a mapped row
func appended(matrix [][]float64, g device.Group) int {
	if len(matrix) == 0 {
		return 0
	}
	for _, row := range g.Rows {
		if row >= len(matrix) {
			logger.Warn().Msgf("Device matrix too short for group %s: %d rows", g.Name, len(matrix))
			return 0
		}
	}

	return len(matrix[g.Rows[0]])
}

func (s *Session) record(ts time.Time, cycleTime time.Duration, rows map[string]int) {
	if s.collector == nil {
		return
	}

	snapshot := &telemetry.CycleSnapshot{
		Timestamp: ts,
		CycleTime: cycleTime,
		Ready:     s.Ready(),
		Rows:      rows,
	}

	if err := s.collector.Record(context.Background(), snapshot); err != nil {
		logger.Debug().Err(err).Msg("Failed to record cycle telemetry")
	}
}
