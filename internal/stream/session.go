// Package stream owns the acquisition session: the lifecycle state
// machine, the single polling goroutine that demultiplexes device output
// into per-group ring buffers, and the read surface over those buffers.
//
// The session is the sole writer to every ring and the exclusive owner of
// the device handle. All other components read through Status, Window and
// Snapshots.
package stream

import (
	"sync"
	"time"

	"codeberg.org/velka/musedaq/internal/buffer"
	"codeberg.org/velka/musedaq/internal/device"
	"codeberg.org/velka/musedaq/internal/errors"
	"codeberg.org/velka/musedaq/internal/telemetry"
)

// State is the lifecycle state of the acquisition session
type State int

const (
	StateNotStarted State = iota
	StateConnecting
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the session, safe to request
// concurrently with Start, Stop and the loop itself.
type Status struct {
	State         State
	Ready         bool
	Stale         bool
	LastUpdate    time.Time
	LastUpdateAge time.Duration // zero when no data has arrived yet
	Buffers       map[string]int
}

// Options tune the session; zero values fall back to the design defaults
type Options struct {
	WindowSeconds int
	PollInterval  time.Duration
	StaleAfter    time.Duration
	ConfigCmd     string
	Collector     telemetry.Collector
}

const (
	defaultWindowSeconds = 5
	defaultPollInterval  = 10 * time.Millisecond
	defaultStaleAfter    = 5 * time.Second

	// p50 enables the 5th EEG electrode and the PPG stream
	defaultConfigCmd = "p50"
)

// Session drives one board and owns its ring buffers
type Session struct {
	board  device.Board
	groups []device.Group

	pollInterval time.Duration
	staleAfter   time.Duration
	configCmd    string
	collector    telemetry.Collector

	buffers map[string]*buffer.Ring
	byName  map[string]device.Group

	mu         sync.RWMutex
	state      State
	ready      bool
	lastUpdate time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// New builds a session over the given board and group layout. The board
// must not be used by anyone else from here on.
func New(board device.Board, layout []device.Group, opts Options) *Session {
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = defaultWindowSeconds
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.ConfigCmd == "" {
		opts.ConfigCmd = defaultConfigCmd
	}

	s := &Session{
		board:        board,
		groups:       layout,
		pollInterval: opts.PollInterval,
		staleAfter:   opts.StaleAfter,
		configCmd:    opts.ConfigCmd,
		collector:    opts.Collector,
		buffers:      make(map[string]*buffer.Ring, len(layout)),
		byName:       make(map[string]device.Group, len(layout)),
	}
	for _, g := range layout {
		s.buffers[g.Name] = buffer.NewRing(len(g.Channels), g.Capacity(opts.WindowSeconds))
		s.byName[g.Name] = g
	}

	return s
}

// Start launches the acquisition loop as a background goroutine. Starting
// an already-running session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConnecting || s.state == StateStreaming {
		return nil
	}

	s.ready = false
	s.state = StateConnecting
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)

	return nil
}

// Stop signals the loop to halt and waits up to timeout for it to finish.
// Timeout expiry is reported, never escalated; the loop keeps winding down
// on its own.
func (s *Session) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.state != StateConnecting && s.state != StateStreaming {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	select {
	case <-stopCh:
		// Already signalled by a concurrent Stop
	default:
		close(stopCh)
	}

	select {
	case <-doneCh:
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return nil
	case <-time.After(timeout):
		return errors.New().WithData(ErrStopTimeout, timeout.String())
	}
}

// Running reports whether the acquisition loop is active
func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateConnecting || s.state == StateStreaming
}

// Ready reports whether the primary group has produced data
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ready
}

// Status reports the current lifecycle state, readiness, last-update age
// and buffer occupancy
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:      s.state,
		Ready:      s.ready,
		LastUpdate: s.lastUpdate,
		Buffers:    make(map[string]int, len(s.buffers)),
	}
	if !s.lastUpdate.IsZero() {
		st.LastUpdateAge = time.Since(s.lastUpdate)
	}
	st.Stale = s.state == StateStreaming && !s.lastUpdate.IsZero() && st.LastUpdateAge > s.staleAfter

	for name, ring := range s.buffers {
		st.Buffers[name] = ring.Len()
	}

	return st
}

// Window returns the latest seconds of one group as a channel-major
// matrix. A session that has never received data yields the distinct
// not-started error, so callers can tell "never connected" from
// "connected but momentarily empty".
func (s *Session) Window(group string, seconds int) ([][]float64, error) {
	errFactory := errors.New()

	g, ok := s.byName[group]
	if !ok {
		return nil, errFactory.WithData(ErrUnknownGroup, group)
	}

	s.mu.RLock()
	noData := s.lastUpdate.IsZero() && !s.ready
	s.mu.RUnlock()
	if noData {
		return nil, errFactory.New(ErrNotStarted)
	}

	n := 0
	if seconds > 0 {
		n = seconds * g.Rate
	}

	return s.buffers[group].Window(n), nil
}

// Groups returns the immutable group layout the session was built with
func (s *Session) Groups() []device.Group {
	return s.groups
}

// Snapshots returns an atomic-per-group copy of every ring, oldest first.
// Cross-group alignment is approximate, within one poll cycle.
func (s *Session) Snapshots() map[string][][]float64 {
	out := make(map[string][][]float64, len(s.buffers))
	for name, ring := range s.buffers {
		out[name] = ring.Snapshot()
	}

	return out
}
