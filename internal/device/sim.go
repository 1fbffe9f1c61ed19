package device

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/velka/musedaq/internal/errors"
)

var presetRates = map[Preset]int{
	PresetDefault:   256,
	PresetAuxiliary: 52,
	PresetAncillary: 64,
}

var presetRows = map[Preset]int{
	PresetDefault:   7,
	PresetAuxiliary: 7,
	PresetAncillary: 4,
}

// SimBoard is a synthetic headset: low-frequency sine carriers with noise,
// produced at each preset's nominal rate. It lets the daemon and its
// consumers run without hardware attached.
type SimBoard struct {
	mu        sync.Mutex
	prepared  bool
	streaming bool
	lastPoll  map[Preset]time.Time
	phase     map[Preset]float64
	rng       *rand.Rand
}

func NewSimBoard() *SimBoard {
	return &SimBoard{
		lastPoll: make(map[Preset]time.Time),
		phase:    make(map[Preset]float64),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *SimBoard) Prepare() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prepared = true

	return nil
}

func (b *SimBoard) Configure(string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return errors.New().New(ErrNotPrepared)
	}

	return nil
}

func (b *SimBoard) StartStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return errors.New().New(ErrNotPrepared)
	}

	now := time.Now()
	for p := range presetRates {
		b.lastPoll[p] = now
	}
	b.streaming = true

	return nil
}

func (b *SimBoard) Poll(maxRows int, p Preset) ([][]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return nil, errors.New().New(ErrNotPrepared)
	}
	if !b.streaming {
		return nil, errors.New().New(ErrStreamNotStarted)
	}

	rate, ok := presetRates[p]
	if !ok {
		return nil, errors.New().WithData(ErrPollFailed, p.String())
	}

	now := time.Now()
	elapsed := now.Sub(b.lastPoll[p]).Seconds()
	n := int(elapsed * float64(rate))
	if n <= 0 {
		return [][]float64{}, nil
	}
	if n > maxRows {
		n = maxRows
	}

	// Advance the poll clock by the samples actually drained, so leftover
	// fractions carry over to the next cycle.
	b.lastPoll[p] = b.lastPoll[p].Add(time.Duration(float64(n) / float64(rate) * float64(time.Second)))

	rows := presetRows[p]
	matrix := make([][]float64, rows)
	for r := range matrix {
		matrix[r] = make([]float64, n)
	}

	step := 1.0 / float64(rate)
	phase := b.phase[p]
	for i := 0; i < n; i++ {
		t := phase + float64(i)*step
		for r := 0; r < rows; r++ {
			carrier := math.Sin(2 * math.Pi * (1.0 + float64(r)) * t)
			matrix[r][i] = 20*carrier + b.rng.NormFloat64()
		}
	}
	b.phase[p] = phase + float64(n)*step

	return matrix, nil
}

func (b *SimBoard) StopStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.streaming {
		return errors.New().New(ErrStreamNotStarted)
	}
	b.streaming = false

	return nil
}

func (b *SimBoard) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prepared = false
	b.streaming = false

	return nil
}
