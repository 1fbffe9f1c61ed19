// Package buffer holds bounded sample history for one signal group.
//
// A Ring stores fixed-width sample vectors in arrival order and evicts the
// oldest sample once full, like the capped deques the acquisition loop feeds.
// The acquisition loop is the only writer; any number of readers may take
// snapshots concurrently.
package buffer

import "sync"

// Ring is a fixed-capacity FIFO store of sample vectors
type Ring struct {
	mu       sync.Mutex
	samples  [][]float64
	head     int // index of the next write
	size     int
	channels int
}

// NewRing returns an empty ring holding up to capacity samples of
// channels values each
func NewRing(channels, capacity int) *Ring {
	if channels < 1 {
		channels = 1
	}
	if capacity < 1 {
		capacity = 1
	}

	return &Ring{
		samples:  make([][]float64, capacity),
		channels: channels,
	}
}

// Append adds one sample, evicting the oldest when the ring is full.
// The sample is copied; the caller may reuse the slice. Appending never
// blocks and never fails.
func (r *Ring) Append(sample []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.samples[r.head]
	if slot == nil {
		slot = make([]float64, r.channels)
		r.samples[r.head] = slot
	}
	copy(slot, sample)

	r.head = (r.head + 1) % len(r.samples)
	if r.size < len(r.samples) {
		r.size++
	}
}

// Len returns the current occupancy, always <= Capacity
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}

// Capacity returns the fixed sample capacity
func (r *Ring) Capacity() int {
	return len(r.samples)
}

// Channels returns the fixed sample width
func (r *Ring) Channels() int {
	return r.channels
}

// Snapshot returns a deep copy of the current contents, oldest first.
// An empty ring yields an empty slice, not an error.
func (r *Ring) Snapshot() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]float64, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.samples)
	}

	for i := 0; i < r.size; i++ {
		src := r.samples[(start+i)%len(r.samples)]
		dst := make([]float64, r.channels)
		copy(dst, src)
		out[i] = dst
	}

	return out
}

// Window returns the most recent n samples as a channel-major matrix of
// shape [channels][k], k <= n. n <= 0 or n >= Len() selects the whole
// buffer. An empty ring yields channels rows of length zero.
func (r *Ring) Window(n int) [][]float64 {
	snap := r.Snapshot()
	if n > 0 && n < len(snap) {
		snap = snap[len(snap)-n:]
	}

	return ChannelMajor(snap, r.channels)
}

// ChannelMajor transposes an oldest-first sample sequence into one row per
// channel. Rows are non-nil even when the sequence is empty.
func ChannelMajor(samples [][]float64, channels int) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, len(samples))
		for i, s := range samples {
			if ch < len(s) {
				out[ch][i] = s[ch]
			}
		}
	}

	return out
}
