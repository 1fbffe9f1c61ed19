package recorder_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/velka/musedaq/internal/buffer"
	"codeberg.org/velka/musedaq/internal/device"
	"codeberg.org/velka/musedaq/internal/errors"
	"codeberg.org/velka/musedaq/internal/recorder"
	"github.com/OpenPSG/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	running atomic.Bool
	ready   atomic.Bool
	groups  []device.Group
	snaps   map[string][][]float64
}

func (f *fakeSource) Running() bool                    { return f.running.Load() }
func (f *fakeSource) Ready() bool                      { return f.ready.Load() }
func (f *fakeSource) Groups() []device.Group           { return f.groups }
func (f *fakeSource) Snapshots() map[string][][]float64 { return f.snaps }

// liveSource builds a running, ready source whose eeg buffer was fed more
// samples than its 5 s window can hold
func liveSource() *fakeSource {
	layout := device.DefaultLayout()

	ring := buffer.NewRing(4, layout[0].Capacity(5)) // 1280 samples
	for i := 0; i < 2560; i++ {
		v := float64(i)
		ring.Append([]float64{v, v, v, v})
	}

	src := &fakeSource{
		groups: layout,
		snaps: map[string][][]float64{
			"eeg": ring.Snapshot(),
		},
	}
	src.running.Store(true)
	src.ready.Store(true)

	return src
}

func fastConfig(dir string) recorder.Config {
	return recorder.Config{
		ReadyTimeout: 50 * time.Millisecond,
		ReadyPoll:    5 * time.Millisecond,
		ReadySettle:  time.Millisecond,
		Dir:          dir,
	}
}

func TestCaptureRequiresRunningLoop(t *testing.T) {
	src := &fakeSource{groups: device.DefaultLayout()}
	r := recorder.New(src, fastConfig(t.TempDir()))

	_, err := r.Capture(context.Background(), time.Second, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, recorder.ErrNotStreaming))
}

func TestCaptureReadyTimeout(t *testing.T) {
	src := &fakeSource{groups: device.DefaultLayout()}
	src.running.Store(true)

	r := recorder.New(src, fastConfig(t.TempDir()))

	_, err := r.Capture(context.Background(), 10*time.Millisecond, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, recorder.ErrReadyTimeout))
}

func TestCaptureCancellable(t *testing.T) {
	src := liveSource()
	r := recorder.New(src, fastConfig(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Capture(ctx, time.Hour, time.Hour)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, recorder.ErrCancelled))
}

func TestCaptureCappedAtBufferWindow(t *testing.T) {
	// 1280-sample window at 256 Hz; 2560 samples were streamed through
	// the buffer. The capture holds at most the buffer's window no
	// matter how long the requested duration was.
	src := liveSource()
	r := recorder.New(src, fastConfig(t.TempDir()))

	rec, err := r.Capture(context.Background(), 40*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	require.Len(t, rec.Groups, 4)
	eeg := rec.Groups[0]
	require.Equal(t, "eeg", eeg.Name)
	require.Len(t, eeg.Data, 4)
	assert.Len(t, eeg.Data[0], 1280)

	// The window holds the newest samples: 1280..2559
	assert.Equal(t, 1280.0, eeg.Data[0][0])
	assert.Equal(t, 2559.0, eeg.Data[0][1279])

	// Groups with no data are zero-column matrices with the right
	// channel count, never omitted
	ppg := rec.Groups[1]
	require.Equal(t, "ppg", ppg.Name)
	require.Len(t, ppg.Data, 3)
	assert.Empty(t, ppg.Data[0])
}

func TestWriteJSON(t *testing.T) {
	src := liveSource()
	r := recorder.New(src, fastConfig(t.TempDir()))

	rec, err := r.Capture(context.Background(), 20*time.Millisecond, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, rec.WriteJSON(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Data            map[string][][]float64 `json:"data"`
		SamplingRates   map[string]int         `json:"sampling_rates"`
		ChannelNames    map[string][]string    `json:"channel_names"`
		DurationSeconds float64                `json:"duration_seconds"`
		DelaySeconds    float64                `json:"delay_seconds"`
		Timestamp       string                 `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Len(t, doc.Data["eeg"], 4)
	assert.Len(t, doc.Data["ppg"], 3)
	assert.Equal(t, 256, doc.SamplingRates["eeg"])
	assert.Equal(t, 52, doc.SamplingRates["accel"])
	assert.Equal(t, []string{"TP9", "AF7", "AF8", "TP10"}, doc.ChannelNames["eeg"])

	_, err = time.Parse(time.RFC3339, doc.Timestamp)
	assert.NoError(t, err)
}

func TestWriteEDF(t *testing.T) {
	src := liveSource()
	r := recorder.New(src, fastConfig(t.TempDir()))

	rec, err := r.Capture(context.Background(), 20*time.Millisecond, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.edf")
	require.NoError(t, rec.WriteEDF(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader, err := edf.Open(f)
	require.NoError(t, err)

	// 4 EEG + 3 PPG + 3 gyro + 3 accel signals
	sig, err := reader.Signal(0)
	require.NoError(t, err)

	// 1280 samples at 256 Hz = 5 one-second records
	data := make([]float64, 1280)
	n, err := sig.Read(data)
	require.NoError(t, err)
	require.Equal(t, 1280, n)

	// Quantization keeps values close to the originals
	assert.InDelta(t, 1280.0, data[0], 1.0)
	assert.InDelta(t, 2559.0, data[1279], 1.0)

	_, err = reader.Signal(13)
	assert.Error(t, err, "expected exactly 13 signals")
}

func TestCaptureToFile(t *testing.T) {
	dir := t.TempDir()
	src := liveSource()
	r := recorder.New(src, fastConfig(dir))

	path, err := r.CaptureToFile(context.Background(), 20*time.Millisecond, 0, recorder.FormatJSON)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = r.CaptureToFile(context.Background(), 20*time.Millisecond, 0, "npz")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, recorder.ErrInvalidFormat))
}
