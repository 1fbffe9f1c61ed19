package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/velka/musedaq/internal/errors"
	"github.com/OpenPSG/edf"
)

// FormatJSON and FormatEDF name the supported artifact formats
const (
	FormatJSON = "json"
	FormatEDF  = "edf"
)

const artifactDirPerm = 0o755

// snapshotFile mirrors the flat snapshot layout of the original capture
// tool: per-group channel-major matrices plus the metadata maps.
type snapshotFile struct {
	Data            map[string][][]float64 `json:"data"`
	SamplingRates   map[string]int         `json:"sampling_rates"`
	ChannelNames    map[string][]string    `json:"channel_names"`
	DurationSeconds float64                `json:"duration_seconds"`
	DelaySeconds    float64                `json:"delay_seconds"`
	Timestamp       string                 `json:"timestamp"`
}

// Filename returns the conventional artifact name for a capture time
func Filename(t time.Time, format string) string {
	return fmt.Sprintf("muse_data_%s.%s", t.Format("20060102_150405"), format)
}

// CaptureToFile runs Capture and writes the artifact into the configured
// directory, returning its path
func (r *Recorder) CaptureToFile(ctx context.Context, duration, delay time.Duration, format string) (string, error) {
	errFactory := errors.New()

	switch format {
	case FormatJSON, FormatEDF:
	default:
		return "", errFactory.WithData(ErrInvalidFormat, format)
	}

	rec, err := r.Capture(ctx, duration, delay)
	if err != nil {
		return "", err
	}

	dir := r.cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, artifactDirPerm); err != nil {
		return "", errFactory.Wrap(ErrWriteFailed, err)
	}

	path := filepath.Join(dir, Filename(rec.Timestamp, format))
	if format == FormatEDF {
		err = rec.WriteEDF(path)
	} else {
		err = rec.WriteJSON(path)
	}
	if err != nil {
		return "", err
	}

	return path, nil
}

// WriteJSON writes the snapshot document. Groups without samples appear
// as zero-column matrices with the correct channel count, never omitted.
func (rec *Recording) WriteJSON(path string) error {
	errFactory := errors.New()

	doc := snapshotFile{
		Data:            make(map[string][][]float64, len(rec.Groups)),
		SamplingRates:   make(map[string]int, len(rec.Groups)),
		ChannelNames:    make(map[string][]string, len(rec.Groups)),
		DurationSeconds: rec.Duration.Seconds(),
		DelaySeconds:    rec.Delay.Seconds(),
		Timestamp:       rec.Timestamp.Format(time.RFC3339),
	}
	for _, g := range rec.Groups {
		doc.Data[g.Name] = g.Data
		doc.SamplingRates[g.Name] = g.Rate
		doc.ChannelNames[g.Name] = g.Channels
	}

	f, err := os.Create(path)
	if err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(&doc); err != nil {
		f.Close()
		return errFactory.Wrap(ErrWriteFailed, err)
	}
	if err := f.Close(); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

// WriteEDF exports the capture as an EDF file with one-second data
// records. Groups shorter than the record span are zero-padded; all
// sampling rates keep their native value per signal.
func (rec *Recording) WriteEDF(path string) error {
	errFactory := errors.New()

	var signals []edf.Signal
	records := 1
	for _, g := range rec.Groups {
		if n := (samples(g) + g.Rate - 1) / g.Rate; n > records {
			records = n
		}
		for ch, name := range g.Channels {
			pmin, pmax := physicalRange(g.Data, ch)
			signals = append(signals, edf.Signal{
				Label:             strings.ToUpper(g.Name) + " " + name,
				TransducerType:    "wearable sensor",
				PhysicalDimension: physicalDimension(g.Name),
				PhysicalMin:       pmin,
				PhysicalMax:       pmax,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  g.Rate,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}
	defer f.Close()

	w, err := edf.Create(f, edf.Header{
		Version:   edf.Version0,
		PatientID: "anonymous",
		RecordingID: fmt.Sprintf("musedaq duration=%gs delay=%gs",
			rec.Duration.Seconds(), rec.Delay.Seconds()),
		StartTime:          rec.Timestamp,
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	if err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	for r := 0; r < records; r++ {
		var chunk [][]float64
		for _, g := range rec.Groups {
			for ch := range g.Channels {
				chunk = append(chunk, recordSlice(g, ch, r))
			}
		}
		if err := w.WriteRecord(chunk); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
	}

	if err := w.Close(); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

// samples returns the captured column count of a group
func samples(g GroupRecording) int {
	if len(g.Data) == 0 {
		return 0
	}

	return len(g.Data[0])
}

// recordSlice returns one channel's samples for record r, zero-padded to
// the full record width
func recordSlice(g GroupRecording, ch, r int) []float64 {
	out := make([]float64, g.Rate)
	if ch >= len(g.Data) {
		return out
	}

	row := g.Data[ch]
	start := r * g.Rate
	for i := range out {
		if start+i < len(row) {
			out[i] = row[start+i]
		}
	}

	return out
}

func physicalRange(data [][]float64, ch int) (pmin, pmax float64) {
	pmin, pmax = -1, 1
	if ch >= len(data) {
		return pmin, pmax
	}
	for _, v := range data[ch] {
		if v < pmin {
			pmin = v
		}
		if v > pmax {
			pmax = v
		}
	}

	return pmin, pmax
}

func physicalDimension(group string) string {
	switch group {
	case "eeg":
		return "uV"
	case "ppg":
		return "a.u."
	case "gyro":
		return "deg/s"
	case "accel":
		return "g"
	default:
		return ""
	}
}
