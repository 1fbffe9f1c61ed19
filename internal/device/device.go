// Package device abstracts the headset SDK behind a small adapter
// interface. The acquisition loop owns the opened Board exclusively; no
// other component calls into it.
package device

import (
	"codeberg.org/velka/musedaq/internal/errors"
)

// Preset identifies one of the device's independent output streams.
// Each preset carries its own row layout and sampling rate.
type Preset int

const (
	// PresetDefault carries the EEG rows
	PresetDefault Preset = iota
	// PresetAuxiliary carries the gyroscope and accelerometer rows
	PresetAuxiliary
	// PresetAncillary carries the PPG rows
	PresetAncillary
)

func (p Preset) String() string {
	switch p {
	case PresetDefault:
		return "default"
	case PresetAuxiliary:
		return "auxiliary"
	case PresetAncillary:
		return "ancillary"
	default:
		return "unknown"
	}
}

// Board is the device adapter consumed by the acquisition loop.
//
// Poll returns a row-major matrix of pending device rows for the preset:
// matrix[row][i] is the i-th pending value of that device row. An empty
// matrix means no data yet and is not an error. All methods may fail;
// failures are distinguishable from empty results.
type Board interface {
	// Prepare opens the connection to the device
	Prepare() error
	// Configure sends a board configuration command (e.g. "p50")
	Configure(cmd string) error
	// StartStream begins acquisition on the device
	StartStream() error
	// Poll drains up to maxRows pending samples for the preset
	Poll(maxRows int, p Preset) ([][]float64, error)
	// StopStream halts acquisition on the device
	StopStream() error
	// Release closes the connection and frees the session
	Release() error
}

// OpenFunc constructs a Board for a serial port
type OpenFunc func(serialPort string) (Board, error)

var drivers = map[string]OpenFunc{
	"sim": func(string) (Board, error) { return NewSimBoard(), nil },
}

// Register makes a board driver available under the given name. An SDK
// binding registers itself here; the synthetic board is built in.
func Register(name string, open OpenFunc) {
	drivers[name] = open
}

// Open constructs the named Board. Unknown names are a distinct coded
// error so callers can tell a missing driver from a connect failure.
func Open(name, serialPort string) (Board, error) {
	open, ok := drivers[name]
	if !ok {
		return nil, errors.New().WithData(ErrUnknownDevice, name)
	}

	return open(serialPort)
}
