package device

// Group describes a family of channels sharing one preset and one
// sampling rate. The layout is immutable configuration data: the
// acquisition loop is parameterized by it, never hard-coded.
type Group struct {
	Name     string
	Preset   Preset
	Channels []string
	Rate     int   // nominal sampling rate in Hz
	Rows     []int // device row index per channel within the preset matrix
	MaxPoll  int   // rows requested from the device per polling cycle
}

// Capacity returns the ring capacity for a history window of the given
// length in seconds
func (g Group) Capacity(windowSeconds int) int {
	return g.Rate * windowSeconds
}

// GroupEEG is the primary group; its first non-empty poll marks the
// session ready.
const GroupEEG = "eeg"

// DefaultLayout returns the Muse 2 channel layout: which device rows of
// which preset feed which named channels, and at what rate.
func DefaultLayout() []Group {
	return []Group{
		{
			Name:     GroupEEG,
			Preset:   PresetDefault,
			Channels: []string{"TP9", "AF7", "AF8", "TP10"},
			Rate:     256,
			Rows:     []int{1, 2, 3, 4},
			MaxPoll:  64,
		},
		{
			Name:     "ppg",
			Preset:   PresetAncillary,
			Channels: []string{"PPG0", "PPG1", "PPG2"},
			Rate:     64,
			Rows:     []int{1, 2, 3},
			MaxPoll:  16,
		},
		{
			Name:     "gyro",
			Preset:   PresetAuxiliary,
			Channels: []string{"Gyro_X", "Gyro_Y", "Gyro_Z"},
			Rate:     52,
			Rows:     []int{4, 5, 6},
			MaxPoll:  16,
		},
		{
			Name:     "accel",
			Preset:   PresetAuxiliary,
			Channels: []string{"Accel_X", "Accel_Y", "Accel_Z"},
			Rate:     52,
			Rows:     []int{1, 2, 3},
			MaxPoll:  16,
		},
	}
}
