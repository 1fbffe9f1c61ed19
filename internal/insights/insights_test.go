package insights_test

import (
	"math"
	"testing"

	"codeberg.org/velka/musedaq/internal/insights"
	"github.com/stretchr/testify/assert"
)

func constantWindow(channels, n int, v float64) [][]float64 {
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, n)
		for i := range data[ch] {
			data[ch][i] = v
		}
	}
	return data
}

func TestDecodeEmptyWindow(t *testing.T) {
	m := insights.Decode([][]float64{{}, {}, {}, {}})

	assert.Equal(t, insights.QualityPoor, m.SignalQuality)
	assert.GreaterOrEqual(t, m.Focus, 0.3)
	assert.LessOrEqual(t, m.Focus, 0.6)
	assert.GreaterOrEqual(t, m.Stress, 0.3)
	assert.LessOrEqual(t, m.Stress, 0.7)
	assert.NotEmpty(t, m.Message)
}

func TestDecodeFlatSignal(t *testing.T) {
	// A constant signal has zero variance and zero std, so every score
	// sits at its clamp boundary
	m := insights.Decode(constantWindow(4, 1280, 100))

	assert.Equal(t, 0.5, m.Focus)
	assert.Equal(t, 0.2, m.Stress)
	assert.Equal(t, 0.5, m.Engagement)
	assert.Equal(t, 0.8, m.Relaxation)

	// Plenty of samples but no variance
	assert.Equal(t, insights.QualityMedium, m.SignalQuality)
}

func TestDecodeActiveSignal(t *testing.T) {
	data := make([][]float64, 4)
	for ch := range data {
		data[ch] = make([]float64, 1280)
		for i := range data[ch] {
			data[ch][i] = 50 * math.Sin(float64(i)/7)
		}
	}

	m := insights.Decode(data)

	assert.Equal(t, insights.QualityGood, m.SignalQuality)
	assert.GreaterOrEqual(t, m.Focus, 0.4)
	assert.LessOrEqual(t, m.Focus, 0.95)
	assert.GreaterOrEqual(t, m.Relaxation, 0.3)
	assert.LessOrEqual(t, m.Relaxation, 0.9)
	assert.Contains(t, m.Message, "1280 EEG samples")
}

func TestDecodeShortWindowIsPoor(t *testing.T) {
	m := insights.Decode(constantWindow(4, 100, 1))
	assert.Equal(t, insights.QualityPoor, m.SignalQuality)
}

func TestScoresAreRounded(t *testing.T) {
	m := insights.Decode(constantWindow(4, 600, 3))

	for _, v := range []float64{m.Focus, m.Stress, m.Engagement, m.Relaxation} {
		assert.Equal(t, math.Round(v*100)/100, v)
	}
}
