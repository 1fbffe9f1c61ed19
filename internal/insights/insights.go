// Package insights derives coarse cognitive metrics from a window of EEG
// samples. The heuristics are statistical placeholders; a real decoder
// would band-pass filter, compute spectral power, and run a trained model
// over the band ratios.
package insights

import (
	"fmt"
	"math"
	"math/rand"
)

// Signal quality labels, ordered worst to best
const (
	QualityPoor   = "poor"
	QualityMedium = "medium"
	QualityGood   = "good"
)

// Metrics is one decoded reading. All four scores are in [0, 1],
// rounded to two decimals.
type Metrics struct {
	Focus         float64 `json:"focus"`
	Stress        float64 `json:"stress"`
	Engagement    float64 `json:"engagement"`
	Relaxation    float64 `json:"relaxation"`
	SignalQuality string  `json:"signal_quality"`
	Message       string  `json:"message,omitempty"`
}

// Decode computes metrics from a channel-major EEG window, data[ch][i].
// An empty window yields randomized placeholder scores marked poor, so
// the caller can always render something while the headset warms up.
func Decode(data [][]float64) Metrics {
	n := samples(data)
	if n == 0 {
		return Metrics{
			Focus:         round2(0.3 + rand.Float64()*0.3),
			Stress:        round2(0.3 + rand.Float64()*0.4),
			Engagement:    round2(0.3 + rand.Float64()*0.3),
			Relaxation:    round2(0.3 + rand.Float64()*0.3),
			SignalQuality: QualityPoor,
			Message:       "No EEG samples available",
		}
	}

	meanAmp := meanAbs(data)
	stdAmp := std(data)
	variance := meanChannelVariance(data)

	focus := clamp(0.5+variance/10000, 0.4, 0.95)
	stress := clamp(stdAmp/500, 0.2, 0.9)
	engagement := clamp((focus+meanAmp/1000)/2, 0.5, 1.0)
	relaxation := clamp(0.9-stress*0.5, 0.3, 0.9)

	quality := QualityPoor
	switch {
	case n > 1000 && variance > 10:
		quality = QualityGood
	case n > 500:
		quality = QualityMedium
	}

	return Metrics{
		Focus:         round2(focus),
		Stress:        round2(stress),
		Engagement:    round2(engagement),
		Relaxation:    round2(relaxation),
		SignalQuality: quality,
		Message:       fmt.Sprintf("Analyzed %d EEG samples from %d channels", n, len(data)),
	}
}

func samples(data [][]float64) int {
	if len(data) == 0 {
		return 0
	}

	return len(data[0])
}

// meanAbs is the mean absolute amplitude over every sample of every channel
func meanAbs(data [][]float64) float64 {
	var sum float64
	var count int
	for _, row := range data {
		for _, v := range row {
			sum += math.Abs(v)
			count++
		}
	}
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// std is the population standard deviation over the whole window
func std(data [][]float64) float64 {
	var sum float64
	var count int
	for _, row := range data {
		for _, v := range row {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)

	var sq float64
	for _, row := range data {
		for _, v := range row {
			d := v - mean
			sq += d * d
		}
	}

	return math.Sqrt(sq / float64(count))
}

// meanChannelVariance averages each channel's population variance
func meanChannelVariance(data [][]float64) float64 {
	var total float64
	var channels int
	for _, row := range data {
		if len(row) == 0 {
			continue
		}
		var sum float64
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(len(row))

		var sq float64
		for _, v := range row {
			d := v - mean
			sq += d * d
		}
		total += sq / float64(len(row))
		channels++
	}
	if channels == 0 {
		return 0
	}

	return total / float64(channels)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
