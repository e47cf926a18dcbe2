package metrics

import (
	"math"

	"codeberg.org/mutker/ppgview/internal/window"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMinSamples = 8192
	DefaultFFTSize    = 8192

	minBPM = 42.0
	maxBPM = 210.0

	// fewer samples per channel carry no spectrum and no interval
	minWindowSamples = 2
)

type Option func(*gatedExtractor)

// WithFFTSize sets the spectrum length used for heart rate estimation.
func WithFFTSize(n int) Option {
	return func(e *gatedExtractor) {
		if n > 0 {
			e.fftSize = n
		}
	}
}

// WithHeartRateBand limits the accepted pulse range in beats per minute.
func WithHeartRateBand(low, high float64) Option {
	return func(e *gatedExtractor) {
		if low > 0 && high > low {
			e.lowBPM, e.highBPM = low, high
		}
	}
}

type gatedExtractor struct {
	minSamples int64
	fftSize    int
	lowBPM     float64
	highBPM    float64
}

// NewExtractor returns an Extractor that yields Insufficient() until more
// than minSamples samples have been seen.
func NewExtractor(minSamples int64, opts ...Option) Extractor {
	e := &gatedExtractor{
		minSamples: minSamples,
		fftSize:    DefaultFFTSize,
		lowBPM:     minBPM,
		highBPM:    maxBPM,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *gatedExtractor) Compute(w window.Snapshot, totalSeen int64) Estimates {
	if totalSeen <= e.minSamples {
		return Insufficient()
	}

	signal, ok := composite(w)
	if !ok {
		return Insufficient()
	}

	rate := float64(w.SamplingRate())

	return Estimates{
		HeartRate: heartRate(signal, rate, e.fftSize, e.lowBPM, e.highBPM),
		HRV:       rmssd(signal, rate, e.highBPM),
	}
}

// composite averages the mean-removed, variance-normalized channels into one
// pulsatile signal. It fails on windows that cannot be analysed.
func composite(w window.Snapshot) ([]float64, bool) {
	n := w.Len()
	if n < minWindowSamples || w.NumChannels() == 0 || w.SamplingRate() <= 0 {
		return nil, false
	}

	out := make([]float64, n)
	used := 0
	for c := 0; c < w.NumChannels(); c++ {
		data := w.Data(c)
		for _, v := range data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, false
			}
		}

		mean, std := stat.MeanStdDev(data, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for i, v := range data {
			out[i] += (v - mean) / std
		}
		used++
	}

	if used > 0 {
		for i := range out {
			out[i] /= float64(used)
		}
	}

	return out, true
}
