package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	smoothingHz     = 25.0 // low-pass moving average, 40 ms at any rate
	baselineSeconds = 1.5
	peakThreshold   = 0.5 // in standard deviations of the filtered signal
	minIBIMillis    = 60000 / 210.0
	maxIBIMillis    = 60000 / 30.0
)

// rmssd returns the root mean square of successive inter-beat interval
// differences in milliseconds. Fewer than two intervals yield 0.
func rmssd(signal []float64, rate, highBPM float64) float64 {
	ibis := interBeatIntervals(signal, rate, highBPM)
	if len(ibis) < 2 {
		return 0
	}

	var sum float64
	for i := 1; i < len(ibis); i++ {
		d := ibis[i] - ibis[i-1]
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(ibis)-1))
}

// interBeatIntervals detects systolic peaks and returns the plausible
// intervals between consecutive peaks in milliseconds.
func interBeatIntervals(signal []float64, rate, highBPM float64) []float64 {
	peaks := detectPeaks(signal, rate, highBPM)

	ibis := make([]float64, 0, len(peaks))
	for i := 1; i < len(peaks); i++ {
		ms := (peaks[i] - peaks[i-1]) / rate * 1000
		if ms < minIBIMillis || ms > maxIBIMillis {
			continue
		}
		ibis = append(ibis, ms)
	}

	return ibis
}

// detectPeaks returns fractional sample positions of pulse peaks.
func detectPeaks(signal []float64, rate, highBPM float64) []float64 {
	n := len(signal)
	if n < 3 {
		return nil
	}

	baseWidth := int(math.Max(1, math.Round(rate*baselineSeconds)))
	lp := movingAverage(signal, int(math.Max(1, math.Round(rate/smoothingHz))))
	base := movingAverage(lp, baseWidth)
	ac := make([]float64, n)
	for i := range ac {
		ac[i] = lp[i] - base[i]
	}

	mean, std := stat.MeanStdDev(ac, nil)
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	threshold := mean + peakThreshold*std
	refractory := rate * 60 / highBPM

	// the baseline filter is lopsided near the edges
	guard := max(1, baseWidth/2)

	var peaks []float64
	lastIdx := -1
	for i := guard; i < n-guard; i++ {
		if ac[i] <= threshold || ac[i] < ac[i-1] || ac[i] <= ac[i+1] {
			continue
		}

		pos := float64(i)
		a, b, c := ac[i-1], ac[i], ac[i+1]
		if den := a - 2*b + c; den != 0 {
			pos += 0.5 * (a - c) / den
		}

		if lastIdx >= 0 && float64(i-lastIdx) < refractory {
			if ac[i] > ac[lastIdx] {
				peaks[len(peaks)-1] = pos
				lastIdx = i
			}
			continue
		}

		peaks = append(peaks, pos)
		lastIdx = i
	}

	return peaks
}

// movingAverage is a centered box filter of width w, shrinking at the edges.
func movingAverage(x []float64, w int) []float64 {
	n := len(x)
	out := make([]float64, n)
	if w <= 1 {
		copy(out, x)
		return out
	}

	prefix := make([]float64, n+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v
	}

	half := w / 2
	for i := range out {
		lo := max(0, i-half)
		hi := min(n, i-half+w)
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}

	return out
}
