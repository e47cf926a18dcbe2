package metrics

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// heartRate returns the dominant pulse frequency of signal in beats per
// minute, searched within [lowBPM, highBPM]. The newest fftSize samples are
// Hann-windowed and zero-padded to fftSize. Returns 0 for a flat spectrum.
func heartRate(signal []float64, rate float64, fftSize int, lowBPM, highBPM float64) float64 {
	src := signal
	if len(src) > fftSize {
		src = src[len(src)-fftSize:]
	}
	m := len(src)
	if m < 2 {
		return 0
	}

	seq := make([]float64, fftSize)
	for i, v := range src {
		seq[i] = v * (0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(m-1)))
	}

	fft := fourier.NewFFT(fftSize)
	coeff := fft.Coefficients(nil, seq)

	low, high := lowBPM/60, highBPM/60
	best, bestMag := -1, 0.0
	for i := range coeff {
		f := fft.Freq(i) * rate
		if f < low || f > high {
			continue
		}
		if mag := cmplx.Abs(coeff[i]); mag > bestMag {
			best, bestMag = i, mag
		}
	}
	if best < 0 || bestMag == 0 {
		return 0
	}

	bin := float64(best)
	if best > 0 && best < len(coeff)-1 {
		a, b, c := cmplx.Abs(coeff[best-1]), bestMag, cmplx.Abs(coeff[best+1])
		if den := a - 2*b + c; den != 0 {
			bin += 0.5 * (a - c) / den
		}
	}

	return bin * rate / float64(fftSize) * 60
}
