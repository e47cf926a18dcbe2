package metrics

import "codeberg.org/mutker/ppgview/internal/window"

// Sentinel marks an estimate that could not be computed yet.
const Sentinel = -1.0

// Extractor derives heart rate and heart rate variability from a window.
// Implementations are stateless: identical inputs give identical results.
type Extractor interface {
	Compute(w window.Snapshot, totalSeen int64) Estimates
}

// Estimates holds one tick's derived values. Each is either a valid
// estimate or Sentinel.
type Estimates struct {
	HeartRate float64 // beats per minute
	HRV       float64 // RMSSD in milliseconds
}

// Insufficient is the warm-up result.
func Insufficient() Estimates {
	return Estimates{HeartRate: Sentinel, HRV: Sentinel}
}

// Ready reports whether both values are real estimates.
func (e Estimates) Ready() bool {
	return e.HeartRate != Sentinel && e.HRV != Sentinel
}
