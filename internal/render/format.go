package render

import (
	"fmt"
	"math"
	"strings"

	"codeberg.org/mutker/ppgview/internal/metrics"
)

const metricsFormat = "Latest PPG Values:\nCurrent heart rate: %.2f\nCurrent RMSSD HRV value: %.2f\n"

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// FormatMetrics renders the metric panel text. The sentinel prints as -1.00.
func FormatMetrics(m metrics.Estimates) string {
	return fmt.Sprintf(metricsFormat, m.HeartRate, m.HRV)
}

// Sparkline draws data as a single line of at most width block characters.
// Each column shows the mean of the samples that fall into it.
func Sparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	cols := min(width, len(data))
	means := make([]float64, cols)
	lo, hi := math.Inf(1), math.Inf(-1)
	for c := range means {
		start := c * len(data) / cols
		end := (c + 1) * len(data) / cols
		var sum float64
		for _, v := range data[start:end] {
			sum += v
		}
		means[c] = sum / float64(end-start)
		lo = math.Min(lo, means[c])
		hi = math.Max(hi, means[c])
	}

	var b strings.Builder
	top := len(sparkLevels) - 1
	for _, v := range means {
		level := 0
		if hi > lo {
			level = int(math.Round((v - lo) / (hi - lo) * float64(top)))
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}
