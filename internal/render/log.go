package render

import (
	"codeberg.org/mutker/ppgview/internal/logger"
	"codeberg.org/mutker/ppgview/internal/metrics"
	"codeberg.org/mutker/ppgview/internal/window"
)

// LogRenderer emits one debug event per tick.
type LogRenderer struct {
	log logger.Logger
}

func NewLogRenderer(log logger.Logger) *LogRenderer {
	if log == nil {
		log = logger.Default()
	}
	return &LogRenderer{log: log}
}

func (r *LogRenderer) Present(w window.Snapshot, m metrics.Estimates) error {
	event := r.log.Debug()
	for i, ch := range w.Channels() {
		if v, ok := w.Latest(i); ok {
			event.Float64(ch.String(), v)
		}
	}
	event.
		Float64("heart_rate", m.HeartRate).
		Float64("hrv_rmssd", m.HRV).
		Int("window", w.Len()).
		Int64("total", w.Total()).
		Msg("Latest PPG values")
	return nil
}
