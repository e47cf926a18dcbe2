package render

import (
	"codeberg.org/mutker/ppgview/internal/metrics"
	"codeberg.org/mutker/ppgview/internal/window"
)

// Renderer displays one tick: the current window and the derived values.
// Present is called from the scheduler goroutine and must not block on
// slow output for longer than a tick.
type Renderer interface {
	Present(w window.Snapshot, m metrics.Estimates) error
}

// Multi presents every tick on all of its renderers.
type Multi []Renderer

func (r Multi) Present(w window.Snapshot, m metrics.Estimates) error {
	var first error
	for _, sink := range r {
		if err := sink.Present(w, m); err != nil && first == nil {
			first = err
		}
	}
	return first
}
