package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"codeberg.org/mutker/ppgview/internal/metrics"
	"codeberg.org/mutker/ppgview/internal/window"
)

// TextRenderer writes the metric block and the newest sample of every
// channel to w. It is meant for headless runs.
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Present(w window.Snapshot, m metrics.Estimates) error {
	var b strings.Builder
	b.WriteString(FormatMetrics(m))
	for i, ch := range w.Channels() {
		if v, ok := w.Latest(i); ok {
			fmt.Fprintf(&b, "%s: %.2f\n", ch, v)
		} else {
			fmt.Fprintf(&b, "%s: n/a\n", ch)
		}
	}
	b.WriteString("\n")

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.w, b.String())
	return err
}
