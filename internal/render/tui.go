package render

import (
	"fmt"
	"strings"
	"sync/atomic"

	"codeberg.org/mutker/ppgview/internal/metrics"
	"codeberg.org/mutker/ppgview/internal/window"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	viewerTitle   = " PPG Viewer "
	metricsTitle  = " Metrics "
	plotWidth     = 96
	metricsHeight = 5
)

// TUIRenderer shows one sparkline panel per channel and a metric panel in
// the terminal. Present only queues a redraw, drawing happens on the tview
// event loop started by Run.
type TUIRenderer struct {
	app      *tview.Application
	plots    []*tview.TextView
	label    *tview.TextView
	channels []window.Channel
	onQuit   func()
	running  atomic.Bool
	stopped  atomic.Bool
}

// NewTUIRenderer builds the layout for channels. onQuit is called when the
// user presses q or Ctrl-C.
func NewTUIRenderer(channels []window.Channel, onQuit func()) *TUIRenderer {
	r := &TUIRenderer{
		app:      tview.NewApplication(),
		channels: append([]window.Channel(nil), channels...),
		onQuit:   onQuit,
	}
	r.setupUI()
	return r
}

func (r *TUIRenderer) setupUI() {
	layout := tview.NewFlex().SetDirection(tview.FlexRow)

	for _, ch := range r.channels {
		plot := tview.NewTextView()
		plot.SetDynamicColors(true)
		plot.SetWrap(false)
		plot.SetBorder(true).SetTitle(" " + ch.String() + " ").SetTitleColor(tcell.ColorLightBlue)
		r.plots = append(r.plots, plot)
		layout.AddItem(plot, 0, 1, false)
	}

	r.label = tview.NewTextView()
	r.label.SetBorder(true).SetTitle(metricsTitle).SetTitleColor(tcell.ColorLightBlue)
	r.label.SetText(FormatMetrics(metrics.Insufficient()))
	layout.AddItem(r.label, metricsHeight, 0, true)

	frame := tview.NewFlex().SetDirection(tview.FlexRow)
	frame.SetBorder(true).SetTitle(viewerTitle)
	frame.AddItem(layout, 0, 1, true)

	r.app.SetRoot(frame, true).SetFocus(r.label)
	r.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' || event.Rune() == 'Q' {
			r.quit()
			return nil
		}
		return event
	})
}

func (r *TUIRenderer) quit() {
	if r.onQuit != nil {
		r.onQuit()
	}
}

// Run blocks on the terminal event loop until Stop is called. A Stop that
// happens before the loop is up still ends it.
func (r *TUIRenderer) Run() error {
	r.running.Store(true)
	defer r.running.Store(false)

	r.app.QueueUpdate(func() {
		if r.stopped.Load() {
			r.app.Stop()
		}
	})
	return r.app.Run()
}

func (r *TUIRenderer) Stop() {
	r.stopped.Store(true)
	r.app.Stop()
}

func (r *TUIRenderer) Present(w window.Snapshot, m metrics.Estimates) error {
	if !r.running.Load() {
		return nil
	}

	plots, label := r.frame(w, m)
	channels := w.Channels()
	r.app.QueueUpdateDraw(func() {
		for i, text := range plots {
			if i < len(channels) {
				r.plots[i].SetTitle(" " + channels[i].String() + " ")
			}
			r.plots[i].SetText(text)
		}
		r.label.SetText(label)
	})
	return nil
}

// frame prepares the panel texts outside the event loop.
func (r *TUIRenderer) frame(w window.Snapshot, m metrics.Estimates) ([]string, string) {
	plots := make([]string, len(r.plots))
	for i := range plots {
		if i >= w.NumChannels() {
			continue
		}
		var b strings.Builder
		b.WriteString("[green]")
		b.WriteString(Sparkline(w.Data(i), plotWidth))
		b.WriteString("[-]")
		if v, ok := w.Latest(i); ok {
			fmt.Fprintf(&b, "\n[yellow]latest[-] %.0f  [yellow]samples[-] %d", v, w.Len())
		}
		plots[i] = b.String()
	}
	return plots, FormatMetrics(m)
}
