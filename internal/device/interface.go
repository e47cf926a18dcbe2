package device

import (
	"context"

	"codeberg.org/mutker/ppgview/internal/window"
)

// Source opens sessions on a PPG device.
type Source interface {
	// Open prepares the device and starts streaming. On failure the
	// returned Session may be non-nil when the device was partially
	// initialized; it must still be closed.
	Open(ctx context.Context) (Session, error)
}

// Session is a live, streaming connection to a device.
type Session interface {
	Info() Info

	// Fetch returns at most maxSamples of the newest samples per channel
	// without blocking past a bounded timeout. Fewer samples are returned
	// while the device has not produced enough yet.
	Fetch(maxSamples int) (window.Snapshot, error)

	// Close stops streaming and releases the device. It is idempotent.
	Close() error
}

// Info describes an open session.
type Info struct {
	ID           string
	Name         string
	SamplingRate int
	Channels     []window.Channel
}
