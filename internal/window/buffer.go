package window

import (
	"slices"

	"codeberg.org/mutker/ppgview/internal/errors"
)

// Buffer holds the window shown on each tick. Its capacity is fixed at
// construction; eviction of older samples is the data source's job, the
// buffer only keeps the newest capacity samples it was handed.
type Buffer struct {
	capacity int
	channels []Channel
	rate     int
	current  Snapshot
}

// Capacity returns windowSeconds * samplingRate.
func Capacity(windowSeconds, samplingRate int) (int, error) {
	if windowSeconds <= 0 || samplingRate <= 0 {
		return 0, errors.New().WithData(ErrInvalidWindow, struct {
			WindowSeconds int
			SamplingRate  int
		}{windowSeconds, samplingRate})
	}
	return windowSeconds * samplingRate, nil
}

func NewBuffer(channels []Channel, windowSeconds, samplingRate int) (*Buffer, error) {
	capacity, err := Capacity(windowSeconds, samplingRate)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, errors.New().WithData(ErrInvalidWindow, "no channels")
	}

	empty, err := NewSnapshot(channels, make([][]float64, len(channels)), samplingRate, 0)
	if err != nil {
		return nil, err
	}

	return &Buffer{
		capacity: capacity,
		channels: append([]Channel(nil), channels...),
		rate:     samplingRate,
		current:  empty,
	}, nil
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

func (b *Buffer) Len() int {
	return b.current.Len()
}

// Update replaces the visible window with snap. The snapshot must carry the
// buffer's channels, in order, at the buffer's sampling rate.
func (b *Buffer) Update(snap Snapshot) error {
	errFactory := errors.New()

	if !slices.Equal(snap.Channels(), b.channels) {
		return errFactory.WithData(ErrChannelMismatch, struct {
			Want []Channel
			Got  []Channel
		}{b.channels, snap.Channels()})
	}
	if snap.SamplingRate() != b.rate {
		return errFactory.WithData(ErrInvalidWindow, struct {
			WantRate int
			GotRate  int
		}{b.rate, snap.SamplingRate()})
	}

	b.current = snap.tail(b.capacity)

	return nil
}

// Snapshot returns the current window.
func (b *Buffer) Snapshot() Snapshot {
	return b.current
}
