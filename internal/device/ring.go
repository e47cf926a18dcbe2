package device

import (
	"github.com/gammazero/deque"
)

// DefaultRingSize is the number of samples per channel a board keeps.
const DefaultRingSize = 45000

// ring is the board side sample store. Every channel is pushed in
// lockstep, so all queues always have the same length.
type ring struct {
	capacity int
	series   []*deque.Deque[float64]
	total    int64
}

func newRing(channels, capacity int) *ring {
	r := &ring{
		capacity: capacity,
		series:   make([]*deque.Deque[float64], channels),
	}
	for i := range r.series {
		r.series[i] = new(deque.Deque[float64])
		r.series[i].Grow(min(capacity, 4096))
	}
	return r
}

// push appends one frame, one value per channel, evicting the oldest frame
// once the ring is full.
func (r *ring) push(frame []float64) {
	for i, q := range r.series {
		if q.Len() == r.capacity {
			q.PopFront()
		}
		q.PushBack(frame[i])
	}
	r.total++
}

// skip accounts for frames that were produced but never stored.
func (r *ring) skip(n int64) {
	r.total += n
}

func (r *ring) len() int {
	if len(r.series) == 0 {
		return 0
	}
	return r.series[0].Len()
}

// latest copies out the n newest samples of every channel.
func (r *ring) latest(n int) [][]float64 {
	k := min(n, r.len())
	out := make([][]float64, len(r.series))
	for c, q := range r.series {
		data := make([]float64, k)
		offset := q.Len() - k
		for i := range data {
			data[i] = q.At(offset + i)
		}
		out[c] = data
	}
	return out
}

func (r *ring) clear() {
	for _, q := range r.series {
		q.Clear()
	}
}
