package window

import (
	"codeberg.org/mutker/ppgview/internal/errors"
)

const (
	ErrChannelMismatch = errors.ErrorCode("window_channel_mismatch")
	ErrInvalidWindow   = errors.ErrorCode("window_invalid")
)

func init() {
	errors.Register(ErrChannelMismatch, "Channel sample counts differ")
	errors.Register(ErrInvalidWindow, "Invalid window parameters")
}

// Snapshot is a read-only view of per-channel samples at one point in time.
// Its data never aliases memory owned by a data source.
type Snapshot struct {
	channels     []Channel
	data         [][]float64
	samplingRate int
	total        int64
}

// NewSnapshot copies data into a new Snapshot. data[i] holds the samples of
// channels[i], oldest first. total is the number of samples the producing
// session has acquired since it was opened.
func NewSnapshot(channels []Channel, data [][]float64, samplingRate int, total int64) (Snapshot, error) {
	errFactory := errors.New()

	if len(channels) != len(data) {
		return Snapshot{}, errFactory.WithData(ErrChannelMismatch, struct {
			Channels int
			Series   int
		}{len(channels), len(data)})
	}

	n := -1
	for i, series := range data {
		if n >= 0 && len(series) != n {
			return Snapshot{}, errFactory.WithData(ErrChannelMismatch, struct {
				Channel Channel
				Want    int
				Got     int
			}{channels[i], n, len(series)})
		}
		n = len(series)
	}

	s := Snapshot{
		channels:     append([]Channel(nil), channels...),
		data:         make([][]float64, len(data)),
		samplingRate: samplingRate,
		total:        total,
	}
	for i, series := range data {
		s.data[i] = append(make([]float64, 0, len(series)), series...)
	}

	return s, nil
}

// Channels returns the channel order of the snapshot.
func (s Snapshot) Channels() []Channel {
	return append([]Channel(nil), s.channels...)
}

// NumChannels returns the number of channels.
func (s Snapshot) NumChannels() int {
	return len(s.channels)
}

// Len returns the per-channel sample count.
func (s Snapshot) Len() int {
	if len(s.data) == 0 {
		return 0
	}
	return len(s.data[0])
}

// Data returns a copy of the samples of the i-th channel.
func (s Snapshot) Data(i int) []float64 {
	return append([]float64(nil), s.data[i]...)
}

// Latest returns the newest sample of the i-th channel.
func (s Snapshot) Latest(i int) (float64, bool) {
	series := s.data[i]
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// SamplingRate returns the sampling rate in Hz.
func (s Snapshot) SamplingRate() int {
	return s.samplingRate
}

// Total returns the cumulative sample count of the producing session.
func (s Snapshot) Total() int64 {
	return s.total
}

// tail returns a snapshot holding at most the n newest samples per channel.
func (s Snapshot) tail(n int) Snapshot {
	if s.Len() <= n {
		return s
	}
	out := Snapshot{
		channels:     s.channels,
		data:         make([][]float64, len(s.data)),
		samplingRate: s.samplingRate,
		total:        s.total,
	}
	for i, series := range s.data {
		out.data[i] = series[len(series)-n:]
	}
	return out
}
