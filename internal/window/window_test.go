package window_test

import (
	"testing"

	"codeberg.org/mutker/ppgview/internal/errors"
	"codeberg.org/mutker/ppgview/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func snapshot(t *testing.T, n int) window.Snapshot {
	t.Helper()
	return snapshotAt(t, n, 50)
}

func snapshotAt(t *testing.T, n, rate int) window.Snapshot {
	t.Helper()
	snap, err := window.NewSnapshot(window.DefaultChannels,
		[][]float64{series(n, 0), series(n, 1000), series(n, 2000)}, rate, int64(n))
	require.NoError(t, err)
	return snap
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "IR PPG", window.IR.String())
	assert.Equal(t, "RED PPG", window.Red.String())
	assert.Equal(t, "GREEN PPG", window.Green.String())
	assert.Equal(t, "PPG 7", window.Channel(7).String())
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		seconds, rate, want int
	}{
		{20, 50, 1000},
		{20, 500, 10000},
		{1, 1, 1},
		{7, 133, 931},
	}
	for _, tt := range tests {
		got, err := window.Capacity(tt.seconds, tt.rate)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := window.Capacity(0, 50)
	assert.True(t, errors.HasCode(err, window.ErrInvalidWindow))
	_, err = window.Capacity(20, -1)
	assert.True(t, errors.HasCode(err, window.ErrInvalidWindow))
}

func TestNewSnapshotRejectsUnequalChannels(t *testing.T) {
	_, err := window.NewSnapshot(window.DefaultChannels,
		[][]float64{series(3, 0), series(4, 0), series(3, 0)}, 50, 3)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, window.ErrChannelMismatch))

	_, err = window.NewSnapshot(window.DefaultChannels, [][]float64{series(3, 0)}, 50, 3)
	assert.True(t, errors.HasCode(err, window.ErrChannelMismatch))
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	ir := series(5, 0)
	snap, err := window.NewSnapshot([]window.Channel{window.IR}, [][]float64{ir}, 50, 5)
	require.NoError(t, err)

	ir[0] = 42
	assert.InDelta(t, 0.0, snap.Data(0)[0], 0)

	out := snap.Data(0)
	out[1] = 42
	assert.InDelta(t, 1.0, snap.Data(0)[1], 0)

	latest, ok := snap.Latest(0)
	require.True(t, ok)
	assert.InDelta(t, 4.0, latest, 0)
}

func TestBufferCapacity(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 20, 50)
	require.NoError(t, err)
	assert.Equal(t, 1000, buf.Capacity())
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 3, buf.Snapshot().NumChannels())
}

func TestBufferUpdateShortFetch(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 20, 50)
	require.NoError(t, err)

	require.NoError(t, buf.Update(snapshot(t, 600)))

	assert.Equal(t, 1000, buf.Capacity())
	assert.Equal(t, 600, buf.Len())
	for i := 0; i < 3; i++ {
		assert.Len(t, buf.Snapshot().Data(i), 600)
	}
}

func TestBufferKeepsNewestSamples(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 2, 5)
	require.NoError(t, err)

	require.NoError(t, buf.Update(snapshotAt(t, 25, 5)))

	assert.Equal(t, 10, buf.Len())
	assert.Equal(t, series(10, 15), buf.Snapshot().Data(0))
	assert.Equal(t, series(10, 2015), buf.Snapshot().Data(2))
	assert.Equal(t, int64(25), buf.Snapshot().Total())
}

func TestBufferUpdateReplacesWindow(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 20, 50)
	require.NoError(t, err)

	require.NoError(t, buf.Update(snapshot(t, 600)))
	require.NoError(t, buf.Update(snapshot(t, 10)))
	assert.Equal(t, 10, buf.Len())
}

func TestBufferRejectsChannelMismatch(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 20, 50)
	require.NoError(t, err)

	snap, err := window.NewSnapshot([]window.Channel{window.IR}, [][]float64{series(3, 0)}, 50, 3)
	require.NoError(t, err)

	err = buf.Update(snap)
	assert.True(t, errors.HasCode(err, window.ErrChannelMismatch))
	assert.Equal(t, 0, buf.Len())
}

func TestBufferRejectsReorderedChannels(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 20, 50)
	require.NoError(t, err)

	snap, err := window.NewSnapshot([]window.Channel{window.Red, window.IR, window.Green},
		[][]float64{series(3, 0), series(3, 0), series(3, 0)}, 50, 3)
	require.NoError(t, err)

	err = buf.Update(snap)
	assert.True(t, errors.HasCode(err, window.ErrChannelMismatch))
	assert.Equal(t, 0, buf.Len())
}

func TestBufferRejectsRateMismatch(t *testing.T) {
	buf, err := window.NewBuffer(window.DefaultChannels, 20, 50)
	require.NoError(t, err)

	err = buf.Update(snapshotAt(t, 10, 100))
	assert.True(t, errors.HasCode(err, window.ErrInvalidWindow))
	assert.Equal(t, 0, buf.Len())
}
