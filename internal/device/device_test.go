package device

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/ppgview/internal/errors"
	"codeberg.org/mutker/ppgview/internal/logger"
	"codeberg.org/mutker/ppgview/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSimulator(clock *fakeClock) *Simulator {
	sim := NewSimulator(50, 72)
	sim.Clock = clock.Now
	sim.Logger = logger.Nop()
	return sim
}

func TestRingEvictsOldest(t *testing.T) {
	r := newRing(2, 3)
	for i := 0; i < 5; i++ {
		r.push([]float64{float64(i), float64(10 + i)})
	}

	assert.Equal(t, 3, r.len())
	assert.Equal(t, int64(5), r.total)
	assert.Equal(t, [][]float64{{2, 3, 4}, {12, 13, 14}}, r.latest(10))
	assert.Equal(t, [][]float64{{4}, {14}}, r.latest(1))

	r.skip(7)
	assert.Equal(t, int64(12), r.total)

	r.clear()
	assert.Equal(t, 0, r.len())
}

func TestSimulatorShortFetch(t *testing.T) {
	clock := newFakeClock()
	sess, err := newTestSimulator(clock).Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	capacity, err := window.Capacity(20, sess.Info().SamplingRate)
	require.NoError(t, err)
	require.Equal(t, 1000, capacity)

	clock.Advance(12 * time.Second)
	snap, err := sess.Fetch(capacity)
	require.NoError(t, err)

	assert.Equal(t, 600, snap.Len())
	assert.Equal(t, int64(600), snap.Total())
	assert.Equal(t, window.DefaultChannels, snap.Channels())
	for i := 0; i < snap.NumChannels(); i++ {
		assert.Len(t, snap.Data(i), 600)
	}
}

func TestSimulatorFetchNeverExceedsMax(t *testing.T) {
	clock := newFakeClock()
	sess, err := newTestSimulator(clock).Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	for _, step := range []time.Duration{0, 100 * time.Millisecond, 3 * time.Second, 40 * time.Second} {
		clock.Advance(step)
		for _, max := range []int{1, 10, 1000} {
			snap, err := sess.Fetch(max)
			require.NoError(t, err)
			assert.LessOrEqual(t, snap.Len(), max)
			for i := 0; i < snap.NumChannels(); i++ {
				assert.Len(t, snap.Data(i), snap.Len())
			}
		}
	}
}

func TestSimulatorTotalIsMonotonicAcrossEviction(t *testing.T) {
	clock := newFakeClock()
	sim := newTestSimulator(clock)
	sim.RingSize = 100
	sess, err := sim.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	clock.Advance(10 * time.Second)
	snap, err := sess.Fetch(1000)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Len())
	assert.Equal(t, int64(500), snap.Total())

	clock.Advance(time.Second)
	snap, err = sess.Fetch(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(550), snap.Total())
}

func TestSimulatorIsDeterministic(t *testing.T) {
	fetch := func() []float64 {
		clock := newFakeClock()
		sess, err := newTestSimulator(clock).Open(context.Background())
		require.NoError(t, err)
		defer sess.Close()
		clock.Advance(5 * time.Second)
		snap, err := sess.Fetch(250)
		require.NoError(t, err)
		return snap.Data(0)
	}

	assert.Equal(t, fetch(), fetch())
}

func TestSimulatorInvalidArguments(t *testing.T) {
	clock := newFakeClock()
	sess, err := newTestSimulator(clock).Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Fetch(0)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))

	bad := newTestSimulator(clock)
	bad.SamplingRate = 0
	_, err = bad.Open(context.Background())
	assert.True(t, errors.HasCode(err, ErrConnection))
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestSimulatorOpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, err := newTestSimulator(newFakeClock()).Open(ctx)
	assert.Nil(t, sess)
	assert.True(t, errors.HasCode(err, ErrConnection))
}

func TestSimulatorPartialOpen(t *testing.T) {
	sim := newTestSimulator(newFakeClock())
	sim.FailOpen = stderrors.New("board not ready")

	sess, err := sim.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrConnection))
	require.NotNil(t, sess)

	_, err = sess.Fetch(10)
	assert.True(t, errors.HasCode(err, ErrSessionClosed))
	assert.NoError(t, sess.Close())
	assert.NoError(t, sess.Close())
}

func TestSimulatorCloseIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	sess, err := newTestSimulator(clock).Open(context.Background())
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	_, err = sess.Fetch(10)
	assert.True(t, errors.HasCode(err, ErrSessionClosed))
}

func TestSimulatorFetchFailure(t *testing.T) {
	clock := newFakeClock()
	sim := newTestSimulator(clock)
	sim.FailFetchAfter = 2
	sess, err := sim.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Fetch(10)
	require.NoError(t, err)
	_, err = sess.Fetch(10)
	require.NoError(t, err)
	_, err = sess.Fetch(10)
	assert.True(t, errors.HasCode(err, ErrFetchFailed))
}

func writeTestRecording(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.db")
	data := make([][]float64, frames)
	for i := range data {
		data[i] = []float64{float64(i), float64(1000 + i), float64(2000 + i)}
	}
	require.NoError(t, CreateRecording(path, "test-capture", 50, window.DefaultChannels, data))
	return path
}

func openRecording(t *testing.T, path string, clock *fakeClock) Session {
	t.Helper()
	rec := NewRecording(path)
	rec.Clock = clock.Now
	rec.Logger = logger.Nop()
	sess, err := rec.Open(context.Background())
	require.NoError(t, err)
	return sess
}

func TestRecordingPlayback(t *testing.T) {
	path := writeTestRecording(t, 1500)
	clock := newFakeClock()
	sess := openRecording(t, path, clock)
	defer sess.Close()

	info := sess.Info()
	assert.Equal(t, "test-capture", info.Name)
	assert.Equal(t, 50, info.SamplingRate)
	assert.Equal(t, window.DefaultChannels, info.Channels)
	assert.NotEmpty(t, info.ID)

	snap, err := sess.Fetch(1000)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())

	clock.Advance(12 * time.Second)
	snap, err = sess.Fetch(1000)
	require.NoError(t, err)
	assert.Equal(t, 600, snap.Len())
	assert.Equal(t, int64(600), snap.Total())
	latest, ok := snap.Latest(1)
	require.True(t, ok)
	assert.InDelta(t, 1599.0, latest, 0)

	clock.Advance(time.Minute)
	snap, err = sess.Fetch(1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, snap.Len())
	assert.Equal(t, int64(1500), snap.Total())
	assert.InDelta(t, 500.0, snap.Data(0)[0], 0)
	assert.InDelta(t, 3499.0, snap.Data(2)[999], 0)
}

func TestRecordingSkipsEvictedFrames(t *testing.T) {
	path := writeTestRecording(t, 400)
	clock := newFakeClock()
	rec := NewRecording(path)
	rec.Clock = clock.Now
	rec.Logger = logger.Nop()
	rec.RingSize = 50
	sess, err := rec.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	clock.Advance(6 * time.Second)
	snap, err := sess.Fetch(1000)
	require.NoError(t, err)
	assert.Equal(t, 50, snap.Len())
	assert.Equal(t, int64(300), snap.Total())
	assert.InDelta(t, 250.0, snap.Data(0)[0], 0)
}

func TestRecordingCloseIsIdempotent(t *testing.T) {
	path := writeTestRecording(t, 10)
	sess := openRecording(t, path, newFakeClock())

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	_, err := sess.Fetch(10)
	assert.True(t, errors.HasCode(err, ErrSessionClosed))
}

func TestRecordingMissingFile(t *testing.T) {
	rec := NewRecording(filepath.Join(t.TempDir(), "missing.db"))
	rec.Logger = logger.Nop()

	sess, err := rec.Open(context.Background())
	assert.Nil(t, sess)
	assert.True(t, errors.HasCode(err, ErrConnection))
}

func TestCreateRecordingRejectsRaggedFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.db")
	err := CreateRecording(path, "ragged", 50, window.DefaultChannels, [][]float64{{1, 2, 3}, {1, 2}})
	assert.True(t, errors.HasCode(err, window.ErrChannelMismatch))
}

func TestParseChannels(t *testing.T) {
	got, err := parseChannels(formatChannels(window.DefaultChannels))
	require.NoError(t, err)
	assert.Equal(t, window.DefaultChannels, got)

	_, err = parseChannels("0,x")
	assert.True(t, errors.HasCode(err, ErrSchemaMismatch))
}
