package device

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/mutker/ppgview/internal/errors"
	"codeberg.org/mutker/ppgview/internal/logger"
	"codeberg.org/mutker/ppgview/internal/window"
	"github.com/google/uuid"
)

const simulatorName = "synthetic-ppg"

// channel baseline and pulse amplitude in raw ADC counts
var channelShape = map[window.Channel]struct{ baseline, amplitude float64 }{
	window.IR:    {baseline: 110000, amplitude: 1800},
	window.Red:   {baseline: 85000, amplitude: 1100},
	window.Green: {baseline: 32000, amplitude: 500},
}

// Simulator is a synthetic PPG board. Samples are produced on demand from
// the time elapsed since Open, so it behaves like a device that streams in
// the background.
type Simulator struct {
	SamplingRate int
	HeartRate    float64 // beats per minute
	Variability  float64 // relative beat-to-beat jitter of the interval
	Noise        float64 // relative to the pulse amplitude
	Channels     []window.Channel
	RingSize     int
	Seed         int64
	Clock        func() time.Time
	Logger       logger.Logger

	// FailOpen makes Open fail after the session was partially prepared.
	FailOpen error
	// FailFetchAfter makes every Fetch after the given number of calls fail.
	FailFetchAfter int
}

func NewSimulator(samplingRate int, heartRate float64) *Simulator {
	return &Simulator{
		SamplingRate: samplingRate,
		HeartRate:    heartRate,
		Variability:  0.03,
		Noise:        0.02,
		Channels:     window.DefaultChannels,
		RingSize:     DefaultRingSize,
		Seed:         1,
	}
}

func (s *Simulator) Open(ctx context.Context) (Session, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(ErrConnection, err)
	}
	if s.SamplingRate <= 0 || s.HeartRate <= 0 || len(s.Channels) == 0 {
		return nil, errFactory.Wrap(ErrConnection, errFactory.WithData(ErrInvalidConfig, struct {
			SamplingRate int
			HeartRate    float64
			Channels     int
		}{s.SamplingRate, s.HeartRate, len(s.Channels)}))
	}

	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	log := s.Logger
	if log == nil {
		log = logger.Default()
	}
	ringSize := s.RingSize
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}

	sess := &simSession{
		info: Info{
			ID:           uuid.NewString(),
			Name:         simulatorName,
			SamplingRate: s.SamplingRate,
			Channels:     append([]window.Channel(nil), s.Channels...),
		},
		heartRate:   s.HeartRate,
		variability: s.Variability,
		noise:       s.Noise,
		failAfter:   s.FailFetchAfter,
		clock:       clock,
		rng:         rand.New(rand.NewSource(s.Seed)),
		ring:        newRing(len(s.Channels), ringSize),
		log:         log,
	}
	sess.nextBeat()

	if s.FailOpen != nil {
		return sess, errFactory.Wrap(ErrConnection, s.FailOpen)
	}

	sess.started = clock()
	sess.streaming = true
	log.Info().
		Str("session", sess.info.ID).
		Str("device", simulatorName).
		Int("sampling_rate", s.SamplingRate).
		Msg("Stream started")

	return sess, nil
}

type simSession struct {
	mu   sync.Mutex
	info Info

	heartRate   float64
	variability float64
	noise       float64
	failAfter   int
	fetches     int

	clock     func() time.Time
	started   time.Time
	streaming bool
	closed    bool

	rng      *rand.Rand
	ring     *ring
	phase    float64 // position within the current beat, [0, 1)
	beatLen  float64 // seconds
	elapsedS float64 // signal time in seconds
	log      logger.Logger
}

func (s *simSession) Info() Info {
	return s.info
}

func (s *simSession) Fetch(maxSamples int) (window.Snapshot, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.streaming {
		return window.Snapshot{}, errFactory.New(ErrSessionClosed)
	}
	if maxSamples <= 0 {
		return window.Snapshot{}, errFactory.WithData(errors.ErrInvalidArgument, maxSamples)
	}

	s.fetches++
	if s.failAfter > 0 && s.fetches > s.failAfter {
		return window.Snapshot{}, errFactory.WithData(ErrFetchFailed, struct {
			Session string
			Fetch   int
		}{s.info.ID, s.fetches})
	}

	s.advance()

	return window.NewSnapshot(s.info.Channels, s.ring.latest(maxSamples), s.info.SamplingRate, s.ring.total)
}

// advance generates every frame due since the last call. Frames that would
// be evicted right away are only counted.
func (s *simSession) advance() {
	rate := float64(s.info.SamplingRate)
	due := int64(s.clock().Sub(s.started).Seconds() * rate)
	pending := due - s.ring.total
	if pending <= 0 {
		return
	}

	if excess := pending - int64(s.ring.capacity); excess > 0 {
		for i := int64(0); i < excess; i++ {
			s.step(rate)
		}
		s.ring.skip(excess)
		pending -= excess
	}

	frame := make([]float64, len(s.info.Channels))
	for i := int64(0); i < pending; i++ {
		s.step(rate)
		pulse := s.pulse()
		resp := 0.02 * math.Sin(2*math.Pi*0.25*s.elapsedS)
		for c, ch := range s.info.Channels {
			shape, ok := channelShape[ch]
			if !ok {
				shape = channelShape[window.IR]
			}
			n := s.noise * s.rng.NormFloat64()
			frame[c] = shape.baseline - shape.amplitude*(pulse+resp+n)
		}
		s.ring.push(frame)
	}
}

// step moves the signal clock forward by one sample.
func (s *simSession) step(rate float64) {
	s.elapsedS += 1 / rate
	s.phase += 1 / (rate * s.beatLen)
	for s.phase >= 1 {
		s.phase--
		s.nextBeat()
	}
}

func (s *simSession) nextBeat() {
	mean := 60 / s.heartRate
	jitter := s.variability * s.rng.NormFloat64()
	s.beatLen = mean * math.Max(0.5, math.Min(1.5, 1+jitter))
}

// pulse is a systolic peak followed by a smaller dicrotic wave.
func (s *simSession) pulse() float64 {
	return gauss(s.phase, 0.15, 0.06) + 0.35*gauss(s.phase, 0.45, 0.08)
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func (s *simSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.streaming = false
	s.ring.clear()

	s.log.Info().Str("session", s.info.ID).Msg("Releasing session")

	return nil
}
