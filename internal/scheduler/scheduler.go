package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/ppgview/internal/device"
	"codeberg.org/mutker/ppgview/internal/errors"
	"codeberg.org/mutker/ppgview/internal/logger"
	"codeberg.org/mutker/ppgview/internal/metrics"
	"codeberg.org/mutker/ppgview/internal/render"
	"codeberg.org/mutker/ppgview/internal/window"
)

const component = "scheduler"

type State int32

const (
	Idle State = iota
	Streaming
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Config struct {
	UpdateInterval time.Duration
	WindowSeconds  int
	// MaxTicks stops the stream after that many ticks. 0 means unbounded.
	MaxTicks int
}

// Scheduler drives the acquisition pipeline. Ticks run one at a time on the
// goroutine that called Run; a slow tick delays the next one.
type Scheduler struct {
	cfg       Config
	source    device.Source
	extractor metrics.Extractor
	renderer  render.Renderer
	log       logger.Logger

	state    atomic.Int32
	started  atomic.Bool
	ticks    atomic.Int64
	seen     metrics.Counter
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, source device.Source, extractor metrics.Extractor, renderer render.Renderer, log logger.Logger) (*Scheduler, error) {
	errFactory := errors.New()

	if cfg.UpdateInterval <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidInterval, cfg.UpdateInterval)
	}
	if cfg.WindowSeconds <= 0 || cfg.MaxTicks < 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, cfg)
	}
	if source == nil || extractor == nil || renderer == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "source, extractor and renderer are required")
	}
	if log == nil {
		log = logger.Default()
	}

	return &Scheduler{
		cfg:       cfg,
		source:    source,
		extractor: extractor,
		renderer:  renderer,
		log:       log,
		stop:      make(chan struct{}),
	}, nil
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Stop ends the stream after the tick in progress. It is safe to call from
// any goroutine and more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Run opens a session and ticks until ctx is cancelled, Stop is called,
// MaxTicks is reached or a tick fails. The session is closed before Run
// returns on every path.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	errFactory := errors.New()

	if !s.started.CompareAndSwap(false, true) {
		return errFactory.WithData(errors.ErrInvalidOperation, struct {
			Operation string
			State     string
		}{"run", s.State().String()})
	}
	defer s.state.Store(int32(Stopped))

	sess, err := s.source.Open(ctx)
	if err != nil {
		if sess != nil {
			s.release(sess)
		}
		acqErr := errFactory.Wrap(errors.ErrAcquisition, err)
		s.log.ErrorWithContext(acqErr, component, "open").Msg("Failed to open session")
		return acqErr
	}
	defer func() {
		if relErr := s.release(sess); relErr != nil && err == nil {
			err = relErr
		}
	}()

	info := sess.Info()
	buf, err := window.NewBuffer(info.Channels, s.cfg.WindowSeconds, info.SamplingRate)
	if err != nil {
		return errFactory.Wrap(errors.ErrAcquisition, err)
	}

	s.state.Store(int32(Streaming))
	s.log.Info().
		Str("component", component).
		Str("session", info.ID).
		Str("device", info.Name).
		Int("capacity", buf.Capacity()).
		Dur("interval", s.cfg.UpdateInterval).
		Msg("Streaming")

	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()
	defer func() {
		s.log.Debug().
			Str("component", component).
			Int64("ticks", s.Ticks()).
			Int64("samples_seen", s.seen.Seen()).
			Msg("Stream ended")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			// a tick may have been queued while shutdown was requested
			if s.stopping(ctx) {
				return nil
			}
			if err := s.tick(sess, buf); err != nil {
				s.log.ErrorWithContext(err, component, "tick").
					Int64("tick", s.Ticks()+1).
					Msg("Tick failed")
				return err
			}
			if s.cfg.MaxTicks > 0 && s.Ticks() >= int64(s.cfg.MaxTicks) {
				return nil
			}
		}
	}
}

func (s *Scheduler) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Scheduler) tick(sess device.Session, buf *window.Buffer) (err error) {
	errFactory := errors.New()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = errFactory.Wrap(errors.ErrTick, fmt.Errorf("panic: %v", r)).WithMessage("Tick panicked")
		}
	}()

	snap, err := sess.Fetch(buf.Capacity())
	if err != nil {
		return errFactory.Wrap(errors.ErrTick, err).WithMessage("Fetch failed")
	}
	if err := buf.Update(snap); err != nil {
		return errFactory.Wrap(errors.ErrTick, err).WithMessage("Buffer update failed")
	}

	seen := s.seen.Observe(snap.Total())
	current := buf.Snapshot()
	estimates := s.extractor.Compute(current, seen)

	if err := s.renderer.Present(current, estimates); err != nil {
		return errFactory.Wrap(errors.ErrTick, err).WithMessage("Present failed")
	}

	n := s.ticks.Add(1)
	if elapsed := time.Since(start); elapsed > s.cfg.UpdateInterval {
		s.log.Debug().
			Str("component", component).
			Int64("tick", n).
			Dur("elapsed", elapsed).
			Dur("interval", s.cfg.UpdateInterval).
			Msg("Tick overran interval")
	}

	return nil
}

func (s *Scheduler) release(sess device.Session) error {
	if err := sess.Close(); err != nil {
		s.log.ErrorWithContext(err, component, "close").Msg("Failed to release session")
		if errors.HasCode(err, errors.ErrReleaseSession) {
			return err
		}
		return errors.New().Wrap(errors.ErrReleaseSession, err)
	}
	return nil
}
