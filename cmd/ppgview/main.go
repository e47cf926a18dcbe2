package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"codeberg.org/mutker/ppgview/internal/config"
	"codeberg.org/mutker/ppgview/internal/device"
	"codeberg.org/mutker/ppgview/internal/logger"
	"codeberg.org/mutker/ppgview/internal/metrics"
	"codeberg.org/mutker/ppgview/internal/pid"
	"codeberg.org/mutker/ppgview/internal/render"
	"codeberg.org/mutker/ppgview/internal/scheduler"
	"codeberg.org/mutker/ppgview/internal/window"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.GetLogLevel(), logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(cfg.GetPIDDir()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write pid file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSignals(cancel)

	code := 0
	if err := run(ctx, cancel); err != nil {
		logger.Warn().Err(err).Msg("Pipeline stopped with error")
		code = 1
	}
	cancel()

	if err := pid.Remove(cfg.GetPIDDir()); err != nil {
		logger.Error().Err(err).Msg("Failed to remove pid file")
	}
	logger.Info().Msg("End")
	os.Exit(code)
}

func run(ctx context.Context, cancel context.CancelFunc) error {
	source := newSource()
	low, high := cfg.GetHeartRateBand()
	extractor := metrics.NewExtractor(cfg.GetMinSamplesForMetrics(),
		metrics.WithFFTSize(cfg.GetFFTSize()),
		metrics.WithHeartRateBand(low, high),
	)
	schedCfg := scheduler.Config{
		UpdateInterval: cfg.GetUpdateInterval(),
		WindowSeconds:  cfg.GetWindowSize(),
		MaxTicks:       cfg.GetMaxTicks(),
	}

	switch cfg.GetRenderer() {
	case config.RendererTUI:
		return runTUI(ctx, cancel, schedCfg, source, extractor)
	case config.RendererText:
		return runHeadless(ctx, schedCfg, source, extractor, render.NewTextRenderer(os.Stdout))
	default:
		return runHeadless(ctx, schedCfg, source, extractor, render.NewLogRenderer(logger.Default()))
	}
}

func newSource() device.Source {
	if cfg.GetSource() == config.SourceRecording {
		return device.NewRecording(cfg.GetRecordingPath())
	}
	return device.NewSimulator(cfg.GetSamplingRate(), cfg.GetSimulatedHeartRate())
}

func runHeadless(ctx context.Context, schedCfg scheduler.Config, source device.Source, extractor metrics.Extractor, r render.Renderer) error {
	sched, err := scheduler.New(schedCfg, source, extractor, r, logger.Default())
	if err != nil {
		return err
	}
	return sched.Run(ctx)
}

// runTUI owns the terminal while the stream runs. Log lines, including the
// per-tick values at debug level, are held back and written to stderr once
// the UI has shut down.
func runTUI(ctx context.Context, cancel context.CancelFunc, schedCfg scheduler.Config, source device.Source, extractor metrics.Extractor) error {
	held := &lockedBuffer{}
	logger.SetOutput(held, logger.IsService())
	defer func() {
		logger.SetOutput(os.Stdout, logger.IsService())
		_, _ = os.Stderr.Write(held.Bytes())
	}()

	tui := render.NewTUIRenderer(window.DefaultChannels, cancel)
	sinks := render.Multi{tui, render.NewLogRenderer(logger.Default())}
	sched, err := scheduler.New(schedCfg, source, extractor, sinks, logger.Default())
	if err != nil {
		return err
	}

	uiErr := make(chan error, 1)
	go func() {
		uiErr <- tui.Run()
		cancel()
	}()

	err = sched.Run(ctx)
	tui.Stop()
	if e := <-uiErr; e != nil && err == nil {
		err = e
	}
	return err
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
