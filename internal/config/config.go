package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/ppgview/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultUpdateIntervalMs     = 50
	DefaultWindowSizeSeconds    = 20
	DefaultMinSamplesForMetrics = 8192
	DefaultFFTSize              = 8192
	DefaultSamplingRate         = 50
	DefaultHeartRate            = 72.0
	DefaultMinHeartRate         = 42.0
	DefaultMaxHeartRate         = 210.0
	DefaultLogLevel             = "info"
	DefaultEnvPrefix            = "PPGVIEW"

	configName = "ppgview"
	configType = "toml"
	maxBPM     = 300
)

type Config struct {
	UpdateIntervalMs     int     `mapstructure:"update_interval_ms"`
	WindowSizeSeconds    int     `mapstructure:"window_size_seconds"`
	MinSamplesForMetrics int64   `mapstructure:"min_samples_for_metrics"`
	FFTSize              int     `mapstructure:"fft_size"`
	Source               string  `mapstructure:"source"`
	RecordingPath        string  `mapstructure:"recording_path"`
	SamplingRateHz       int     `mapstructure:"sampling_rate_hz"`
	SimulatedHeartRate   float64 `mapstructure:"simulated_heart_rate"`
	MinHeartRate         float64 `mapstructure:"min_heart_rate"`
	MaxHeartRate         float64 `mapstructure:"max_heart_rate"`
	Renderer             string  `mapstructure:"renderer"`
	MaxTicks             int     `mapstructure:"max_ticks"`
	LogLevel             string  `mapstructure:"log_level"`
	PIDDir               string  `mapstructure:"pid_dir"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"interval":      "update_interval_ms",
	"window":        "window_size_seconds",
	"min-samples":   "min_samples_for_metrics",
	"fft-size":      "fft_size",
	"source":        "source",
	"recording":     "recording_path",
	"sampling-rate": "sampling_rate_hz",
	"heart-rate":    "simulated_heart_rate",
	"min-bpm":       "min_heart_rate",
	"max-bpm":       "max_heart_rate",
	"renderer":      "renderer",
	"max-ticks":     "max_ticks",
	"log-level":     "log_level",
	"pid-dir":       "pid_dir",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("update_interval_ms", DefaultUpdateIntervalMs)
	v.SetDefault("window_size_seconds", DefaultWindowSizeSeconds)
	v.SetDefault("min_samples_for_metrics", DefaultMinSamplesForMetrics)
	v.SetDefault("fft_size", DefaultFFTSize)
	v.SetDefault("source", string(SourceSimulator))
	v.SetDefault("recording_path", "")
	v.SetDefault("sampling_rate_hz", DefaultSamplingRate)
	v.SetDefault("simulated_heart_rate", DefaultHeartRate)
	v.SetDefault("min_heart_rate", DefaultMinHeartRate)
	v.SetDefault("max_heart_rate", DefaultMaxHeartRate)
	v.SetDefault("renderer", string(RendererTUI))
	v.SetDefault("max_ticks", 0)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pid_dir", os.TempDir())
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("config", "", "Path to configuration file")
	fs.Int("interval", DefaultUpdateIntervalMs, "Interval between updates in milliseconds")
	fs.Int("window", DefaultWindowSizeSeconds, "Visible window in seconds")
	fs.Int64("min-samples", DefaultMinSamplesForMetrics, "Samples required before heart rate and HRV are computed")
	fs.Int("fft-size", DefaultFFTSize, "FFT size for heart rate estimation")
	fs.String("source", string(SourceSimulator), "Data source: simulator or recording")
	fs.String("recording", "", "SQLite capture replayed by the recording source")
	fs.Int("sampling-rate", DefaultSamplingRate, "Simulator sampling rate in Hz")
	fs.Float64("heart-rate", DefaultHeartRate, "Simulator heart rate in BPM")
	fs.Float64("min-bpm", DefaultMinHeartRate, "Lowest heart rate accepted by the estimator")
	fs.Float64("max-bpm", DefaultMaxHeartRate, "Highest heart rate accepted by the estimator")
	fs.String("renderer", string(RendererTUI), "Display: tui, text or log")
	fs.Int("max-ticks", 0, "Stop after this many ticks (0 = run until interrupted)")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning, error")
	fs.String("pid-dir", os.TempDir(), "Directory for the pid file")
	return fs
}

// Load reads configuration from defaults, the config file, the environment
// and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix: DefaultEnvPrefix,
		args:      os.Args[1:],
		search:    true,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if f := fs.Lookup("config"); f != nil && f.Changed {
		configPath = f.Value.String()
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else if o.search {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.Source = strings.ToLower(cfg.Source)
	cfg.Renderer = strings.ToLower(cfg.Renderer)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every field and reports the first invalid one.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.UpdateIntervalMs <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.UpdateIntervalMs)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	invalid := func(field string, value any) error {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value any
		}{field, value})
	}

	switch {
	case c.WindowSizeSeconds <= 0:
		return invalid("window_size_seconds", c.WindowSizeSeconds)
	case c.MinSamplesForMetrics < 0:
		return invalid("min_samples_for_metrics", c.MinSamplesForMetrics)
	case c.FFTSize < 64 || c.FFTSize&(c.FFTSize-1) != 0:
		return invalid("fft_size", c.FFTSize)
	case c.SamplingRateHz <= 0:
		return invalid("sampling_rate_hz", c.SamplingRateHz)
	case c.SimulatedHeartRate <= 0 || c.SimulatedHeartRate > maxBPM:
		return invalid("simulated_heart_rate", c.SimulatedHeartRate)
	case c.MinHeartRate <= 0:
		return invalid("min_heart_rate", c.MinHeartRate)
	case c.MaxHeartRate <= c.MinHeartRate || c.MaxHeartRate > maxBPM:
		return invalid("max_heart_rate", c.MaxHeartRate)
	case c.MaxTicks < 0:
		return invalid("max_ticks", c.MaxTicks)
	}

	switch SourceKind(c.Source) {
	case SourceSimulator:
	case SourceRecording:
		if c.RecordingPath == "" {
			return invalid("recording_path", c.RecordingPath)
		}
	default:
		return invalid("source", c.Source)
	}

	switch RendererKind(c.Renderer) {
	case RendererTUI, RendererText, RendererLog:
	default:
		return invalid("renderer", c.Renderer)
	}

	return nil
}

func (c *Config) GetUpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}

func (c *Config) GetWindowSize() int             { return c.WindowSizeSeconds }
func (c *Config) GetMinSamplesForMetrics() int64 { return c.MinSamplesForMetrics }
func (c *Config) GetFFTSize() int                { return c.FFTSize }
func (c *Config) GetSource() SourceKind          { return SourceKind(c.Source) }
func (c *Config) GetRecordingPath() string       { return c.RecordingPath }
func (c *Config) GetSamplingRate() int           { return c.SamplingRateHz }
func (c *Config) GetSimulatedHeartRate() float64 { return c.SimulatedHeartRate }
func (c *Config) GetRenderer() RendererKind      { return RendererKind(c.Renderer) }
func (c *Config) GetHeartRateBand() (float64, float64) {
	return c.MinHeartRate, c.MaxHeartRate
}
func (c *Config) GetMaxTicks() int    { return c.MaxTicks }
func (c *Config) GetLogLevel() string { return c.LogLevel }
func (c *Config) GetPIDDir() string   { return c.PIDDir }

var _ Provider = (*Config)(nil)
