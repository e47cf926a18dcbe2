package config

import "time"

// Provider defines the interface for accessing configuration values.
// All configuration values are immutable after initial loading.
type Provider interface {
	// GetUpdateInterval returns the time between two pipeline ticks
	GetUpdateInterval() time.Duration

	// GetWindowSize returns the visible window length in seconds
	GetWindowSize() int

	// GetMinSamplesForMetrics returns the history length that must be
	// exceeded before heart rate and HRV are computed
	GetMinSamplesForMetrics() int64

	// GetFFTSize returns the spectrum size used for heart rate estimation
	GetFFTSize() int

	// GetSource returns the configured data source kind
	GetSource() SourceKind

	// GetRecordingPath returns the capture replayed by the recording source
	GetRecordingPath() string

	// GetSamplingRate returns the simulator sampling rate in Hz
	GetSamplingRate() int

	// GetSimulatedHeartRate returns the simulator pulse in beats per minute
	GetSimulatedHeartRate() float64

	// GetHeartRateBand returns the accepted pulse range in beats per minute
	GetHeartRateBand() (low, high float64)

	// GetRenderer returns the configured display sink
	GetRenderer() RendererKind

	// GetMaxTicks returns the tick limit, 0 meaning unbounded
	GetMaxTicks() int

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// GetPIDDir returns the directory holding the pid file
	GetPIDDir() string
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
	search     bool
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "PPGVIEW"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithArgs replaces os.Args[1:] as the command line to parse
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		return nil
	}
}

// WithoutSearch disables looking for ppgview.toml in the default locations
func WithoutSearch() Option {
	return func(o *options) error {
		o.search = false
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// SourceKind selects the DataSource implementation
type SourceKind string

const (
	SourceSimulator SourceKind = "simulator"
	SourceRecording SourceKind = "recording"
)

// RendererKind selects the display sink
type RendererKind string

const (
	RendererTUI  RendererKind = "tui"
	RendererText RendererKind = "text"
	RendererLog  RendererKind = "log"
)
