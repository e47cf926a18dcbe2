package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Instance errors
	ErrAlreadyRunning ErrorCode = "already_running"

	// Pipeline errors
	ErrAcquisition      ErrorCode = "acquisition_failed"
	ErrTick             ErrorCode = "tick_failed"
	ErrReleaseSession   ErrorCode = "release_session_failed"
	ErrInvalidOperation ErrorCode = "invalid_operation"
	ErrTimeout          ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrAcquisition:      "Failed to acquire device session",
	ErrTick:             "Pipeline tick failed",
	ErrReleaseSession:   "Failed to release device session",
	ErrInvalidOperation: "Invalid operation",
	ErrTimeout:          "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// Register adds a human readable message for a package specific code.
// It is meant to be called from package init functions.
func Register(code ErrorCode, msg string) {
	errorMessages[code] = msg
}
