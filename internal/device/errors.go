package device

import "codeberg.org/mutker/ppgview/internal/errors"

const (
	// Connection Errors
	ErrConnection    = errors.ErrorCode("device_connection_failed")
	ErrSessionClosed = errors.ErrorCode("device_session_closed")
	ErrInvalidConfig = errors.ErrorCode("device_invalid_config")

	// Acquisition Errors
	ErrFetchFailed = errors.ErrorCode("device_fetch_failed")

	// Recording Errors
	ErrStorageInit       = errors.ErrorCode("recording_storage_init_failed")
	ErrStorageAccess     = errors.ErrorCode("recording_storage_access_failed")
	ErrSchemaInitFailed  = errors.ErrorCode("recording_schema_init_failed")
	ErrSchemaMismatch    = errors.ErrorCode("recording_schema_mismatch")
	ErrTransactionFailed = errors.ErrorCode("recording_transaction_failed")
)

func init() {
	errors.Register(ErrConnection, "Device cannot be reached or configured")
	errors.Register(ErrSessionClosed, "Device session is closed")
	errors.Register(ErrInvalidConfig, "Invalid device configuration")
	errors.Register(ErrFetchFailed, "Failed to fetch samples")
	errors.Register(ErrStorageInit, "Failed to initialize recording storage")
	errors.Register(ErrStorageAccess, "Failed to access recording storage")
	errors.Register(ErrSchemaInitFailed, "Failed to initialize recording schema")
	errors.Register(ErrSchemaMismatch, "Unsupported recording schema")
	errors.Register(ErrTransactionFailed, "Recording transaction failed")
}
