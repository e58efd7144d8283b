package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidBands    ErrorCode = "invalid_band_table"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Resource errors
	ErrResourceBusy      ErrorCode = "resource_busy"
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"

	// Control loop errors
	ErrSensorUnavailable  ErrorCode = "sensor_unavailable"
	ErrCommandFailed      ErrorCode = "command_failed"
	ErrToolNotFound       ErrorCode = "tool_not_found"
	ErrEndpointIncomplete ErrorCode = "endpoint_incomplete"
	ErrCyclePanic         ErrorCode = "cycle_panic"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"

	// Recorder errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
	ErrPublishFailed  ErrorCode = "publish_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrInvalidArgument:    "Invalid argument provided",
	ErrNotImplemented:     "Operation not implemented",
	ErrUnavailable:        "Service unavailable",
	ErrInvalidConfig:      "Invalid configuration",
	ErrMissingConfig:      "Missing configuration",
	ErrBindFlags:          "Failed to bind flags",
	ErrReadConfig:         "Failed to read config file",
	ErrInvalidInterval:    "Invalid interval value",
	ErrInvalidBands:       "Invalid fan speed band table",
	ErrInvalidLogLevel:    "Invalid log level",
	ErrInitFailed:         "Initialization failed",
	ErrShutdownFailed:     "Shutdown failed",
	ErrAlreadyRunning:     "Another instance is already running",
	ErrResourceBusy:       "Resource is busy",
	ErrResourceNotFound:   "Resource not found",
	ErrResourceExhausted:  "Resource exhausted",
	ErrSensorUnavailable:  "CPU temperature sensor unavailable",
	ErrCommandFailed:      "IPMI command failed",
	ErrToolNotFound:       "IPMI tool not found",
	ErrEndpointIncomplete: "Endpoint configuration incomplete",
	ErrCyclePanic:         "Control cycle panicked",
	ErrOperationFailed:    "Operation failed",
	ErrTimeout:            "Operation timed out",
	ErrInvalidOperation:   "Invalid operation",
	ErrInitMetrics:        "Failed to initialize metrics",
	ErrCollectMetrics:     "Failed to collect metrics data",
	ErrCloseMetrics:       "Failed to close metrics connection",
	ErrPublishFailed:      "Failed to publish outcome",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
