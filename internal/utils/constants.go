package utils

// Messages shared by the entry point and the CLI.
const (
	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the final fatal log entry.
	ApplicationExecutionFailedMessage = "codeprompt failed"
	// ApplicationInterruptedMessage reports a run stopped by a signal after partial output.
	ApplicationInterruptedMessage = "codeprompt interrupted; output is partial"
)

// Structured log field keys.
const (
	LogFieldPath     = "path"
	LogFieldReason   = "reason"
	LogFieldCount    = "count"
	LogFieldSize     = "size"
	LogFieldEncoding = "encoding"
	LogFieldRoot     = "root"
)
