package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown        ErrorCode = 1
	ErrCodeInternal       ErrorCode = 2
	ErrCodeNotImplemented ErrorCode = 3

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidAsset         ErrorCode = 103

	// Load errors (200-299)
	ErrCodeLoadFailed   ErrorCode = 200
	ErrCodeMalformedRow ErrorCode = 201
	ErrCodeBadTimestamp ErrorCode = 202
	ErrCodeQueryFailed  ErrorCode = 203

	// Resolution errors (300-399)
	ErrCodeAssetResolution ErrorCode = 300

	// Subscriber errors (400-499)
	ErrCodeSubscriberFailed ErrorCode = 400

	// Router errors (500-599)
	ErrCodeUnknownMessageType ErrorCode = 500
	ErrCodeMalformedMessage   ErrorCode = 501

	// Broker errors (600-699)
	ErrCodeTransportSend   ErrorCode = 600
	ErrCodeReplyTimeout    ErrorCode = 601
	ErrCodeVersionMismatch ErrorCode = 602
)
