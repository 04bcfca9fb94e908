package errors

// ErrorCode identifies a class of failure.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = 1

	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeMalformedBar         ErrorCode = 101
	ErrCodeUnknownRuleSet       ErrorCode = 102

	ErrCodeDuplicatePosition ErrorCode = 200
	ErrCodeNoPosition        ErrorCode = 201
	// ErrCodeInvalidPosition rejects a position with a non-positive price or size.
	ErrCodeInvalidPosition   ErrorCode = 202

	// ErrCodeInsufficientHistory marks an indicator that is still warming up.
	// It is a state, never a run failure.
	ErrCodeInsufficientHistory ErrorCode = 300
	ErrCodeDataUnavailable     ErrorCode = 301

	ErrCodeStorage      ErrorCode = 400
	ErrCodeNotification ErrorCode = 401
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:              "unknown",
	ErrCodeInvalidConfiguration: "invalid_configuration",
	ErrCodeMalformedBar:         "malformed_bar",
	ErrCodeUnknownRuleSet:       "unknown_rule_set",
	ErrCodeDuplicatePosition:    "duplicate_position",
	ErrCodeNoPosition:           "no_position",
	ErrCodeInvalidPosition:      "invalid_position",
	ErrCodeInsufficientHistory:  "insufficient_history",
	ErrCodeDataUnavailable:      "data_unavailable",
	ErrCodeStorage:              "storage",
	ErrCodeNotification:         "notification",
}

// String returns the snake_case name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}
