package core

import "errors"

// ErrorCode is an error string the exchange places in the envelope's error field.
// Codes are compared as-is; the server text is never translated.
type ErrorCode string

// Error codes documented for the derivatives API.
const (
	ErrCodeAPILimitExceeded        ErrorCode = "apiLimitExceeded"
	ErrCodeAuthenticationError     ErrorCode = "authenticationError"
	ErrCodeAccountInactive         ErrorCode = "accountInactive"
	ErrCodeRequiredArgumentMissing ErrorCode = "requiredArgumentMissing"
	ErrCodeInvalidArgument         ErrorCode = "invalidArgument"
	ErrCodeMarketUnavailable       ErrorCode = "marketUnavailable"
	ErrCodeNonceBelowThreshold     ErrorCode = "nonceBelowThreshold"
	ErrCodeNonceDuplicate          ErrorCode = "nonceDuplicate"
	ErrCodeServerError             ErrorCode = "Server Error"
)

// IsErrorCode reports whether err is a domain error whose server message equals code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == ErrorKindDomain && ErrorCode(e.Message) == code
	}
	return false
}
