package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Ledger error codes
const (
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeInsufficientFunds  = "ERR_INSUFFICIENT_FUNDS"
	ErrCodeNoPendingMovement  = "ERR_NO_PENDING_MOVEMENT"
	ErrCodeExpiredCode        = "ERR_EXPIRED_CODE"
	ErrCodeInvalidCode        = "ERR_INVALID_CODE"
	ErrCodeRecipientNotFound  = "ERR_RECIPIENT_NOT_FOUND"
	ErrCodeSelfTransfer       = "ERR_SELF_TRANSFER"
	ErrCodeAlreadyRefunded    = "ERR_ALREADY_REFUNDED"
	ErrCodeCannotRefundRefund = "ERR_CANNOT_REFUND_REFUND"
	ErrCodeAtomicityFailure   = "ERR_ATOMICITY_FAILURE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyAttempts = "ERR_TOO_MANY_ATTEMPTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRecipientNotFound:   http.StatusNotFound,

	// Ledger rule violations -> 422 Unprocessable Entity
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientFunds:  http.StatusUnprocessableEntity,
	ErrCodeNoPendingMovement:  http.StatusUnprocessableEntity,
	ErrCodeExpiredCode:        http.StatusUnprocessableEntity,
	ErrCodeSelfTransfer:       http.StatusUnprocessableEntity,
	ErrCodeAlreadyRefunded:    http.StatusUnprocessableEntity,
	ErrCodeCannotRefundRefund: http.StatusUnprocessableEntity,
	ErrCodeAtomicityFailure:   http.StatusConflict,

	// Wrong verification codes stay 422, not 401; the session is valid
	ErrCodeInvalidCode: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyAttempts: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"INSUFFICIENT_FUNDS":        ErrCodeInsufficientFunds,
	"NO_PENDING_MOVEMENT":       ErrCodeNoPendingMovement,
	"EXPIRED_CODE":              ErrCodeExpiredCode,
	"INVALID_CODE":              ErrCodeInvalidCode,
	"RECIPIENT_NOT_FOUND":       ErrCodeRecipientNotFound,
	"SELF_TRANSFER_NOT_ALLOWED": ErrCodeSelfTransfer,
	"ALREADY_REFUNDED":          ErrCodeAlreadyRefunded,
	"CANNOT_REFUND_REFUND":      ErrCodeCannotRefundRefund,
	"ATOMICITY_FAILURE":         ErrCodeAtomicityFailure,
	"TOO_MANY_ATTEMPTS":         ErrCodeTooManyAttempts,
	"VALIDATION_ERROR":          ErrCodeValidation,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
