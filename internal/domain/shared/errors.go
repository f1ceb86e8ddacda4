package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInsufficientFunds   = NewDomainError("INSUFFICIENT_FUNDS", "Insufficient funds available")
	ErrNoPendingMovement   = NewDomainError("NO_PENDING_MOVEMENT", "No pending movement awaiting verification")
	ErrExpiredCode         = NewDomainError("EXPIRED_CODE", "Verification code has expired")
	ErrInvalidCode         = NewDomainError("INVALID_CODE", "Verification code does not match")
	ErrRecipientNotFound   = NewDomainError("RECIPIENT_NOT_FOUND", "Recipient could not be resolved")
	ErrSelfTransfer        = NewDomainError("SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same party")
	ErrAlreadyRefunded     = NewDomainError("ALREADY_REFUNDED", "Transaction has already been refunded")
	ErrCannotRefundRefund  = NewDomainError("CANNOT_REFUND_REFUND", "A refund entry cannot be refunded")
	ErrAtomicityFailure    = NewDomainError("ATOMICITY_FAILURE", "Atomic transaction aborted")
	ErrTooManyAttempts     = NewDomainError("TOO_MANY_ATTEMPTS", "Too many verification attempts")
)

// IsDomainError reports whether err is a *DomainError with the given code.
func IsDomainError(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
