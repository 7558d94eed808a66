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
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInvalidAmount       = NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	ErrInsufficientFunds   = NewDomainError("INSUFFICIENT_FUNDS", "Insufficient funds in cash box")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrCashBoxNotFound     = NewDomainError("CASH_BOX_NOT_FOUND", "No cash box could be resolved for the user")
	ErrNoMatchingCashBox   = NewDomainError("NO_MATCHING_CASH_BOX", "No destination cash box matches the source type")
	ErrAlreadyReversed     = NewDomainError("ALREADY_REVERSED", "Transaction has already been reversed")
	ErrReversalFinal       = NewDomainError("CANNOT_REVERSE_REVERSAL", "A reversal record cannot itself be reversed")
	ErrVariantNotFound     = NewDomainError("VARIANT_NOT_FOUND", "Product variant does not exist")
	ErrOverAllocation      = NewDomainError("OVER_ALLOCATION", "Allocation exceeds the installment amount")
	ErrAllocationMismatch  = NewDomainError("ALLOCATION_MISMATCH", "Allocations exceed the payment amount")
	ErrPaymentLinked       = NewDomainError("PAYMENT_LINKED_TO_INSTALLMENTS", "Payment has installment allocations and cannot be reversed directly")
)
