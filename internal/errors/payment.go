package errors

var (
	ErrValidation = &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "invalid input",
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "illegal transaction status transition",
	}
	ErrMalformedEvent = &DomainError{
		Code:    "MALFORMED_EVENT",
		Message: "event payload is malformed or signature is invalid",
	}
	ErrOrphanEvent = &DomainError{
		Code:    "ORPHAN_EVENT",
		Message: "no transaction matches the event reference",
	}
	ErrConcurrentModification = &DomainError{
		Code:    "CONCURRENT_MODIFICATION",
		Message: "record was modified concurrently",
	}
	ErrExternalProcessor = &DomainError{
		Code:    "EXTERNAL_PROCESSOR",
		Message: "payment processor call failed",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrNoActiveDispute = &DomainError{
		Code:    "NO_ACTIVE_DISPUTE",
		Message: "no open dispute for this transaction",
	}
	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "record not found",
	}
)
